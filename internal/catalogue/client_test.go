package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/wellcome2commons/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	cfg := config.Default().Catalogue
	cfg.BaseURL = serverURL
	cfg.PageSize = 3
	cfg.PageDelay = 0
	cfg.BatchDelay = 0
	cfg.WorkBatchSize = 2
	cfg.WorkWorkers = 2
	c := NewClient(cfg)
	c.retryBase = time.Millisecond
	return c
}

func imagesPage(start, n int) ImagesResponse {
	resp := ImagesResponse{Type: "ResultList"}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("img%d", start+i)
		resp.Results = append(resp.Results, Image{ID: id, Source: Source{ID: "w" + id}})
	}
	return resp
}

func TestSearchImagesStopsOnShortPage(t *testing.T) {
	tests := []struct {
		name      string
		pageSizes []int
		wantPages int
		wantTotal int
	}{
		{name: "short first page", pageSizes: []int{2}, wantPages: 1, wantTotal: 2},
		{name: "empty first page", pageSizes: []int{0}, wantPages: 1, wantTotal: 0},
		{name: "two full pages then short", pageSizes: []int{3, 3, 1}, wantPages: 3, wantTotal: 7},
		{name: "full pages then empty", pageSizes: []int{3, 3, 0}, wantPages: 3, wantTotal: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests.Add(1)
				assert.Equal(t, "/images", r.URL.Path)
				assert.Equal(t, "3", r.URL.Query().Get("pageSize"))
				assert.Equal(t, `"SB Lucas"`, r.URL.Query().Get("source.contributors.agent.label"))
				assert.Equal(t, ImageInclude, r.URL.Query().Get("include"))
				assert.Equal(t, "WellcomeDownloader/1.0", r.Header.Get("User-Agent"))

				page, _ := strconv.Atoi(r.URL.Query().Get("page"))
				if page < 1 || page > len(tt.pageSizes) {
					t.Errorf("unexpected page %d", page)
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				_ = json.NewEncoder(w).Encode(imagesPage((page-1)*3, tt.pageSizes[page-1]))
			}))
			defer server.Close()

			c := newTestClient(server.URL)
			query := url.Values{"source.contributors.agent.label": {`"SB Lucas"`}}
			images, err := c.SearchImages(context.Background(), query, ImageInclude)
			require.NoError(t, err)

			assert.Len(t, images, tt.wantTotal)
			assert.Equal(t, int32(tt.wantPages), requests.Load())
		})
	}
}

func TestSearchImagesPausesAfterSlowPages(t *testing.T) {
	var mu sync.Mutex
	var starts, ends []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()

		time.Sleep(60 * time.Millisecond)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		n := 3
		if page == 2 {
			n = 1
		}
		_ = json.NewEncoder(w).Encode(imagesPage((page-1)*3, n))

		mu.Lock()
		ends = append(ends, time.Now())
		mu.Unlock()
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	c.pageDelay = 40 * time.Millisecond

	images, err := c.SearchImages(context.Background(), url.Values{}, "")
	require.NoError(t, err)
	assert.Len(t, images, 4)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, starts, 2)
	assert.GreaterOrEqual(t, starts[1].Sub(ends[0]), 40*time.Millisecond, "delay follows the previous page")
}

func TestSearchImagesRetriesServerErrors(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(imagesPage(0, 1))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	images, err := c.SearchImages(context.Background(), url.Values{}, "")
	require.NoError(t, err)
	assert.Len(t, images, 1)
	assert.Equal(t, int32(2), requests.Load())
}

func TestSearchImagesFailsOnClientError(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "bad query", http.StatusBadRequest)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.SearchImages(context.Background(), url.Values{}, "")
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, int32(1), requests.Load(), "client errors are not retried")
}

func TestFetchWorksRecordsFailuresAsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, WorkInclude, r.URL.Query().Get("include"))
		switch r.URL.Path {
		case "/works/good1":
			_ = json.NewEncoder(w).Encode(Work{ID: "good1", Description: "first"})
		case "/works/good2":
			_ = json.NewEncoder(w).Encode(Work{ID: "good2", Description: "second"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	works, err := c.FetchWorks(context.Background(), []string{"good1", "missing", "good2"})
	require.NoError(t, err)

	require.Len(t, works, 3)
	assert.Equal(t, "first", works["good1"].Description)
	assert.Equal(t, "second", works["good2"].Description)
	assert.Equal(t, Work{}, works["missing"])
}

func TestUniqueWorkIDs(t *testing.T) {
	images := []Image{
		{ID: "a", Source: Source{ID: "w1"}},
		{ID: "b", Source: Source{ID: "w2"}},
		{ID: "c", Source: Source{ID: "w1"}},
		{ID: "d"},
	}
	assert.Equal(t, []string{"w1", "w2"}, UniqueWorkIDs(images))
}

func TestWorkIdentifier(t *testing.T) {
	w := Work{Identifiers: []Identifier{
		{IdentifierType: Labelled{ID: "sierra-system-number"}, Value: "b123"},
		{IdentifierType: Labelled{ID: "miro-image-number"}, Value: "L0012345"},
		{IdentifierType: Labelled{ID: "miro-image-number"}, Value: "L9999999"},
	}}
	assert.Equal(t, "L0012345", w.Identifier("miro-image-number"))
	assert.Empty(t, w.Identifier("calm-ref-no"))
}

func TestCollections(t *testing.T) {
	all, err := Collections("all")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "sb_lucas", all[0].Name)
	assert.Equal(t, "museum", all[1].Name)

	one, err := Collections("museum")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "museum_objects.csv", one[0].CSVFile)

	_, err = Collections("paintings")
	assert.Error(t, err)
}
