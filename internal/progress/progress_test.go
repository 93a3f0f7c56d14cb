package progress

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "upload_progress.json"))
	require.NoError(t, err)
	assert.Empty(t, p.Uploaded)
	assert.NotNil(t, p.Uploaded)
	assert.NotNil(t, p.Failed)
	assert.NotNil(t, p.Skipped)
}

func TestSaveFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload_progress.json")
	require.NoError(t, New().Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"uploaded\": [],\n  \"failed\": [],\n  \"skipped\": []\n}", string(data))
}

func TestLoadSaveRoundTripUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "upload_progress.json")

	p := New()
	p.MarkUploaded("A_Wellcome_L1.jpg")
	p.MarkFailed("B_Wellcome_L2.jpg", "File not found")
	p.MarkSkipped("C_Wellcome_L3.jpg")
	require.NoError(t, p.Save(path))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	loaded, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, loaded.Save(path))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestSaveKeepsMarkupLiteral(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload_progress.json")
	existing := `{
  "uploaded": [
    "A&B_Wellcome_L1.jpg"
  ],
  "failed": [
    {
      "filename": "B_Wellcome_L2.jpg",
      "error": "commons API returned status 503: <html><body>Service Unavailable</body></html>"
    }
  ],
  "skipped": []
}`
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, p.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, existing, string(data))
}

func TestLoadToleratesNullLists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload_progress.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"uploaded": ["x.jpg"], "failed": null}`), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.True(t, p.IsUploaded("x.jpg"))
	assert.NotNil(t, p.Failed)
	assert.NotNil(t, p.Skipped)
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload_progress.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"uploaded": [`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestMarkUploadedClearsFailures(t *testing.T) {
	p := New()
	p.MarkFailed("a.jpg", "ratelimited")
	p.MarkFailed("b.jpg", "File not found")
	p.MarkFailed("a.jpg", "timeout")

	p.MarkUploaded("a.jpg")

	assert.True(t, p.IsUploaded("a.jpg"))
	assert.False(t, p.IsUploaded("b.jpg"))
	assert.Equal(t, []Failure{{Filename: "b.jpg", Error: "File not found"}}, p.Failed)
}

func TestRecentFailures(t *testing.T) {
	p := New()
	for _, name := range []string{"1", "2", "3", "4"} {
		p.MarkFailed(name, "err")
	}

	tests := []struct {
		n    int
		want []string
	}{
		{n: 0, want: nil},
		{n: 2, want: []string{"3", "4"}},
		{n: 10, want: []string{"1", "2", "3", "4"}},
	}
	for _, tt := range tests {
		var got []string
		for _, f := range p.RecentFailures(tt.n) {
			got = append(got, f.Filename)
		}
		assert.Equal(t, tt.want, got, "n=%d", tt.n)
	}
}
