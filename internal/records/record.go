package records

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/wellcome2commons/internal/catalogue"
)

// MiroIdentifierType is the catalogue identifier type holding the Miro number
const MiroIdentifierType = "miro-image-number"

// Record is one exported catalogue image, persisted as one CSV row
type Record struct {
	ImageID         string `parquet:"image_id"`
	WorkID          string `parquet:"work_id"`
	MiroImageNumber string `parquet:"miro_image_number"`
	Title           string `parquet:"title"`
	Description     string `parquet:"description"`
	WorkType        string `parquet:"work_type"`
	Contributors    string `parquet:"contributors"`
	Subjects        string `parquet:"subjects"`
	Genres          string `parquet:"genres"`
	LicenseID       string `parquet:"license_id"`
	LicenseLabel    string `parquet:"license_label"`
	LicenseURL      string `parquet:"license_url"`
	Credit          string `parquet:"credit"`
	IIIFImageID     string `parquet:"iiif_image_id"`
	FullImageURL    string `parquet:"full_image_url"`
	WorkPageURL     string `parquet:"work_page_url"`
	ImagePageURL    string `parquet:"image_page_url"`
	Filename        string `parquet:"filename"`
}

// URLs holds the hosts used to derive image and page links
type URLs struct {
	IIIFBase string // e.g. https://iiif.wellcomecollection.org/image
	Site     string // e.g. https://wellcomecollection.org
}

// BuildRows assembles one Record per image, joined with its work detail.
// Images whose work is missing from works get empty descriptive fields.
func BuildRows(images []catalogue.Image, works map[string]catalogue.Work, urls URLs) []Record {
	rows := make([]Record, 0, len(images))

	for _, img := range images {
		workID := img.Source.ID
		work := works[workID]
		loc := img.FirstLocation()

		iiifID := IIIFImageID(loc.URL)

		miro := work.Identifier(MiroIdentifierType)
		if miro == "" {
			miro = iiifID
		}

		title := img.Source.Title

		rows = append(rows, Record{
			ImageID:         img.ID,
			WorkID:          workID,
			MiroImageNumber: miro,
			Title:           title,
			Description:     work.Description,
			WorkType:        work.WorkType.Label,
			Contributors:    joinLabels(work.Contributors, func(c catalogue.Contributor) string { return c.Agent.Label }),
			Subjects:        joinLabels(work.Subjects, func(l catalogue.Labelled) string { return l.Label }),
			Genres:          joinLabels(work.Genres, func(l catalogue.Labelled) string { return l.Label }),
			LicenseID:       loc.License.ID,
			LicenseLabel:    loc.License.Label,
			LicenseURL:      loc.License.URL,
			Credit:          loc.Credit,
			IIIFImageID:     iiifID,
			FullImageURL:    fmt.Sprintf("%s/%s/full/full/0/default.jpg", urls.IIIFBase, iiifID),
			WorkPageURL:     fmt.Sprintf("%s/works/%s", urls.Site, workID),
			ImagePageURL:    fmt.Sprintf("%s/works/%s/images?id=%s", urls.Site, workID, img.ID),
			Filename:        CommonsFilename(title, miro),
		})
	}

	return rows
}

// IIIFImageID extracts the image identifier from a IIIF location URL such as
// https://iiif.wellcomecollection.org/image/L0012345/info.json
func IIIFImageID(locationURL string) string {
	_, rest, found := strings.Cut(locationURL, "/image/")
	if !found {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	return id
}

// FilterMiro drops rows whose Miro number is a key of existing
func FilterMiro(rows []Record, existing map[string][]string) []Record {
	kept := make([]Record, 0, len(rows))
	for _, r := range rows {
		if _, ok := existing[r.MiroImageNumber]; ok {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// MiroNumbers lists the Miro number of every row, in row order
func MiroNumbers(rows []Record) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.MiroImageNumber
	}
	return out
}

func joinLabels[T any](items []T, label func(T) string) string {
	labels := make([]string, len(items))
	for i, item := range items {
		labels[i] = label(item)
	}
	return strings.Join(labels, "; ")
}
