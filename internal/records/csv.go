package records

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Columns is the CSV header, in column order
var Columns = []string{
	"image_id",
	"work_id",
	"miro_image_number",
	"title",
	"description",
	"work_type",
	"contributors",
	"subjects",
	"genres",
	"license_id",
	"license_label",
	"license_url",
	"credit",
	"iiif_image_id",
	"full_image_url",
	"work_page_url",
	"image_page_url",
	"filename",
}

func (r Record) values() []string {
	return []string{
		r.ImageID,
		r.WorkID,
		r.MiroImageNumber,
		r.Title,
		r.Description,
		r.WorkType,
		r.Contributors,
		r.Subjects,
		r.Genres,
		r.LicenseID,
		r.LicenseLabel,
		r.LicenseURL,
		r.Credit,
		r.IIIFImageID,
		r.FullImageURL,
		r.WorkPageURL,
		r.ImagePageURL,
		r.Filename,
	}
}

func recordFromFields(get func(column string) string) Record {
	return Record{
		ImageID:         get("image_id"),
		WorkID:          get("work_id"),
		MiroImageNumber: get("miro_image_number"),
		Title:           get("title"),
		Description:     get("description"),
		WorkType:        get("work_type"),
		Contributors:    get("contributors"),
		Subjects:        get("subjects"),
		Genres:          get("genres"),
		LicenseID:       get("license_id"),
		LicenseLabel:    get("license_label"),
		LicenseURL:      get("license_url"),
		Credit:          get("credit"),
		IIIFImageID:     get("iiif_image_id"),
		FullImageURL:    get("full_image_url"),
		WorkPageURL:     get("work_page_url"),
		ImagePageURL:    get("image_page_url"),
		Filename:        get("filename"),
	}
}

// WriteCSV writes rows with a header line to path, replacing any existing file
func WriteCSV(path string, rows []Record) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	if err := EncodeCSV(file, rows); err != nil {
		return err
	}

	return file.Close()
}

// EncodeCSV writes rows with a header line to w
func EncodeCSV(w io.Writer, rows []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.values()); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", r.ImageID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// ReadCSV loads rows from path, matching columns by header name. Unknown
// columns are ignored and missing ones are left empty.
func ReadCSV(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	return DecodeCSV(file)
}

// DecodeCSV reads rows with a header line from r
func DecodeCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	var rows []Record
	line := 1
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		rows = append(rows, recordFromFields(func(column string) string {
			i, ok := index[column]
			if !ok || i >= len(fields) {
				return ""
			}
			return fields[i]
		}))
	}

	return rows, nil
}
