package catalogue

import (
	"fmt"
	"net/url"
)

// ImageInclude is the include parameter sent with every images search
const ImageInclude = "source.contributors,source.subjects,source.languages,source.genres"

// Collection describes one exportable slice of the catalogue
type Collection struct {
	Name      string
	Label     string
	Query     url.Values
	CSVFile   string
	ImagesDir string
}

var collections = []Collection{
	{
		Name:      "sb_lucas",
		Label:     "SB Lucas Pathology Collection",
		Query:     url.Values{"source.contributors.agent.label": {`"SB Lucas"`}},
		CSVFile:   "sb_lucas_wellcome_images.csv",
		ImagesDir: "images/sb_lucas",
	},
	{
		Name:  "museum",
		Label: "Museum Objects Collection",
		Query: url.Values{
			"source.genres.label": {`"Museum object"`},
			"sortOrder":           {"desc"},
			"sort":                {"source.production.dates"},
		},
		CSVFile:   "museum_objects.csv",
		ImagesDir: "images/museum_objects",
	},
}

// Collections resolves a --collection selector. "all" returns every
// collection in a stable order.
func Collections(name string) ([]Collection, error) {
	if name == "all" {
		return append([]Collection(nil), collections...), nil
	}
	for _, c := range collections {
		if c.Name == name {
			return []Collection{c}, nil
		}
	}
	return nil, fmt.Errorf("unknown collection %q (supported: sb_lucas, museum, all)", name)
}
