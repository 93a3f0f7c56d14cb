package catalogue

// ImagesResponse is one page of the catalogue images search API
type ImagesResponse struct {
	Type       string  `json:"type"`
	PageSize   int     `json:"pageSize"`
	TotalPages int     `json:"totalPages"`
	Results    []Image `json:"results"`
}

// Image is a catalogue image record
type Image struct {
	ID        string     `json:"id"`
	Locations []Location `json:"locations"`
	Source    Source     `json:"source"`
}

// Source is the work an image belongs to
type Source struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Location points at a IIIF image service and carries its licence
type Location struct {
	URL     string  `json:"url"`
	Credit  string  `json:"credit"`
	License License `json:"license"`
}

// License identifies the licence an image is published under
type License struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Work is the detail record for a catalogue work. A work that failed to load
// is represented by the zero value.
type Work struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	WorkType     Labelled      `json:"workType"`
	Identifiers  []Identifier  `json:"identifiers"`
	Subjects     []Labelled    `json:"subjects"`
	Genres       []Labelled    `json:"genres"`
	Contributors []Contributor `json:"contributors"`
}

// Labelled is any catalogue concept that is rendered by its label
type Labelled struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Identifier is an external identifier attached to a work
type Identifier struct {
	IdentifierType Labelled `json:"identifierType"`
	Value          string   `json:"value"`
}

// Contributor links an agent to a work
type Contributor struct {
	Agent Labelled `json:"agent"`
}

// FirstLocation returns the image's primary location, or the zero value
func (i Image) FirstLocation() Location {
	if len(i.Locations) == 0 {
		return Location{}
	}
	return i.Locations[0]
}

// Identifier returns the value for the given identifier type id
func (w Work) Identifier(typeID string) string {
	for _, ident := range w.Identifiers {
		if ident.IdentifierType.ID == typeID {
			return ident.Value
		}
	}
	return ""
}
