// Package wikitext renders the Commons file description page for an image.
package wikitext

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/k3a/html2text"
	"github.com/lehigh-university-libraries/wellcome2commons/internal/records"
)

// DefaultCategory is used when no disease keyword matches the title
const DefaultCategory = "Pathology"

type diseaseRule struct {
	keywords []string
	category string
}

// first match wins, so order matters
var diseaseRules = []diseaseRule{
	{[]string{"leprosy", "lepromatous"}, "Leprosy"},
	{[]string{"schistosomiasis"}, "Schistosomiasis"},
	{[]string{"amoebiasis", "amoebic"}, "Amoebiasis"},
	{[]string{"leishmaniasis", "kala azar"}, "Leishmaniasis"},
	{[]string{"histoplasmosis"}, "Histoplasmosis"},
	{[]string{"tuberculosis", "tuberculous"}, "Tuberculosis"},
	{[]string{"donovanosis", "granuloma inguinale"}, "Donovanosis"},
	{[]string{"mycetoma"}, "Mycetoma"},
	{[]string{"pneumonia", "pneumocystis"}, "Pneumonia"},
	{[]string{"aspergillosis"}, "Aspergillosis"},
	{[]string{"cryptococcosis"}, "Cryptococcosis"},
	{[]string{"trypanosomiasis"}, "Trypanosomiasis"},
	{[]string{"filariasis"}, "Filariasis"},
	{[]string{"malaria"}, "Malaria"},
	{[]string{"sickle cell"}, "Sickle cell disease"},
}

// DiseaseCategory picks the single Commons category for a title
func DiseaseCategory(title string) string {
	lower := strings.ToLower(title)
	for _, rule := range diseaseRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return DefaultCategory
}

var lineBreaks = regexp.MustCompile(`\s*[\r\n]\s*`)

// StripHTML reduces catalogue HTML to a single line of plain text, so it can
// sit inside a template parameter
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	text := html2text.HTML2Text(s)
	return lineBreaks.ReplaceAllString(strings.TrimSpace(text), " ")
}

// Build renders the description page uploaded alongside row's image
func Build(row records.Record) string {
	desc := row.Description
	if desc == "" {
		desc = row.Title
	}
	author := row.Credit
	if author == "" {
		author = row.Contributors
	}

	var b strings.Builder
	b.WriteString("== {{int:filedesc}} ==\n")
	b.WriteString("{{Information\n")
	fmt.Fprintf(&b, "|description={{en|1=%s}}\n", StripHTML(desc))
	b.WriteString("|date=\n")
	fmt.Fprintf(&b, "|source={{Wellcome Images}}<br/>Source: [%s Wellcome Collection]\n", row.WorkPageURL)
	fmt.Fprintf(&b, "|author=%s\n", author)
	b.WriteString("|permission=\n")
	b.WriteString("|other versions=\n")
	b.WriteString("}}\n\n")
	b.WriteString("== {{int:license-header}} ==\n")
	b.WriteString("{{cc-zero}}\n\n")
	fmt.Fprintf(&b, "[[Category:%s]]\n", DiseaseCategory(row.Title))

	return b.String()
}

// Preview returns the first n lines of text
func Preview(text string, n int) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}
