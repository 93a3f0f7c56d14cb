package wikitext

import (
	"testing"

	"github.com/lehigh-university-libraries/wellcome2commons/internal/records"
	"github.com/stretchr/testify/assert"
)

func TestDiseaseCategory(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Lepromatous leprosy of the face", "Leprosy"},
		{"LEPROSY", "Leprosy"},
		{"Amoebic ulcer of colon", "Amoebiasis"},
		{"Kala azar: enlarged spleen", "Leishmaniasis"},
		{"Tuberculous lymphadenitis", "Tuberculosis"},
		{"Granuloma inguinale", "Donovanosis"},
		{"Pneumocystis in lung", "Pneumonia"},
		{"Sickle cell anaemia, blood film", "Sickle cell disease"},
		{"Malaria parasites", "Malaria"},
		{"Normal liver", "Pathology"},
		{"", "Pathology"},
		// first row of the table wins over later ones
		{"Tuberculosis and leprosy", "Leprosy"},
		{"Malaria with schistosomiasis", "Schistosomiasis"},
		{"Pneumonia complicating tuberculosis", "Tuberculosis"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, DiseaseCategory(tt.title))
		})
	}
}

func TestBuild(t *testing.T) {
	row := records.Record{
		Title:        "Leprosy: face",
		Description:  "Face of a patient",
		Credit:       "Wellcome Collection",
		Contributors: "SB Lucas",
		WorkPageURL:  "https://wellcomecollection.org/works/abc123",
	}

	want := "== {{int:filedesc}} ==\n" +
		"{{Information\n" +
		"|description={{en|1=Face of a patient}}\n" +
		"|date=\n" +
		"|source={{Wellcome Images}}<br/>Source: [https://wellcomecollection.org/works/abc123 Wellcome Collection]\n" +
		"|author=Wellcome Collection\n" +
		"|permission=\n" +
		"|other versions=\n" +
		"}}\n\n" +
		"== {{int:license-header}} ==\n" +
		"{{cc-zero}}\n\n" +
		"[[Category:Leprosy]]\n"

	assert.Equal(t, want, Build(row))
}

func TestBuildFallbacks(t *testing.T) {
	row := records.Record{
		Title:        "Malaria smear",
		Contributors: "SB Lucas",
	}

	text := Build(row)
	assert.Contains(t, text, "|description={{en|1=Malaria smear}}\n")
	assert.Contains(t, text, "|author=SB Lucas\n")
	assert.Contains(t, text, "[[Category:Malaria]]\n")
}

func TestBuildStripsHTML(t *testing.T) {
	row := records.Record{
		Title:       "Mycetoma of foot",
		Description: "<p><i>Madurella</i> grains</p>",
	}
	assert.Contains(t, Build(row), "|description={{en|1=Madurella grains}}\n")
}

func TestStripHTMLKeepsOneLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<p>Hands of a patient.</p><p>Lepromatous type.</p>", "Hands of a patient. Lepromatous type."},
		{"Section of skin<br>stained<br/>x 40", "Section of skin stained x 40"},
		{"Plain text", "Plain text"},
	}
	for _, tt := range tests {
		got := StripHTML(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.NotContains(t, got, "\n")
	}

	text := Build(records.Record{Title: "Leprosy", Description: "<p>one</p><p>two</p>"})
	assert.Contains(t, text, "|description={{en|1=one two}}\n")
}

func TestPreview(t *testing.T) {
	lines := Preview(Build(records.Record{Title: "x"}), 8)
	assert.Len(t, lines, 8)
	assert.Equal(t, "== {{int:filedesc}} ==", lines[0])
	assert.Equal(t, "|other versions=", lines[7])

	assert.Equal(t, []string{"a", "b"}, Preview("a\nb", 8))
}
