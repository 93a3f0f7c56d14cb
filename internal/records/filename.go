package records

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFilenameLength is the longest filename CommonsFilename produces, in characters
const MaxFilenameLength = 200

var (
	filenamePunct = regexp.MustCompile(`[:()/\\,.'"\[\]{}!?;]`)
	underscoreRun = regexp.MustCompile(`_+`)
)

// FilenameSuffix is the fixed tail every upload filename carries
func FilenameSuffix(miro string) string {
	return "_Wellcome_" + miro + ".jpg"
}

// CommonsFilename turns a catalogue title into a Commons-safe file name of
// the form <Title_With_Underscores>_Wellcome_<miro>.jpg
func CommonsFilename(title, miro string) string {
	name := filenamePunct.ReplaceAllString(title, " ")
	// any Unicode space, including NBSP and em-space, separates words
	name = strings.Join(strings.FieldsFunc(name, unicode.IsSpace), "_")
	name = strings.Trim(underscoreRun.ReplaceAllString(name, "_"), "_")

	suffix := FilenameSuffix(miro)
	maxLen := max(MaxFilenameLength-utf8.RuneCountInString(suffix), 0)
	if utf8.RuneCountInString(name) > maxLen {
		name = strings.TrimRight(truncateRunes(name, maxLen), "_")
	}

	return name + suffix
}

// truncateRunes cuts s to its first n characters
func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
