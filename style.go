package bundler

import (
	"regexp"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
)

var (
	styleComment    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	styleWhitespace = regexp.MustCompile(`\s+`)
	styleMarks      = regexp.MustCompile(`\s*([{},;:])\s*`)
)

// StripStyle reduces a stylesheet textually: block comments are removed,
// whitespace runs collapse to one space, whitespace around { } , ; : is
// dropped and the result is trimmed. It never fails and is idempotent.
func StripStyle(src string) (string, error) {
	out := src
	// Removing one comment can expose another, as in "//*a*/*b*/".
	for {
		next := styleComment.ReplaceAllString(out, "")
		if next == out {
			break
		}
		out = next
	}
	out = styleWhitespace.ReplaceAllString(out, " ")
	out = styleMarks.ReplaceAllString(out, "$1")
	return strings.TrimSpace(out), nil
}

const (
	mediaJS  = "application/javascript"
	mediaCSS = "text/css"
)

// tdewolffMinifier runs one media type through a tdewolff minify.M.
type tdewolffMinifier struct {
	m         *minify.M
	mediaType string
}

func (t tdewolffMinifier) Minify(src string) (string, error) {
	return t.m.String(t.mediaType, src)
}

// newPacker returns the aggressive script strategy: local names are
// shortened and the syntax tree is compacted.
func newPacker() Minifier {
	m := minify.New()
	m.Add(mediaJS, &js.Minifier{})
	return tdewolffMinifier{m: m, mediaType: mediaJS}
}

func newCSSMin() Minifier {
	m := minify.New()
	m.Add(mediaCSS, &css.Minifier{})
	return tdewolffMinifier{m: m, mediaType: mediaCSS}
}
