package bundler

import (
	"fmt"
	"html"
	"io"
)

// Reference points the presentation layer at something to include: a
// bundle, or a single member when bundling is disabled.
type Reference struct {
	Type Type
	Href string
}

// HTML renders the reference as a script or stylesheet tag.
// Types without an output form return ErrUnsupportedType.
func (r Reference) HTML() (string, error) {
	href := html.EscapeString(r.Href)
	switch r.Type {
	case TypeScript:
		return fmt.Sprintf(`<script src="%s" type="text/javascript"></script>`, href), nil
	case TypeStyle:
		return fmt.Sprintf(`<link href="%s" type="text/css" rel="stylesheet"/>`, href), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, r.Type)
	}
}

// writeTags renders refs one per line.
func writeTags(w io.Writer, refs []Reference) error {
	for _, ref := range refs {
		tag, err := ref.HTML()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, tag); err != nil {
			return err
		}
	}
	return nil
}
