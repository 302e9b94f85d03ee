package bundler

import (
	"strings"

	"github.com/dchest/jsmin"
)

// JSMin removes comments and insignificant whitespace from JavaScript
// without renaming anything. Line breaks that may end a statement are kept.
func JSMin(src string) (string, error) {
	out, err := jsmin.Minify([]byte(src))
	if err != nil {
		return "", err
	}
	return strings.TrimLeft(string(out), "\n"), nil
}
