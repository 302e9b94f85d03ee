package bundler

import (
	"bytes"
	"errors"
	"testing"
)

func TestReference_HTML(t *testing.T) {
	testCases := []struct {
		name string
		ref  Reference
		want string
	}{
		{
			name: "script",
			ref:  Reference{Type: TypeScript, Href: "/bundles/abc.js"},
			want: `<script src="/bundles/abc.js" type="text/javascript"></script>`,
		},
		{
			name: "style",
			ref:  Reference{Type: TypeStyle, Href: "/bundles/abc.css"},
			want: `<link href="/bundles/abc.css" type="text/css" rel="stylesheet"/>`,
		},
		{
			name: "href is escaped",
			ref:  Reference{Type: TypeScript, Href: `/js/a"b&c.js`},
			want: `<script src="/js/a&#34;b&amp;c.js" type="text/javascript"></script>`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.ref.HTML()
			if err != nil {
				t.Fatalf("HTML() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("HTML() = %s, want %s", got, tc.want)
			}
		})
	}

	t.Run("unsupported type", func(t *testing.T) {
		_, err := Reference{Type: "html", Href: "/a.html"}.HTML()
		if !errors.Is(err, ErrUnsupportedType) {
			t.Fatalf("HTML() error = %v, want ErrUnsupportedType", err)
		}
	})
}

func TestWriteTags(t *testing.T) {
	var buf bytes.Buffer
	refs := []Reference{
		{Type: TypeStyle, Href: "/css/a.css"},
		{Type: TypeStyle, Href: "/css/b.css"},
	}
	if err := writeTags(&buf, refs); err != nil {
		t.Fatalf("writeTags() error = %v", err)
	}

	want := `<link href="/css/a.css" type="text/css" rel="stylesheet"/>` + "\n" +
		`<link href="/css/b.css" type="text/css" rel="stylesheet"/>` + "\n"
	if buf.String() != want {
		t.Fatalf("writeTags() = %q, want %q", buf.String(), want)
	}
}
