package httpapp

import (
	"embed"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/favicon.svg
var faviconSVG []byte

type Templates struct {
	Home  *template.Template
	Admin *template.Template
}

// imageSrc lets inline data URIs and http(s) or site-relative links through
// to <img src>. Anything else renders as an empty source.
func imageSrc(ref *string) template.URL {
	if ref == nil {
		return ""
	}
	v := *ref
	switch {
	case strings.HasPrefix(v, "data:image/"),
		strings.HasPrefix(v, "https://"),
		strings.HasPrefix(v, "http://"),
		strings.HasPrefix(v, "/") && !strings.HasPrefix(v, "//"):
		return template.URL(v)
	}
	return ""
}

func loadTemplates() (*Templates, error) {
	funcs := template.FuncMap{
		"formatTime": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
		"truncate": func(s string, n int) string {
			if utf8.RuneCountInString(s) <= n {
				return s
			}
			return string([]rune(s)[:n])
		},
		"imageSrc": imageSrc,
		"mib":      func(n int64) int64 { return n >> 20 },
	}

	layoutContent, err := templateFS.ReadFile("templates/layout.html")
	if err != nil {
		return nil, err
	}

	makePage := func(pageName string) (*template.Template, error) {
		pageContent, err := templateFS.ReadFile("templates/" + pageName + ".html")
		if err != nil {
			return nil, err
		}
		t, err := template.New("layout").Funcs(funcs).Parse(string(layoutContent))
		if err != nil {
			return nil, err
		}
		return t.Parse(string(pageContent))
	}

	home, err := makePage("home")
	if err != nil {
		return nil, err
	}
	admin, err := makePage("admin")
	if err != nil {
		return nil, err
	}
	return &Templates{Home: home, Admin: admin}, nil
}
