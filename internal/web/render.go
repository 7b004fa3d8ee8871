package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/gin-contrib/multitemplate"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// FuncMap holds the helpers available to every page
var FuncMap = template.FuncMap{
	"markdown": RenderMarkdown,
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"derefInt": func(i *int) string {
		if i == nil {
			return ""
		}
		return fmt.Sprint(*i)
	},
	"add": func(a, b int) int {
		return a + b
	},
	"sub": func(a, b int) int {
		return a - b
	},
	"date": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
	"rating": func(avg float64) string {
		return fmt.Sprintf("%.1f", avg)
	},
	"isFavorite": func(set map[uint]struct{}, id uint) bool {
		_, ok := set[id]
		return ok
	},
	"seq": func(from, to int) []int {
		var out []int
		for i := from; i <= to; i++ {
			out = append(out, i)
		}
		return out
	},
}

// LoadTemplates builds one renderer entry per page, each combined with the
// shared layout. A page named "recipes/list.html" comes from
// templates/recipes_list.html.
func LoadTemplates() (multitemplate.Renderer, error) {
	r := multitemplate.NewRenderer()

	layout, err := templateFS.ReadFile(layoutFile)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}

	pages, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	for _, page := range pages {
		if page == layoutFile {
			continue
		}
		body, err := templateFS.ReadFile(page)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", page, err)
		}
		name := strings.Replace(path.Base(page), "_", "/", 1)
		r.AddFromStringsFuncs(name, FuncMap, string(layout), string(body))
	}
	return r, nil
}
