// Package templates embeds the server rendered dashboard pages and their
// static assets.
package templates

import (
	"embed"
	"html/template"
	"io/fs"
	"strconv"
	"time"

	"github.com/yeremiapane/campus-ems/utils"
)

//go:embed *.html
var pages embed.FS

//go:embed static
var static embed.FS

var funcs = template.FuncMap{
	"price": utils.FormatPrice,
	"date": func(t time.Time) string {
		return t.Format("Mon, 02 Jan 2006 15:04")
	},
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
	"seats": func(left int64) string {
		if left < 0 {
			return "Unlimited"
		}
		return strconv.FormatInt(left, 10)
	},
}

// Load parses every page. Pages are addressed by file name, e.g. "notifications.html".
func Load() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(pages, "*.html")
}

// Static returns the asset tree served under /static.
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
