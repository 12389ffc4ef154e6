package server

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/board"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/feedback"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/portfolio"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var toneClasses = map[portfolio.Tone]string{
	portfolio.ToneOrange: "bg-orange-100 text-orange-800 border-orange-200",
	portfolio.ToneBlue:   "bg-blue-100 text-blue-800 border-blue-200",
	portfolio.ToneYellow: "bg-yellow-100 text-yellow-800 border-yellow-200",
	portfolio.ToneCyan:   "bg-cyan-100 text-cyan-800 border-cyan-200",
	portfolio.TonePurple: "bg-purple-100 text-purple-800 border-purple-200",
	portfolio.ToneIndigo: "bg-indigo-100 text-indigo-800 border-indigo-200",
	portfolio.ToneGray:   "bg-gray-100 text-gray-800 border-gray-200",
	portfolio.ToneRed:    "bg-red-100 text-red-800 border-red-200",
}

func toneClass(t portfolio.Tone) string {
	if c, ok := toneClasses[t]; ok {
		return c
	}
	return toneClasses[portfolio.ToneGray]
}

var templateFuncs = template.FuncMap{
	"formatDate": feedback.FormatDate,
	"stars": func(rating int) string {
		return board.RenderStars(rating).String()
	},
	"inc":       func(i int) int { return i + 1 },
	"toneClass": toneClass,
}

// parseTemplates loads every page and fragment. Fragments are addressed by
// their {{define}} name, pages by file name.
func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
}

func staticFiles() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
