// Package render turns a CV document into a standalone themed HTML page.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"sort"
	"strings"

	"jsoncv/internal/cv"
)

//go:embed themes/*.html
var themesFS embed.FS

const baseTemplate = "base"

var ErrUnknownTheme = errors.New("unknown theme")

var themes = mustParseThemes()

func mustParseThemes() map[string]*template.Template {
	entries, err := fs.ReadDir(themesFS, "themes")
	if err != nil {
		panic(err)
	}
	out := make(map[string]*template.Template)
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".html")
		if name == baseTemplate {
			continue
		}
		out[name] = template.Must(template.New(name).Funcs(funcs).ParseFS(themesFS,
			"themes/"+baseTemplate+".html", "themes/"+e.Name()))
	}
	return out
}

// ThemeNames lists the bundled themes.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PageMeta fills the page head.
type PageMeta struct {
	Title       string
	Description string
}

// Data is what the theme templates see.
type Data struct {
	CV           cv.Document
	Theme        string
	PrimaryColor string
	SiteURL      string
	IsProduction bool
	Meta         PageMeta
}

// Renderer renders documents with the bundled themes.
type Renderer struct {
	SiteURL    string
	Production bool
}

func New(siteURL string) *Renderer {
	return &Renderer{SiteURL: siteURL}
}

// NewData builds template data. Page meta is taken before hidden sections are
// removed.
func (r *Renderer) NewData(doc cv.Document, theme, primaryColor string) Data {
	return Data{
		CV:           Visible(doc),
		Theme:        theme,
		PrimaryColor: primaryColor,
		SiteURL:      r.SiteURL,
		IsProduction: r.Production,
		Meta: PageMeta{
			Title:       doc.Basics.Name,
			Description: strings.Replace(doc.Basics.Summary, "\n", " ", 1),
		},
	}
}

// Render writes the page for data.
func Render(w io.Writer, data Data) error {
	tpl, ok := themes[data.Theme]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTheme, data.Theme)
	}
	return tpl.ExecuteTemplate(w, data.Theme+".html", data)
}

// RenderHTML renders doc with theme and primary color.
func (r *Renderer) RenderHTML(doc cv.Document, theme, primaryColor string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, r.NewData(doc, theme, primaryColor)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Visible returns a copy of doc with hidden sections emptied.
func Visible(doc cv.Document) cv.Document {
	d := doc.Clone()
	for _, section := range d.Meta.HiddenSections {
		switch section {
		case "basics":
			d.Basics = cv.Basics{}
		case "summary":
			d.Basics.Summary = ""
		case "work":
			d.Work = nil
		case "volunteer":
			d.Volunteer = nil
		case "education":
			d.Education = nil
		case "awards":
			d.Awards = nil
		case "certificates":
			d.Certificates = nil
		case "publications":
			d.Publications = nil
		case "skills":
			d.Skills = nil
		case "languages":
			d.Languages = nil
		case "interests":
			d.Interests = nil
		case "references":
			d.References = nil
		case "projects":
			d.Projects = nil
		case "sideProjects":
			d.SideProjects = nil
		case "meta":
			d.Meta = cv.Meta{HiddenSections: d.Meta.HiddenSections}
		}
	}
	return d
}
