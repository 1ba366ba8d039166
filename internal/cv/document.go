// Package cv holds the CV document model shared by the editor, the renderer
// and the build pipeline.
package cv

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Location struct {
	Address     string `json:"address,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	City        string `json:"city,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
	Region      string `json:"region,omitempty"`
}

type Profile struct {
	Network  string `json:"network,omitempty"`
	Username string `json:"username,omitempty"`
	URL      string `json:"url,omitempty"`
}

type Basics struct {
	Name     string    `json:"name,omitempty"`
	Label    string    `json:"label,omitempty"`
	Email    string    `json:"email,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	URL      string    `json:"url,omitempty"`
	Summary  string    `json:"summary,omitempty"`
	Image    string    `json:"image,omitempty"`
	Location *Location `json:"location,omitempty"`
	Profiles []Profile `json:"profiles,omitempty"`
}

type Work struct {
	Name        string   `json:"name,omitempty"`
	Location    string   `json:"location,omitempty"`
	Description string   `json:"description,omitempty"`
	Position    string   `json:"position,omitempty"`
	URL         string   `json:"url,omitempty"`
	StartDate   string   `json:"startDate,omitempty"`
	EndDate     string   `json:"endDate,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
}

type Volunteer struct {
	Organization string   `json:"organization,omitempty"`
	Position     string   `json:"position,omitempty"`
	URL          string   `json:"url,omitempty"`
	StartDate    string   `json:"startDate,omitempty"`
	EndDate      string   `json:"endDate,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	Highlights   []string `json:"highlights,omitempty"`
}

type Education struct {
	Institution string   `json:"institution,omitempty"`
	URL         string   `json:"url,omitempty"`
	Area        string   `json:"area,omitempty"`
	StudyType   string   `json:"studyType,omitempty"`
	StartDate   string   `json:"startDate,omitempty"`
	EndDate     string   `json:"endDate,omitempty"`
	Score       string   `json:"score,omitempty"`
	Courses     []string `json:"courses,omitempty"`
}

type Award struct {
	Title   string `json:"title,omitempty"`
	Date    string `json:"date,omitempty"`
	Awarder string `json:"awarder,omitempty"`
	Summary string `json:"summary,omitempty"`
}

type Certificate struct {
	Name   string `json:"name,omitempty"`
	Date   string `json:"date,omitempty"`
	URL    string `json:"url,omitempty"`
	Issuer string `json:"issuer,omitempty"`
}

type Publication struct {
	Name        string `json:"name,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	ReleaseDate string `json:"releaseDate,omitempty"`
	URL         string `json:"url,omitempty"`
	Summary     string `json:"summary,omitempty"`
}

type Skill struct {
	Name     string   `json:"name,omitempty"`
	Level    string   `json:"level,omitempty"`
	Summary  string   `json:"summary,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

type Language struct {
	Language string `json:"language,omitempty"`
	Fluency  string `json:"fluency,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

type Interest struct {
	Name     string   `json:"name,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

type Reference struct {
	Name      string `json:"name,omitempty"`
	Reference string `json:"reference,omitempty"`
}

type Project struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	StartDate   string   `json:"startDate,omitempty"`
	EndDate     string   `json:"endDate,omitempty"`
	URL         string   `json:"url,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Entity      string   `json:"entity,omitempty"`
	Type        string   `json:"type,omitempty"`
}

// Document is a CV. Top-level list sections are always serialized, as empty
// arrays when there are no entries, so the form keeps a node for each of them.
type Document struct {
	Basics       Basics        `json:"basics"`
	Work         []Work        `json:"work"`
	Volunteer    []Volunteer   `json:"volunteer"`
	Education    []Education   `json:"education"`
	Awards       []Award       `json:"awards"`
	Certificates []Certificate `json:"certificates"`
	Publications []Publication `json:"publications"`
	Skills       []Skill       `json:"skills"`
	Languages    []Language    `json:"languages"`
	Interests    []Interest    `json:"interests"`
	References   []Reference   `json:"references"`
	Projects     []Project     `json:"projects"`
	SideProjects []Project     `json:"sideProjects"`
	Meta         Meta          `json:"meta"`
}

// Normalize replaces nil top-level lists with empty ones.
func (d *Document) Normalize() {
	if d.Work == nil {
		d.Work = []Work{}
	}
	if d.Volunteer == nil {
		d.Volunteer = []Volunteer{}
	}
	if d.Education == nil {
		d.Education = []Education{}
	}
	if d.Awards == nil {
		d.Awards = []Award{}
	}
	if d.Certificates == nil {
		d.Certificates = []Certificate{}
	}
	if d.Publications == nil {
		d.Publications = []Publication{}
	}
	if d.Skills == nil {
		d.Skills = []Skill{}
	}
	if d.Languages == nil {
		d.Languages = []Language{}
	}
	if d.Interests == nil {
		d.Interests = []Interest{}
	}
	if d.References == nil {
		d.References = []Reference{}
	}
	if d.Projects == nil {
		d.Projects = []Project{}
	}
	if d.SideProjects == nil {
		d.SideProjects = []Project{}
	}
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	b, err := json.Marshal(d)
	if err != nil {
		return d
	}
	out, err := Parse(b)
	if err != nil {
		return d
	}
	return out
}

// ArrayLengths reports the number of entries per list section, keyed by the
// JSON name.
func (d Document) ArrayLengths() map[string]int {
	return map[string]int{
		"basics.profiles": len(d.Basics.Profiles),
		"work":            len(d.Work),
		"volunteer":       len(d.Volunteer),
		"education":       len(d.Education),
		"awards":          len(d.Awards),
		"certificates":    len(d.Certificates),
		"publications":    len(d.Publications),
		"skills":          len(d.Skills),
		"languages":       len(d.Languages),
		"interests":       len(d.Interests),
		"references":      len(d.References),
		"projects":        len(d.Projects),
		"sideProjects":    len(d.SideProjects),
	}
}

// Parse decodes a CV document. Properties the model does not know are
// dropped, except inside meta.
func Parse(data []byte) (Document, error) {
	var doc Document
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, fmt.Errorf("empty document")
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	doc.Normalize()
	return doc, nil
}

// FromValue decodes a generic JSON value, e.g. a schema skeleton.
func FromValue(v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Document{}, err
	}
	return Parse(b)
}

// MarshalIndent serializes with a two-space indent.
func MarshalIndent(d Document) ([]byte, error) {
	d.Normalize()
	return json.MarshalIndent(d, "", "  ")
}
