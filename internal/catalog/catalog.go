// Package catalog holds the static questionnaire: an ordered list of
// questions grouped into named categories. It is loaded once from the
// embedded seed and never mutated afterwards.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var seed []byte

// Question is one catalog entry. ID is what profiles persist.
type Question struct {
	ID       string
	Text     string
	Category string
}

type seedFile struct {
	Categories []struct {
		Name      string `yaml:"name"`
		Code      string `yaml:"code"`
		Questions []struct {
			ID   string `yaml:"id"`
			Text string `yaml:"text"`
		} `yaml:"questions"`
	} `yaml:"categories"`
}

// Catalog is read-only after Load and safe for concurrent use.
type Catalog struct {
	questions  []Question
	categories []string
	byID       map[string]Question
	byCategory map[string][]Question
}

// Load parses a YAML seed.
// Duplicate ids, empty categories and ids outside their category code are rejected.
func Load(data []byte) (*Catalog, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		byID:       make(map[string]Question),
		byCategory: make(map[string][]Question),
	}
	for _, cat := range f.Categories {
		if cat.Name == "" || len(cat.Questions) == 0 {
			return nil, fmt.Errorf("category %q has no questions", cat.Name)
		}
		if _, dup := c.byCategory[cat.Name]; dup {
			return nil, fmt.Errorf("duplicate category %q", cat.Name)
		}
		c.categories = append(c.categories, cat.Name)

		for _, q := range cat.Questions {
			if !strings.HasPrefix(q.ID, cat.Code+"_") {
				return nil, fmt.Errorf("question %q does not belong to category code %q", q.ID, cat.Code)
			}
			if _, dup := c.byID[q.ID]; dup {
				return nil, fmt.Errorf("duplicate question id %q", q.ID)
			}
			question := Question{ID: q.ID, Text: strings.TrimSpace(q.Text), Category: cat.Name}
			c.questions = append(c.questions, question)
			c.byID[q.ID] = question
			c.byCategory[cat.Name] = append(c.byCategory[cat.Name], question)
		}
	}
	if len(c.questions) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	return c, nil
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := Load(seed)
	if err != nil {
		panic(err)
	}
	return c
})

// Default returns the catalog built from the embedded seed.
func Default() *Catalog { return defaultCatalog() }

// Categories returns category names in their fixed order.
func (c *Catalog) Categories() []string {
	return append([]string(nil), c.categories...)
}

// Category returns the category name at idx.
func (c *Catalog) Category(idx int) (string, bool) {
	if idx < 0 || idx >= len(c.categories) {
		return "", false
	}
	return c.categories[idx], true
}

// CategoryIndex returns the position of a category name.
func (c *Catalog) CategoryIndex(name string) (int, bool) {
	for i, n := range c.categories {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// InCategory returns the questions of a category in seed order.
func (c *Catalog) InCategory(name string) []Question {
	return append([]Question(nil), c.byCategory[name]...)
}

// Lookup finds a question by id.
func (c *Catalog) Lookup(id string) (Question, bool) {
	q, ok := c.byID[id]
	return q, ok
}

// IDs returns every question id in seed order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.questions))
	for _, q := range c.questions {
		ids = append(ids, q.ID)
	}
	return ids
}

// Len is the number of questions.
func (c *Catalog) Len() int { return len(c.questions) }

// Texts resolves ids to question texts, skipping unknown ids.
func (c *Catalog) Texts(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if q, ok := c.byID[id]; ok {
			out = append(out, q.Text)
		}
	}
	return out
}

// Unknown returns the ids that are not in the catalog.
func (c *Catalog) Unknown(ids []string) []string {
	var out []string
	for _, id := range ids {
		if _, ok := c.byID[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
