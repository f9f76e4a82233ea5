// internal/words/catalog.go
//
// Category catalog for the game engine.
//
// Responsibilities:
//   - Load categories from a YAML file, or fall back to the embedded default catalog.
//   - Normalize and deduplicate every word (uppercase, accent-free, A–Z only).
//   - Supply RandomWord, IsAllowed and lookups by slug.
//
// Catalog file format:
//
//	categories:
//	  - slug: programming
//	    name: Programming
//	    description: Languages, tools and jargon
//	    strict: false
//	    words: [golang, kernel, ...]
//	    allowed: [extra, guesses]
//
// Constraints:
//   • Words must be 3–12 letters after normalization; others are dropped.
//   • A strict category only accepts guesses from words ∪ allowed.
//   • Loading fails if no category ends up with words.

package words

import (
	"crypto/rand"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	MinWordLen = 3
	MaxWordLen = 12
)

//go:embed categories.yaml
var embeddedCatalog []byte

var ErrEmptyCatalog = errors.New("words: catalog has no playable categories")

// Category is one themed word list.
type Category struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Strict      bool   `json:"strict"`

	words   []string
	allowed map[string]struct{}
}

// Catalog is the set of playable categories, ordered by slug.
type Catalog struct {
	list   []*Category
	bySlug map[string]*Category
}

type rawCatalog struct {
	Categories []struct {
		Slug        string   `yaml:"slug"`
		Name        string   `yaml:"name"`
		Description string   `yaml:"description"`
		Strict      bool     `yaml:"strict"`
		Words       []string `yaml:"words"`
		Allowed     []string `yaml:"allowed"`
	} `yaml:"categories"`
}

// Load reads the catalog at path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(embeddedCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{bySlug: make(map[string]*Category)}
	for _, rc := range raw.Categories {
		slug := strings.ToLower(strings.TrimSpace(rc.Slug))
		if slug == "" {
			continue
		}
		cat, ok := c.bySlug[slug]
		if !ok {
			cat = &Category{Slug: slug, allowed: make(map[string]struct{})}
			c.bySlug[slug] = cat
			c.list = append(c.list, cat)
		}
		if rc.Name != "" {
			cat.Name = rc.Name
		}
		if rc.Description != "" {
			cat.Description = rc.Description
		}
		cat.Strict = cat.Strict || rc.Strict

		for _, w := range normalizeList(rc.Words) {
			if _, dup := cat.allowed[w]; !dup {
				cat.words = append(cat.words, w)
			}
			cat.allowed[w] = struct{}{}
		}
		for _, w := range normalizeList(rc.Allowed) {
			cat.allowed[w] = struct{}{}
		}
	}

	// Drop categories without answers.
	kept := c.list[:0]
	for _, cat := range c.list {
		if len(cat.words) == 0 {
			delete(c.bySlug, cat.Slug)
			continue
		}
		if cat.Name == "" {
			cat.Name = cat.Slug
		}
		kept = append(kept, cat)
	}
	c.list = kept
	sort.Slice(c.list, func(i, j int) bool { return c.list[i].Slug < c.list[j].Slug })

	if len(c.list) == 0 {
		return nil, ErrEmptyCatalog
	}
	return c, nil
}

// normalizeList keeps valid words only, normalized.
func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, w := range in {
		if n := Normalize(w); Valid(n) {
			out = append(out, n)
		}
	}
	return out
}

// Valid reports whether a normalized word can be a secret.
func Valid(w string) bool {
	n := len(w)
	return n >= MinWordLen && n <= MaxWordLen && IsAlpha(w)
}

// Categories returns all categories ordered by slug.
func (c *Catalog) Categories() []*Category { return c.list }

// Stats sums answer and allowed-guess counts over every category.
func (c *Catalog) Stats() (answers int, allowed int) {
	for _, cat := range c.list {
		a, g := cat.Stats()
		answers += a
		allowed += g
	}
	return answers, allowed
}

// Get looks up a category by slug (case-insensitive).
func (c *Catalog) Get(slug string) (*Category, bool) {
	cat, ok := c.bySlug[strings.ToLower(strings.TrimSpace(slug))]
	return cat, ok
}

// Words returns the answer list in file order.
func (c *Category) Words() []string { return c.words }

// WordAt returns the answer at i modulo the list length.
func (c *Category) WordAt(i int) string {
	n := len(c.words)
	return c.words[(i%n+n)%n]
}

// RandomWord returns a cryptographically random answer.
func (c *Category) RandomWord() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(c.words))))
	if err != nil {
		return c.words[0]
	}
	return c.words[n.Int64()]
}

// IsAllowed reports whether w may be guessed in this category.
// Non-strict categories accept any well-formed word.
func (c *Category) IsAllowed(w string) bool {
	w = Normalize(w)
	if !c.Strict {
		return IsAlpha(w)
	}
	_, ok := c.allowed[w]
	return ok
}

// Lengths returns the shortest and longest answer length.
func (c *Category) Lengths() (shortest, longest int) {
	for i, w := range c.words {
		n := len(w)
		if i == 0 || n < shortest {
			shortest = n
		}
		if n > longest {
			longest = n
		}
	}
	return shortest, longest
}

// Stats returns counts of (answers, allowed guesses).
func (c *Category) Stats() (answers int, allowed int) {
	return len(c.words), len(c.allowed)
}
