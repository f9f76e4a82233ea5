// internal/daily/service.go
//
// Service resolves the daily secret for a category.
//
// Resolution order for (day, category):
//  1. The word already stored for that day.
//  2. A word from the Generator (if configured), validated against the category's
//     length range, the A–Z alphabet and the recent history.
//  3. The catalog word at WordIndex(day, salt, category).
//
// The choice is stored with insert-ignore and read back, so concurrent servers
// sharing a database always agree on the word.

package daily

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/robalobadob/geekdle/internal/words"
)

var ErrUnknownCategory = errors.New("unknown category")

// recentWindow is how many previous daily words the generator must avoid.
const recentWindow = 30

type Service struct {
	store   *Store
	catalog *words.Catalog
	gen     Generator
	salt    string
	timeout time.Duration
	group   singleflight.Group
}

// Option customizes a Service.
type Option func(*Service)

// WithGenerator enables generated daily words; nil keeps catalog-only selection.
func WithGenerator(g Generator) Option { return func(s *Service) { s.gen = g } }

// WithTimeout bounds each generator call.
func WithTimeout(d time.Duration) Option { return func(s *Service) { s.timeout = d } }

func NewService(store *Store, catalog *words.Catalog, salt string, opts ...Option) *Service {
	s := &Service{store: store, catalog: catalog, salt: salt, timeout: 8 * time.Second}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Store exposes the underlying result store.
func (s *Service) Store() *Store { return s.store }

// WordFor returns the secret for category on date's UTC day.
func (s *Service) WordFor(ctx context.Context, date time.Time, slug string) (Word, error) {
	cat, ok := s.catalog.Get(slug)
	if !ok {
		return Word{}, ErrUnknownCategory
	}
	day := DateKey(date)

	if w, ok, err := s.store.Word(ctx, day, cat.Slug); err != nil {
		return Word{}, fmt.Errorf("load daily word: %w", err)
	} else if ok {
		return w, nil
	}

	v, err, _ := s.group.Do(day+"|"+cat.Slug, func() (any, error) {
		w := s.choose(ctx, date, cat)
		if err := s.store.InsertWord(ctx, w); err != nil {
			return Word{}, fmt.Errorf("store daily word: %w", err)
		}
		stored, ok, err := s.store.Word(ctx, day, cat.Slug)
		if err != nil {
			return Word{}, fmt.Errorf("reload daily word: %w", err)
		}
		if !ok {
			return w, nil
		}
		return stored, nil
	})
	if err != nil {
		return Word{}, err
	}
	return v.(Word), nil
}

// choose picks a new word, preferring the generator and falling back to the catalog.
func (s *Service) choose(ctx context.Context, date time.Time, cat *words.Category) Word {
	day := DateKey(date)
	fallback := Word{
		Day:      day,
		Category: cat.Slug,
		Word:     cat.WordAt(WordIndex(date, s.salt, cat.Slug, len(cat.Words()))),
		Source:   SourceCatalog,
	}
	if s.gen == nil {
		return fallback
	}

	recent, err := s.store.RecentWords(ctx, cat.Slug, recentWindow)
	if err != nil {
		log.Warn().Err(err).Str("category", cat.Slug).Msg("load recent daily words")
	}
	minLen, maxLen := cat.Lengths()
	if minLen < 4 {
		minLen = 4
	}
	if maxLen < minLen {
		maxLen = minLen
	}

	gctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	raw, err := s.gen.Generate(gctx, Request{
		Category:    cat.Name,
		Description: cat.Description,
		MinLen:      minLen,
		MaxLen:      maxLen,
		Avoid:       recent,
	})
	if err != nil {
		log.Warn().Err(err).Str("category", cat.Slug).Msg("daily word generation failed; using catalog")
		return fallback
	}

	w := words.Normalize(raw)
	if !words.Valid(w) || len(w) < minLen || len(w) > maxLen || contains(recent, w) {
		log.Warn().Str("category", cat.Slug).Str("word", w).Msg("generated daily word rejected; using catalog")
		return fallback
	}
	log.Info().Str("category", cat.Slug).Str("day", day).Msg("generated daily word")
	return Word{Day: day, Category: cat.Slug, Word: w, Source: SourceGenerated}
}

func contains(list []string, w string) bool {
	for _, x := range list {
		if x == w {
			return true
		}
	}
	return false
}
