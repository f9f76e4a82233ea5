package daily

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/robalobadob/geekdle/internal/database"
	"github.com/robalobadob/geekdle/internal/words"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "daily.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))
	return db
}

const testCatalog = `
categories:
  - slug: gaming
    name: Gaming
    description: video games
    words: [zelda, mario, pixel, quest, arcade, sprite]
`

func testCatalogT(t *testing.T) *words.Catalog {
	t.Helper()
	c, err := words.Parse([]byte(testCatalog))
	require.NoError(t, err)
	return c
}

type fakeGenerator struct {
	word  string
	err   error
	calls int
	last  Request
}

func (f *fakeGenerator) Generate(_ context.Context, req Request) (string, error) {
	f.calls++
	f.last = req
	return f.word, f.err
}

var day = time.Date(2026, 10, 14, 18, 30, 0, 0, time.UTC)

func TestDateKey(t *testing.T) {
	late := time.Date(2026, 10, 14, 23, 30, 0, 0, time.FixedZone("x", -3*3600))
	assert.Equal(t, "2026-10-15", DateKey(late))

	parsed, err := ParseDateKey("2026-10-14")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-14", DateKey(parsed))

	_, err = ParseDateKey("14/10/2026")
	assert.Error(t, err)
}

func TestWordIndexDeterministic(t *testing.T) {
	a := WordIndex(day, "salt", "gaming", 100)
	assert.Equal(t, a, WordIndex(day.Add(3*time.Hour), "salt", "gaming", 100), "same UTC day, same index")
	assert.GreaterOrEqual(t, a, 0)
	assert.Less(t, a, 100)
	assert.Equal(t, 0, WordIndex(day, "salt", "gaming", 0))

	// Over a month the index should not be constant.
	seen := map[int]bool{}
	for i := 0; i < 30; i++ {
		seen[WordIndex(day.AddDate(0, 0, i), "salt", "gaming", 100)] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestServiceCatalogOnly(t *testing.T) {
	ctx := context.Background()
	cat := testCatalogT(t)
	svc := NewService(NewStore(testDB(t)), cat, "salt")

	w, err := svc.WordFor(ctx, day, "gaming")
	require.NoError(t, err)
	gaming, _ := cat.Get("gaming")
	assert.Equal(t, gaming.WordAt(WordIndex(day, "salt", "gaming", len(gaming.Words()))), w.Word)
	assert.Equal(t, SourceCatalog, w.Source)
	assert.Equal(t, "2026-10-14", w.Day)

	again, err := svc.WordFor(ctx, day, "GAMING")
	require.NoError(t, err)
	assert.Equal(t, w, again)

	_, err = svc.WordFor(ctx, day, "cooking")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestServiceGenerator(t *testing.T) {
	tests := []struct {
		name       string
		gen        *fakeGenerator
		wantSource string
		wantWord   string
	}{
		{"accepted", &fakeGenerator{word: "Tétris"}, SourceGenerated, "TETRIS"},
		{"error falls back", &fakeGenerator{err: errors.New("quota")}, SourceCatalog, ""},
		{"too short falls back", &fakeGenerator{word: "GO"}, SourceCatalog, ""},
		{"too long falls back", &fakeGenerator{word: "SUPERCALIFRAGILISTIC"}, SourceCatalog, ""},
		{"non letters fall back", &fakeGenerator{word: "R2D2"}, SourceCatalog, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewService(NewStore(testDB(t)), testCatalogT(t), "salt", WithGenerator(tt.gen))

			w, err := svc.WordFor(ctx, day, "gaming")
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, w.Source)
			if tt.wantWord != "" {
				assert.Equal(t, tt.wantWord, w.Word)
			}
			assert.Equal(t, 1, tt.gen.calls)
			assert.Equal(t, "Gaming", tt.gen.last.Category)
			assert.Equal(t, 5, tt.gen.last.MinLen)
			assert.Equal(t, 6, tt.gen.last.MaxLen)

			// Stored: the generator is not asked again for the same day.
			_, err = svc.WordFor(ctx, day, "gaming")
			require.NoError(t, err)
			assert.Equal(t, 1, tt.gen.calls)
		})
	}
}

func TestServiceAvoidsRecentWords(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{word: "BOWSER"}
	svc := NewService(NewStore(testDB(t)), testCatalogT(t), "salt", WithGenerator(gen))

	first, err := svc.WordFor(ctx, day, "gaming")
	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, first.Source)

	second, err := svc.WordFor(ctx, day.AddDate(0, 0, 1), "gaming")
	require.NoError(t, err)
	assert.Equal(t, SourceCatalog, second.Source, "repeat of a recent word is rejected")
	assert.Contains(t, gen.last.Avoid, "BOWSER")
}

func TestStoreResultsAndLeaderboard(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	st := NewStore(db)

	_, err := db.ExecContext(ctx, `INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		"u1", "ada", "x", database.Timestamp(time.Now()))
	require.NoError(t, err)

	results := []Result{
		{PlayerID: "u1", Day: "2026-10-14", Category: "gaming", Guesses: 3, ElapsedMs: 9000, Won: true},
		{PlayerID: "anon-1", Day: "2026-10-14", Category: "gaming", Guesses: 3, ElapsedMs: 4000, Won: true},
		{PlayerID: "anon-2", Day: "2026-10-14", Category: "gaming", Guesses: 6, ElapsedMs: 1000, Won: false},
		{PlayerID: "anon-3", Day: "2026-10-14", Category: "gaming", Guesses: 2, ElapsedMs: 20000, Won: true},
		{PlayerID: "anon-4", Day: "2026-10-14", Category: "science", Guesses: 1, ElapsedMs: 100, Won: true},
	}
	for _, r := range results {
		require.NoError(t, st.InsertResult(ctx, r))
	}
	// Duplicate is ignored.
	first, err := st.Record(ctx, Result{PlayerID: "u1", Day: "2026-10-14", Category: "gaming", Guesses: 1, Won: true})
	require.NoError(t, err)
	assert.False(t, first)
	first, err = st.Record(ctx, Result{PlayerID: "u1", Day: "2026-10-15", Category: "gaming", Guesses: 1, Won: true})
	require.NoError(t, err)
	assert.True(t, first)

	played, err := st.AlreadyPlayed(ctx, "u1", "2026-10-14", "gaming")
	require.NoError(t, err)
	assert.True(t, played)
	played, err = st.AlreadyPlayed(ctx, "u1", "2026-10-14", "science")
	require.NoError(t, err)
	assert.False(t, played)

	lb, err := st.Leaderboard(ctx, "2026-10-14", "gaming", 10)
	require.NoError(t, err)
	require.Len(t, lb, 4)
	ids := make([]string, len(lb))
	for i, r := range lb {
		ids[i] = r.PlayerID
	}
	assert.Equal(t, []string{"anon-3", "anon-1", "u1", "anon-2"}, ids)
	assert.Equal(t, "ada", lb[2].Username)
	assert.Equal(t, 3, lb[2].Guesses)
	assert.False(t, lb[3].Won)
}

func TestClaimResults(t *testing.T) {
	ctx := context.Background()
	st := NewStore(testDB(t))

	require.NoError(t, st.InsertResult(ctx, Result{PlayerID: "anon", Day: "2026-10-14", Category: "gaming", Guesses: 2, Won: true}))
	require.NoError(t, st.InsertResult(ctx, Result{PlayerID: "anon", Day: "2026-10-14", Category: "science", Guesses: 4, Won: true}))
	require.NoError(t, st.InsertResult(ctx, Result{PlayerID: "user", Day: "2026-10-14", Category: "science", Guesses: 5, Won: true}))

	require.NoError(t, st.ClaimResults(ctx, "anon", "user"))

	played, err := st.AlreadyPlayed(ctx, "user", "2026-10-14", "gaming")
	require.NoError(t, err)
	assert.True(t, played)

	// The clashing science result stays with the guest id.
	played, err = st.AlreadyPlayed(ctx, "anon", "2026-10-14", "science")
	require.NoError(t, err)
	assert.True(t, played)
}

func TestWordsOn(t *testing.T) {
	ctx := context.Background()
	st := NewStore(testDB(t))
	require.NoError(t, st.InsertWord(ctx, Word{Day: "2026-10-14", Category: "science", Word: "QUARK", Source: SourceCatalog}))
	require.NoError(t, st.InsertWord(ctx, Word{Day: "2026-10-14", Category: "gaming", Word: "ZELDA", Source: SourceGenerated}))
	require.NoError(t, st.InsertWord(ctx, Word{Day: "2026-10-14", Category: "gaming", Word: "MARIO", Source: SourceCatalog}))

	got, err := st.WordsOn(ctx, "2026-10-14")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "gaming", got[0].Category)
	assert.Equal(t, "ZELDA", got[0].Word, "first insert wins")
}

func TestFirstWord(t *testing.T) {
	tests := map[string]string{
		"Kernel":            "KERNEL",
		"**Kernel**.\n":     "KERNEL",
		"  compilér, maybe": "COMPILER",
		"42":                "",
		"":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, firstWord(in), in)
	}
}

func TestPrompt(t *testing.T) {
	p := prompt(Request{Category: "Gaming", Description: "video games", MinLen: 5, MaxLen: 7, Avoid: []string{"ZELDA", "MARIO"}})
	assert.Contains(t, p, `"Gaming"`)
	assert.Contains(t, p, "(video games)")
	assert.Contains(t, p, "between 5 and 7 letters")
	assert.True(t, strings.Contains(p, "ZELDA, MARIO"))
}

type fakeModels struct {
	reply string
	err   error
	model string
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.reply}}},
		}},
	}, nil
}

func TestGenAIGenerator(t *testing.T) {
	fm := &fakeModels{reply: "Respawn\n"}
	g := &GenAIGenerator{models: fm, model: DefaultModel}

	w, err := g.Generate(context.Background(), Request{Category: "Gaming", MinLen: 5, MaxLen: 8})
	require.NoError(t, err)
	assert.Equal(t, "RESPAWN", w)
	assert.Equal(t, DefaultModel, fm.model)

	fm.reply = "..."
	_, err = g.Generate(context.Background(), Request{Category: "Gaming"})
	assert.ErrorIs(t, err, ErrNoWord)

	fm.err = errors.New("boom")
	_, err = g.Generate(context.Background(), Request{Category: "Gaming"})
	assert.Error(t, err)
}

func TestNewGenAIGeneratorRequiresKey(t *testing.T) {
	_, err := NewGenAIGenerator(context.Background(), "", "")
	assert.Error(t, err)
}
