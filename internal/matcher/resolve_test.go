package matcher

import (
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/tapsolver/internal/challenge"
)

func strPtr(s string) *string { return &s }

func batchOf(recs ...challenge.Record) *challenge.AnswerBatch {
	return &challenge.AnswerBatch{Challenges: recs}
}

func TestResolveEmpty(t *testing.T) {
	_, _, ok := Resolve(nil, challenge.Snapshot{Prompt: "x"})
	assert.False(t, ok)

	_, _, ok = Resolve(batchOf(), challenge.Snapshot{Prompt: "x", Tokens: []string{"a"}})
	assert.False(t, ok)
}

func TestResolvePrompt(t *testing.T) {
	b := batchOf(
		challenge.Record{ID: "r0", Prompt: strPtr("Bonjour")},
		challenge.Record{ID: "r1", Sentence: strPtr("3. Hello, World!")},
		challenge.Record{ID: "r2", Prompt: strPtr("hello world")},
	)

	rec, strategy, ok := Resolve(b, challenge.Snapshot{Prompt: "Hello world"})
	require.True(t, ok)
	assert.Equal(t, StrategyPrompt, strategy)
	assert.Equal(t, "r1", rec.ID, "first record in batch order wins")
	assert.Same(t, &b.Challenges[1], rec)
}

func TestResolveEmptyPromptDoesNotMatchPromptlessRecords(t *testing.T) {
	b := batchOf(challenge.Record{ID: "bare", CorrectTokens: []string{"x"}})
	_, _, ok := Resolve(b, challenge.Snapshot{Prompt: "  "})
	assert.False(t, ok)
}

func TestResolveTokenThreshold(t *testing.T) {
	b := batchOf(challenge.Record{ID: "abcd", CorrectTokens: []string{"a", "b", "c", "d"}})

	rec, strategy, ok := Resolve(b, challenge.Snapshot{Tokens: []string{"a", "b", "c"}})
	require.True(t, ok, "3/4 = 0.75 is above the threshold")
	assert.Equal(t, StrategyTokens, strategy)
	assert.Equal(t, "abcd", rec.ID)

	_, _, ok = Resolve(b, challenge.Snapshot{Tokens: []string{"a", "b"}})
	assert.False(t, ok, "2/4 = 0.5 is below the threshold")
}

func TestResolveTokenThresholdIsStrict(t *testing.T) {
	// 7/10 = 0.7 exactly must not match.
	correct := []string{"1a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	b := batchOf(challenge.Record{CorrectTokens: correct})
	_, _, ok := Resolve(b, challenge.Snapshot{Tokens: []string{"A", "b", "c", "d", "e", "f", "g"}})
	assert.False(t, ok)

	_, _, ok = Resolve(b, challenge.Snapshot{Tokens: []string{"A", "b", "c", "d", "e", "f", "g", "h."}})
	assert.True(t, ok)
}

func TestResolvePromptBeatsTokens(t *testing.T) {
	b := batchOf(
		challenge.Record{ID: "tokens", CorrectTokens: []string{"je", "mange"}},
		challenge.Record{ID: "prompt", Prompt: strPtr("I eat")},
	)
	rec, strategy, ok := Resolve(b, challenge.Snapshot{Prompt: "I eat.", Tokens: []string{"je", "mange"}})
	require.True(t, ok)
	assert.Equal(t, StrategyPrompt, strategy)
	assert.Equal(t, "prompt", rec.ID)
}

func TestResolveSkipsRecordsWithoutTokens(t *testing.T) {
	b := batchOf(
		challenge.Record{ID: "empty", CorrectTokens: []string{}},
		challenge.Record{ID: "solutions", CorrectSolutions: []string{"a b"}},
		challenge.Record{ID: "real", CorrectTokens: []string{"a"}},
	)
	rec, _, ok := Resolve(b, challenge.Snapshot{Tokens: []string{"a", "b"}})
	require.True(t, ok)
	assert.Equal(t, "real", rec.ID)
}

func TestResolveNoTokensNoPrompt(t *testing.T) {
	b := batchOf(challenge.Record{CorrectTokens: []string{"a"}})
	_, _, ok := Resolve(b, challenge.Snapshot{})
	assert.False(t, ok)
}

func TestOverlap(t *testing.T) {
	visible := map[string]struct{}{"a": {}, "b": {}}
	assert.Equal(t, 0.0, Overlap(nil, visible))
	assert.Equal(t, 1.0, Overlap([]string{"a", "a"}, visible))
	assert.InDelta(t, 2.0/3.0, Overlap([]string{"A", "b.", "z"}, visible), 1e-9)
}

func FuzzResolve(f *testing.F) {
	f.Add([]byte("seed"))
	f.Fuzz(func(t *testing.T, data []byte) {
		c := fuzz.NewConsumer(data)
		n, err := c.GetByte()
		if err != nil {
			return
		}
		recs := make([]challenge.Record, int(n%8))
		for i := range recs {
			prompt, err := c.GetString()
			if err != nil {
				return
			}
			var tokens []string
			if err := c.CreateSlice(&tokens); err != nil {
				return
			}
			recs[i] = challenge.Record{Prompt: &prompt, CorrectTokens: tokens}
		}
		var snap challenge.Snapshot
		if err := c.GenerateStruct(&snap); err != nil {
			return
		}
		rec, strategy, ok := Resolve(batchOf(recs...), snap)
		if ok != (rec != nil) {
			t.Fatalf("ok=%v but rec=%v", ok, rec)
		}
		if ok && strategy == StrategyNone {
			t.Fatal("match reported without a strategy")
		}
	})
}
