package challenge

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestDecodeBatch(t *testing.T) {
	body := []byte(`{
		"id": "sess-1",
		"fromLanguage": "en",
		"challenges": [
			{"type": "translate", "prompt": "I eat", "correctTokens": ["je", "mange"]},
			{"type": "match", "pairs": [
				{"learningToken": "chien", "fromToken": "dog"},
				[{"text": "dog"}, {"text": "いぬ", "transliteration": "inu"}]
			]},
			{"type": "select", "choices": ["a", {"phrase": "b"}], "correctIndex": 1},
			{"type": "listen", "correctSolutions": []}
		]
	}`)

	b, err := DecodeBatch(body)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", b.ID)
	require.Equal(t, 4, b.Len())

	first := b.Challenges[0]
	assert.Equal(t, "I eat", first.PromptText())
	assert.Nil(t, first.Sentence)
	assert.Equal(t, []string{"je", "mange"}, first.CorrectTokens)

	pairs := b.Challenges[1].Pairs
	require.Len(t, pairs, 2)
	assert.Len(t, pairs[0].Members, 1)
	assert.Len(t, pairs[1].Members, 2)
	if diff := cmp.Diff([]string{"dog", "いぬ", "inu"}, pairs[1].Texts()); diff != "" {
		t.Errorf("pair texts mismatch (-want +got):\n%s", diff)
	}
	assert.ElementsMatch(t, []string{"chien", "dog"}, pairs[0].Texts())

	sel := b.Challenges[2]
	require.NotNil(t, sel.CorrectIndex)
	assert.Equal(t, 1, *sel.CorrectIndex)
	assert.Len(t, sel.Choices, 2)

	// Present-but-empty lists stay distinguishable from absent ones.
	assert.NotNil(t, b.Challenges[3].CorrectSolutions)
	assert.Empty(t, b.Challenges[3].CorrectSolutions)
	assert.Nil(t, b.Challenges[3].CorrectTokens)
}

func TestDecodeBatchErrors(t *testing.T) {
	_, err := DecodeBatch([]byte(`{"challenges": [`))
	assert.Error(t, err)

	_, err = DecodeBatch([]byte(`{"challenges": [{"pairs": ["oops"]}]}`))
	assert.Error(t, err)
}

func TestPairGroupRoundTrip(t *testing.T) {
	var g PairGroup
	require.NoError(t, json.Unmarshal([]byte(`{"text":"dog"}`), &g))
	out, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"dog"}`, string(out))
}

func TestPairGroupTextsCoercion(t *testing.T) {
	g := PairGroup{Members: []map[string]any{{
		"text":          "",
		"phrase":        float64(0),
		"correctTokens": []any{"a", "b"},
		"prompt":        float64(42),
		"sentence":      false,
		"ignored":       "x",
	}}}
	assert.Equal(t, []string{"a,b", "42"}, g.Texts())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		rec  *Record
		want Archetype
	}{
		{"nil", nil, Unknown},
		{"empty", &Record{}, Unknown},
		{"translate by tokens", &Record{CorrectTokens: []string{"a"}}, Translate},
		{"translate by solutions", &Record{CorrectSolutions: []string{"a b"}}, Translate},
		{"translate with present empty tokens", &Record{CorrectTokens: []string{}}, Translate},
		{"pair", &Record{Pairs: []PairGroup{{}}}, Pair},
		{"pair beats translate", &Record{Pairs: []PairGroup{{}}, CorrectTokens: []string{"a"}}, Pair},
		{"empty pairs falls to translate", &Record{Pairs: []PairGroup{}, CorrectTokens: []string{"a"}}, Translate},
		{"select", &Record{Choices: []json.RawMessage{json.RawMessage(`"x"`)}, CorrectIndex: intPtr(0)}, Select},
		{"choices without index", &Record{Choices: []json.RawMessage{}}, Unknown},
		{"index without choices", &Record{CorrectIndex: intPtr(1)}, Unknown},
		{"translate beats select", &Record{CorrectTokens: []string{"a"}, Choices: []json.RawMessage{}, CorrectIndex: intPtr(0)}, Translate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.rec))
		})
	}
}

func TestNewPlan(t *testing.T) {
	t.Run("translate prefers correct tokens", func(t *testing.T) {
		p := NewPlan(&Record{CorrectTokens: []string{"je", "mange"}, CorrectSolutions: []string{"x y"}})
		assert.Equal(t, Translate, p.Archetype)
		assert.Equal(t, []string{"je", "mange"}, p.Words)
	})

	t.Run("translate falls back to first solution", func(t *testing.T) {
		p := NewPlan(&Record{CorrectSolutions: []string{"I  eat bread", "I am eating bread"}})
		assert.Equal(t, []string{"I", "eat", "bread"}, p.Words)
	})

	t.Run("present but empty tokens type nothing", func(t *testing.T) {
		p := NewPlan(&Record{CorrectTokens: []string{}, CorrectSolutions: []string{"I eat"}})
		assert.Equal(t, Translate, p.Archetype)
		assert.NotNil(t, p.Words)
		assert.Empty(t, p.Words)
	})

	t.Run("decoded empty tokens stay present", func(t *testing.T) {
		var r Record
		require.NoError(t, codec.Unmarshal([]byte(`{"correctTokens":[],"correctSolutions":["I eat"]}`), &r))
		assert.Empty(t, NewPlan(&r).Words)
	})

	t.Run("pair groups keep record order", func(t *testing.T) {
		r := &Record{Pairs: []PairGroup{
			{Members: []map[string]any{{"text": "dog"}, {"text": "いぬ"}}},
			{Members: []map[string]any{{"learningToken": "chat", "fromToken": "cat"}}},
		}}
		p := NewPlan(r)
		assert.Equal(t, Pair, p.Archetype)
		assert.Equal(t, [][]string{{"dog", "いぬ"}, {"chat", "cat"}}, p.Groups)
	})

	t.Run("select index", func(t *testing.T) {
		p := NewPlan(&Record{Choices: []json.RawMessage{}, CorrectIndex: intPtr(2)})
		assert.Equal(t, Select, p.Archetype)
		assert.Equal(t, 2, p.Index)
	})

	t.Run("unknown carries nothing", func(t *testing.T) {
		assert.Equal(t, Plan{}, NewPlan(&Record{Prompt: strPtr("p")}))
	})
}

func TestRecordLabel(t *testing.T) {
	assert.Equal(t, "p", (&Record{Prompt: strPtr("p")}).Label())
	assert.Equal(t, "s", (&Record{Prompt: strPtr(""), Sentence: strPtr("s")}).Label())
	assert.Equal(t, "a b", (&Record{CorrectTokens: []string{"a", "b"}}).Label())
	assert.Equal(t, "id-1", (&Record{ID: "id-1"}).Label())
	var nilRec *Record
	assert.Equal(t, "", nilRec.Label())
	assert.Equal(t, 0, (*AnswerBatch)(nil).Len())
}
