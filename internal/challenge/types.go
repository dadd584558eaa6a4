// Package challenge holds the data model for captured lesson sessions: the
// answer batch, its loosely-typed challenge records, the on-screen snapshot a
// record is matched against, and the structural classifier that decides how a
// record is acted on.
package challenge

import (
	"encoding/json"
	"strconv"
	"strings"
)

// AnswerBatch is one captured session payload. A batch is never mutated after
// it has been accepted by the session store.
type AnswerBatch struct {
	ID         string   `json:"id"`
	Challenges []Record `json:"challenges"`
}

// Len returns the number of records, tolerating a nil batch.
func (b *AnswerBatch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Challenges)
}

// Record is the expected-answer data for one possible challenge. Fields form a
// loose union; a nil slice means the key was absent from the payload, an empty
// non-nil slice means it was present but empty.
type Record struct {
	ID               string            `json:"id,omitempty"`
	Type             string            `json:"type,omitempty"`
	Prompt           *string           `json:"prompt,omitempty"`
	Sentence         *string           `json:"sentence,omitempty"`
	CorrectTokens    []string          `json:"correctTokens,omitempty"`
	CorrectSolutions []string          `json:"correctSolutions,omitempty"`
	Pairs            []PairGroup       `json:"pairs,omitempty"`
	Choices          []json.RawMessage `json:"choices,omitempty"`
	CorrectIndex     *int              `json:"correctIndex,omitempty"`
}

// PromptText returns the prompt, or "" when absent.
func (r *Record) PromptText() string {
	if r == nil || r.Prompt == nil {
		return ""
	}
	return *r.Prompt
}

// SentenceText returns the sentence, or "" when absent.
func (r *Record) SentenceText() string {
	if r == nil || r.Sentence == nil {
		return ""
	}
	return *r.Sentence
}

// Label is a short human-readable identifier used in logs and history.
func (r *Record) Label() string {
	switch {
	case r == nil:
		return ""
	case r.PromptText() != "":
		return r.PromptText()
	case r.SentenceText() != "":
		return r.SentenceText()
	case len(r.CorrectTokens) > 0:
		return strings.Join(r.CorrectTokens, " ")
	}
	return r.ID
}

// pairTextFields are the member keys whose values count as matchable pair text.
var pairTextFields = []string{
	"text", "phrase", "correctTokens", "prompt", "sentence", "transliteration",
	"learningToken", "fromToken",
}

// PairGroup is one group of mutually matching texts in a pairing challenge. On
// the wire it is either a single object or an array of objects.
type PairGroup struct {
	Members []map[string]any
}

// Texts returns the raw candidate texts present on the group's members, in
// member order and then field order.
func (g PairGroup) Texts() []string {
	var out []string
	for _, m := range g.Members {
		for _, k := range pairTextFields {
			if s, ok := textOf(m[k]); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// textOf renders a loose JSON value the way string coercion would, skipping
// falsy values.
func textOf(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, t != ""
	case bool:
		return "true", t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), t != 0
	case json.Number:
		return t.String(), t.String() != "0"
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			s, _ := textOf(e)
			parts = append(parts, s)
		}
		s := strings.Join(parts, ",")
		return s, s != ""
	}
	return "", false
}

// Snapshot is the ephemeral read of what is currently rendered: the prompt
// text, the clickable token texts and the visible choice texts, in DOM order.
// Any field may be empty.
type Snapshot struct {
	Prompt  string   `json:"prompt"`
	Tokens  []string `json:"tokens"`
	Choices []string `json:"choices"`
}
