// Package matcher finds the answer record that corresponds to the challenge
// currently on screen.
package matcher

import (
	"github.com/xkilldash9x/tapsolver/internal/challenge"
	"github.com/xkilldash9x/tapsolver/internal/textnorm"
)

// TokenOverlapThreshold is the fraction of a record's correct tokens that must
// be visible for a token-overlap match. The comparison is strict.
const TokenOverlapThreshold = 0.7

// Strategy records which rule produced a match.
type Strategy string

const (
	StrategyNone   Strategy = ""
	StrategyPrompt Strategy = "prompt"
	StrategyTokens Strategy = "tokens"
)

// Resolve returns the first record in batch that matches snap. Prompt equality
// is tried first over the whole batch; token overlap is only consulted when no
// prompt matched. ok is false for a nil or empty batch or when neither rule
// finds a record.
func Resolve(batch *challenge.AnswerBatch, snap challenge.Snapshot) (rec *challenge.Record, strategy Strategy, ok bool) {
	if batch.Len() == 0 {
		return nil, StrategyNone, false
	}
	if r := byPrompt(batch.Challenges, snap.Prompt); r != nil {
		return r, StrategyPrompt, true
	}
	if r := byTokens(batch.Challenges, snap.Tokens); r != nil {
		return r, StrategyTokens, true
	}
	return nil, StrategyNone, false
}

func byPrompt(recs []challenge.Record, prompt string) *challenge.Record {
	want := textnorm.Normalize(prompt)
	// An empty prompt would otherwise equal every record lacking one.
	if want == "" {
		return nil
	}
	for i := range recs {
		r := &recs[i]
		if textnorm.Normalize(r.PromptText()) == want || textnorm.Normalize(r.SentenceText()) == want {
			return r
		}
	}
	return nil
}

func byTokens(recs []challenge.Record, tokens []string) *challenge.Record {
	if len(tokens) == 0 {
		return nil
	}
	visible := make(map[string]struct{}, len(tokens))
	for _, t := range textnorm.All(tokens) {
		visible[t] = struct{}{}
	}
	for i := range recs {
		r := &recs[i]
		if len(r.CorrectTokens) == 0 {
			continue
		}
		if Overlap(r.CorrectTokens, visible) > TokenOverlapThreshold {
			return r
		}
	}
	return nil
}

// Overlap returns the fraction of correct tokens whose normalized form is in
// visible. Duplicate correct tokens count once each.
func Overlap(correct []string, visible map[string]struct{}) float64 {
	if len(correct) == 0 {
		return 0
	}
	hits := 0
	for _, t := range correct {
		if _, ok := visible[textnorm.Normalize(t)]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(correct))
}
