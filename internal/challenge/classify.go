package challenge

import "strings"

// Archetype is the inferred shape of a record. The payload carries no reliable
// type tag, so the archetype is derived from which fields are populated.
type Archetype int

const (
	Unknown Archetype = iota
	Translate
	Pair
	Select
)

func (a Archetype) String() string {
	switch a {
	case Translate:
		return "translate"
	case Pair:
		return "pair"
	case Select:
		return "select"
	}
	return "unknown"
}

// Classify infers the archetype of r. Predicates are checked in order and the
// first one that holds wins: a record carrying pairs is a Pair even when it
// also carries translate-shaped fields.
func Classify(r *Record) Archetype {
	if r == nil {
		return Unknown
	}
	switch {
	case len(r.Pairs) > 0:
		return Pair
	case r.CorrectTokens != nil || r.CorrectSolutions != nil:
		return Translate
	case r.Choices != nil && r.CorrectIndex != nil:
		return Select
	}
	return Unknown
}

// Plan is everything the sequencer needs to act on a classified record. Only
// the fields relevant to Archetype are set.
type Plan struct {
	Archetype Archetype
	// Words is the ordered target word sequence for Translate.
	Words []string
	// Groups holds, per pair group in record order, the acceptable texts.
	Groups [][]string
	// Index is the correct choice position for Select.
	Index int
}

// NewPlan classifies r and extracts the archetype-specific inputs.
func NewPlan(r *Record) Plan {
	p := Plan{Archetype: Classify(r)}
	switch p.Archetype {
	case Translate:
		p.Words = targetWords(r)
	case Pair:
		p.Groups = make([][]string, len(r.Pairs))
		for i, g := range r.Pairs {
			p.Groups[i] = g.Texts()
		}
	case Select:
		p.Index = *r.CorrectIndex
	}
	return p
}

// targetWords prefers correctTokens whenever the key is present, even when it
// is empty; only an absent key falls back to the first solution.
func targetWords(r *Record) []string {
	if r.CorrectTokens != nil {
		return r.CorrectTokens
	}
	if len(r.CorrectSolutions) > 0 {
		return strings.Fields(r.CorrectSolutions[0])
	}
	return nil
}
