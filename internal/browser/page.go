package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tapsolver/internal/challenge"
	"github.com/xkilldash9x/tapsolver/internal/config"
	"github.com/xkilldash9x/tapsolver/internal/sequencer"
)

// idAttr is stamped on every scanned element so it can be found again for
// clicking and disabled checks.
const idAttr = "data-tapsolver-id"

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// scanScript collects every widget in one round trip. Elements keep the id
// they were first given, so ids are stable across scans.
const scanScript = `(function(sel, attr) {
  var seq = window.__tapsolverSeq || 0;
  function q(s) {
    if (!s) return [];
    return Array.prototype.map.call(document.querySelectorAll(s), function(el) {
      var id = el.getAttribute(attr);
      if (!id) { id = String(++seq); el.setAttribute(attr, id); }
      return {id: id, html: el.outerHTML, label: el.getAttribute('aria-label') || ''};
    });
  }
  var out = {tokens: q(sel.tokens), choices: q(sel.choices), header: q(sel.header).slice(0, 1), hints: q(sel.hint_tokens)};
  window.__tapsolverSeq = seq;
  return out;
})(%s, %s)`

const disabledScript = `(function(s) { var e = document.querySelector(s); return !e || !!e.disabled; })(%s)`

type rawNode struct {
	ID    string `json:"id"`
	HTML  string `json:"html"`
	Label string `json:"label"`
}

type scan struct {
	Tokens  []rawNode `json:"tokens"`
	Choices []rawNode `json:"choices"`
	Header  []rawNode `json:"header"`
	Hints   []rawNode `json:"hints"`
}

// Page reads the challenge widgets of the lesson tab.
type Page struct {
	tab    context.Context
	logger *zap.Logger
	expr   string
}

func NewPage(tab context.Context, logger *zap.Logger, sel config.SelectorConfig) (*Page, error) {
	selJSON, err := codec.Marshal(map[string]string{
		"tokens":      sel.Tokens,
		"choices":     sel.Choices,
		"header":      sel.Header,
		"hint_tokens": sel.HintTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("encode selectors: %w", err)
	}
	return &Page{
		tab:    tab,
		logger: logger.Named("page"),
		expr:   fmt.Sprintf(scanScript, selJSON, jsString(idAttr)),
	}, nil
}

func (p *Page) scan(ctx context.Context) (scan, error) {
	var s scan
	if err := run(ctx, p.tab, chromedp.Evaluate(p.expr, &s)); err != nil {
		return scan{}, fmt.Errorf("scan page: %w", err)
	}
	return s, nil
}

// Snapshot returns what the matcher needs: the prompt and the token texts.
func (p *Page) Snapshot(ctx context.Context) (challenge.Snapshot, error) {
	s, err := p.scan(ctx)
	if err != nil {
		return challenge.Snapshot{}, err
	}
	snap := snapshotOf(s)
	p.logger.Debug("Page scanned.", zap.String("prompt", snap.Prompt),
		zap.Int("tokens", len(snap.Tokens)), zap.Int("choices", len(snap.Choices)))
	return snap, nil
}

func snapshotOf(s scan) challenge.Snapshot {
	snap := challenge.Snapshot{
		Tokens:  texts(s.Tokens),
		Choices: texts(s.Choices),
	}
	// Hint tokens split the sentence into words; their labels joined are the
	// prompt and take precedence over the header.
	if len(s.Hints) > 0 {
		var b strings.Builder
		for _, h := range s.Hints {
			b.WriteString(h.Label)
		}
		snap.Prompt = b.String()
	} else if len(s.Header) > 0 {
		snap.Prompt = ExtractText(s.Header[0].HTML)
	}
	return snap
}

func texts(nodes []rawNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = ExtractText(n.HTML)
	}
	return out
}

// Tokens returns the tap tokens in document order.
func (p *Page) Tokens(ctx context.Context) ([]sequencer.Element, error) {
	s, err := p.scan(ctx)
	if err != nil {
		return nil, err
	}
	return p.elements(s.Tokens), nil
}

// Choices returns the multiple-choice options in document order.
func (p *Page) Choices(ctx context.Context) ([]sequencer.Element, error) {
	s, err := p.scan(ctx)
	if err != nil {
		return nil, err
	}
	return p.elements(s.Choices), nil
}

func (p *Page) elements(nodes []rawNode) []sequencer.Element {
	out := make([]sequencer.Element, len(nodes))
	for i, n := range nodes {
		out[i] = &Element{id: n.ID, text: ExtractText(n.HTML), page: p}
	}
	return out
}

// Element is a scanned widget. Its text is fixed at scan time; the disabled
// state is read live.
type Element struct {
	id   string
	text string
	page *Page
}

func (e *Element) Text() string { return e.text }

// Selector locates the element in the live DOM.
func (e *Element) Selector() string { return selectorFor(e.id) }

// Disabled reports true when the element is disabled or no longer attached.
func (e *Element) Disabled(ctx context.Context) bool {
	var disabled bool
	expr := fmt.Sprintf(disabledScript, jsString(e.Selector()))
	if err := run(ctx, e.page.tab, chromedp.Evaluate(expr, &disabled)); err != nil {
		e.page.logger.Debug("Disabled check failed.", zap.String("selector", e.Selector()), zap.Error(err))
		return true
	}
	return disabled
}

func selectorFor(id string) string {
	return fmt.Sprintf(`[%s="%s"]`, idAttr, id)
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, err := codec.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
