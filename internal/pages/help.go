package pages

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

//go:embed faq.md
var defaultFAQ []byte

// FAQEntry is one question. Answer is rendered HTML.
type FAQEntry struct {
	Category string `json:"category"`
	Question string `json:"question"`
	Answer   string `json:"answer"`

	answerText string
}

// FAQ is the help page content.
type FAQ struct {
	Entries []FAQEntry `json:"entries"`
}

// LoadFAQ parses the FAQ at path, or the built-in FAQ when path is empty.
func LoadFAQ(path string) (*FAQ, error) {
	src := defaultFAQ
	if path != "" {
		var err error
		if src, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read faq: %w", err)
		}
	}
	return ParseFAQ(src)
}

// ParseFAQ reads markdown where each "##" heading names a category, each
// "###" heading is a question, and the blocks under it are its answer.
func ParseFAQ(src []byte) (*FAQ, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	faq := &FAQ{}
	var category string
	var current *FAQEntry
	var answer, plain bytes.Buffer

	flush := func() {
		if current == nil {
			return
		}
		current.Answer = strings.TrimSpace(answer.String())
		current.answerText = strings.TrimSpace(plain.String())
		faq.Entries = append(faq.Entries, *current)
		current = nil
		answer.Reset()
		plain.Reset()
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			switch h.Level {
			case 2:
				flush()
				category = nodeText(h, src)
				continue
			case 3:
				flush()
				current = &FAQEntry{Category: category, Question: nodeText(h, src)}
				continue
			}
		}
		if current == nil {
			continue
		}
		if err := md.Renderer().Render(&answer, src, n); err != nil {
			return nil, fmt.Errorf("render answer to %q: %w", current.Question, err)
		}
		plain.WriteString(nodeText(n, src))
		plain.WriteByte(' ')
	}
	flush()
	return faq, nil
}

// Search returns entries whose question or answer contains query, ignoring
// case. An empty query returns everything.
func (f *FAQ) Search(query string) []FAQEntry {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]FAQEntry, 0, len(f.Entries))
	for _, e := range f.Entries {
		if q == "" ||
			strings.Contains(strings.ToLower(e.Question), q) ||
			strings.Contains(strings.ToLower(e.answerText), q) {
			out = append(out, e)
		}
	}
	return out
}

// Categories returns category names in order of first appearance.
func (f *FAQ) Categories() []string {
	var cats []string
	seen := make(map[string]bool)
	for _, e := range f.Entries {
		if !seen[e.Category] {
			seen[e.Category] = true
			cats = append(cats, e.Category)
		}
	}
	return cats
}

func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
