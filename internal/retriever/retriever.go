// Package retriever fetches reference document snippets for a story. The
// core never embeds or indexes anything itself; it asks the search backend
// for snippets and joins them into the context block stage instructions use.
package retriever

import (
	"context"
	"strings"
)

// Snippet is one retrieved passage of a reference document.
type Snippet struct {
	Text           string  `json:"text"`
	DocumentName   string  `json:"document_name,omitempty"`
	RelevanceScore float64 `json:"relevance_score,omitempty"`
}

// Retriever finds snippets relevant to a query, most relevant first.
type Retriever interface {
	Search(ctx context.Context, query string, limit int) ([]Snippet, error)
}

// JoinSnippets concatenates snippets into one context string. Each snippet
// keeps its document attribution as a [name] prefix when it has one.
func JoinSnippets(snippets []Snippet) string {
	var sb strings.Builder
	for _, s := range snippets {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		if s.DocumentName != "" {
			sb.WriteString("[" + s.DocumentName + "] ")
		}
		sb.WriteString(text)
	}
	return sb.String()
}

type noop struct{}

// NewNoop returns a retriever that finds nothing. Used when no search
// backend is configured; stages then run without reference documents.
func NewNoop() Retriever {
	return noop{}
}

func (noop) Search(context.Context, string, int) ([]Snippet, error) {
	return nil, nil
}
