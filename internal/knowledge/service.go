// Package knowledge answers questions from a directory of local documents.
//
// Documents are markdown or plain-text files. Retrieval is keyword overlap
// scoring; the best-matching snippets are handed to the LLM as context.
package knowledge

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	maxContextDocs   = 3
	maxSnippetLength = 2000
)

// Completer is the LLM surface used to compose answers.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type document struct {
	name    string
	content string
	tokens  map[string]int
}

// Service loads documents and answers questions against them.
type Service struct {
	dir    string
	llm    Completer
	logger *slog.Logger

	mu   sync.RWMutex
	docs []document
}

// NewService creates a Service reading documents from dir.
func NewService(dir string, llm Completer, logger *slog.Logger) *Service {
	return &Service{
		dir:    dir,
		llm:    llm,
		logger: logger.With("component", "knowledge"),
	}
}

// Load reads all .md and .txt files under the directory. A missing
// directory yields an empty index, not an error.
func (s *Service) Load() error {
	var docs []document
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".txt" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read document %s: %w", path, err)
		}
		content := string(data)
		docs = append(docs, document{
			name:    filepath.Base(path),
			content: content,
			tokens:  tokenize(content),
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			docs = nil
		} else {
			return fmt.Errorf("load knowledge base: %w", err)
		}
	}

	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()

	s.logger.Info("knowledge base loaded", "dir", s.dir, "documents", len(docs))
	return nil
}

// Reindex reloads the documents from disk.
func (s *Service) Reindex() error {
	return s.Load()
}

// Count returns the number of indexed documents.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Ask answers a question using the best-matching documents as context.
func (s *Service) Ask(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "Please ask a question, e.g. `/ask how do I book a meeting room?`", nil
	}

	matches := s.topMatches(question)
	if len(matches) == 0 {
		return "I couldn't find anything about that in the knowledge base.", nil
	}

	var b strings.Builder
	for _, doc := range matches {
		snippet := doc.content
		if len(snippet) > maxSnippetLength {
			snippet = snippet[:maxSnippetLength]
		}
		fmt.Fprintf(&b, "--- %s ---\n%s\n", doc.name, snippet)
	}

	answer, err := s.llm.Complete(ctx,
		"You answer workplace questions using only the provided documents. If the documents don't contain the answer, say so. Be brief.",
		fmt.Sprintf("Documents:\n%s\nQuestion: %s", b.String(), question))
	if err != nil {
		s.logger.Warn("answer generation failed", "error", err)
		return "I found relevant documents but couldn't compose an answer right now. Please try again later.", nil
	}
	return strings.TrimSpace(answer), nil
}

// topMatches scores documents by keyword overlap with the question and
// returns up to maxContextDocs with a positive score.
func (s *Service) topMatches(question string) []document {
	queryTokens := tokenize(question)

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		doc   document
		score int
	}
	var candidates []scored
	for _, doc := range s.docs {
		score := 0
		for token := range queryTokens {
			score += doc.tokens[token]
		}
		if score > 0 {
			candidates = append(candidates, scored{doc: doc, score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	if len(candidates) > maxContextDocs {
		candidates = candidates[:maxContextDocs]
	}
	out := make([]document, len(candidates))
	for i, c := range candidates {
		out[i] = c.doc
	}
	return out
}

// tokenize lowercases and splits on non-letter/digit runes, dropping short
// tokens that carry no signal.
func tokenize(text string) map[string]int {
	tokens := make(map[string]int)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	for _, word := range words {
		if len(word) < 3 {
			continue
		}
		tokens[word]++
	}
	return tokens
}
