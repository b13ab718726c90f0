package store

import (
	"strings"

	"github.com/docent-ai/docent/internal/content"
)

// ChunkerConfig controls how document trees are split into chunks.
type ChunkerConfig struct {
	// MaxTokens is the target chunk size in estimated tokens. Sections
	// within the limit become a single chunk; larger ones are windowed.
	MaxTokens int
	// OverlapTokens is carried between consecutive windows of an
	// oversized section.
	OverlapTokens int
}

// DefaultChunkerConfig returns the defaults used in production.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		MaxTokens:     800,
		OverlapTokens: 100,
	}
}

// chunkTree splits a parsed document into chunks along structural
// boundaries: one chunk per section when the section fits, a word-boundary
// window otherwise. Section breadcrumbs are prepended so a chunk stays
// meaningful out of context.
func chunkTree(root *content.Node, cfg ChunkerConfig) []Chunk {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	if cfg.OverlapTokens < 0 {
		cfg.OverlapTokens = 0
	}

	var chunks []Chunk
	var walk func(n *content.Node, breadcrumb []string)
	walk = func(n *content.Node, breadcrumb []string) {
		bc := breadcrumb
		if n.Title != "" {
			bc = append(append([]string(nil), breadcrumb...), n.Title)
		}
		if text := strings.TrimSpace(n.Text); text != "" {
			section := strings.Join(bc, " > ")
			for _, part := range splitText(text, cfg.MaxTokens, cfg.OverlapTokens) {
				chunks = append(chunks, Chunk{
					DocumentURI: n.URI,
					Section:     section,
					Ordinal:     len(chunks),
					Text:        withSection(section, part),
				})
			}
		}
		for _, c := range n.Children {
			walk(c, bc)
		}
	}
	walk(root, nil)
	return chunks
}

// withSection prefixes chunk text with its breadcrumb so embeddings capture
// the document context.
func withSection(section, text string) string {
	if section == "" {
		return text
	}
	return section + "\n\n" + text
}

// estimateTokens gives a rough token count. Exact tokenization is not
// required for chunk sizing.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	tokens := int(float64(len(strings.Fields(text))) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// splitText windows text that exceeds the target size. Paragraphs are the
// first split boundary, sentences the second; words are never split.
func splitText(text string, maxTokens, overlapTokens int) []string {
	if estimateTokens(text) <= maxTokens {
		return []string{text}
	}

	var result []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if currentTokens > 0 {
			result = append(result, current.String())
			overlap := overlapText(current.String(), overlapTokens)
			current.Reset()
			currentTokens = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentTokens = estimateTokens(overlap)
			}
		}
	}

	for _, para := range splitParagraphs(text) {
		paraTokens := estimateTokens(para)

		if paraTokens > maxTokens {
			flush()
			result = append(result, splitSentences(para, maxTokens, overlapTokens)...)
			continue
		}
		if currentTokens+paraTokens > maxTokens {
			flush()
			// Seeded overlap plus this paragraph may still bust the
			// window; drop the overlap rather than exceed it.
			if currentTokens+paraTokens > maxTokens {
				current.Reset()
				currentTokens = 0
			}
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentTokens += paraTokens
	}
	if currentTokens > 0 {
		result = append(result, current.String())
	}
	return result
}

func splitParagraphs(text string) []string {
	var result []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

// splitSentences windows an oversized paragraph at sentence boundaries,
// falling back to word boundaries for a single giant sentence.
func splitSentences(text string, maxTokens, overlapTokens int) []string {
	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, sent := range sentences(text) {
		sentTokens := estimateTokens(sent)

		if sentTokens > maxTokens {
			if currentTokens > 0 {
				result = append(result, current.String())
				current.Reset()
				currentTokens = 0
			}
			result = append(result, splitWords(sent, maxTokens)...)
			continue
		}
		if currentTokens+sentTokens > maxTokens && currentTokens > 0 {
			result = append(result, current.String())
			overlap := overlapText(current.String(), overlapTokens)
			current.Reset()
			currentTokens = 0
			if overlap != "" && estimateTokens(overlap)+sentTokens <= maxTokens {
				current.WriteString(overlap)
				currentTokens = estimateTokens(overlap)
			}
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		currentTokens += sentTokens
	}
	if currentTokens > 0 {
		result = append(result, current.String())
	}
	return result
}

func sentences(text string) []string {
	var out []string
	var current strings.Builder
	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			out = append(out, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// splitWords is the last-resort window: whole words only, no overlap.
func splitWords(text string, maxTokens int) []string {
	words := strings.Fields(text)
	maxWords := int(float64(maxTokens) / 1.33)
	if maxWords < 1 {
		maxWords = 1
	}

	var result []string
	for start := 0; start < len(words); start += maxWords {
		end := start + maxWords
		if end > len(words) {
			end = len(words)
		}
		result = append(result, strings.Join(words[start:end], " "))
	}
	return result
}

// overlapText extracts the trailing words worth about overlapTokens for
// window continuity.
func overlapText(text string, overlapTokens int) string {
	words := strings.Fields(text)
	targetWords := int(float64(overlapTokens) / 1.33)
	if targetWords <= 0 || len(words) <= targetWords {
		return ""
	}
	return strings.Join(words[len(words)-targetWords:], " ")
}
