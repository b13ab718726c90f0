package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docent-ai/docent/internal/content"
)

func TestChunkTreeStructural(t *testing.T) {
	root := &content.Node{
		Title: "Guide",
		URI:   "doc.md",
		Children: []*content.Node{
			{Title: "Setup", URI: "doc.md", Text: "Install the tool."},
			{Title: "Usage", URI: "doc.md", Text: "Run it.", Children: []*content.Node{
				{Title: "Flags", URI: "doc.md", Text: "Use --verbose for detail."},
			}},
		},
	}

	chunks := chunkTree(root, DefaultChunkerConfig())
	require.Len(t, chunks, 3)

	assert.Equal(t, "Guide > Setup", chunks[0].Section)
	assert.Contains(t, chunks[0].Text, "Install the tool.")
	assert.Equal(t, "Guide > Usage > Flags", chunks[2].Section)

	for i, c := range chunks {
		assert.Equal(t, i, c.Ordinal)
		assert.Equal(t, "doc.md", c.DocumentURI)
	}
}

func TestChunkTreeWindowsLargeSection(t *testing.T) {
	// Enough distinct sentences to force several windows.
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("This sentence describes behavior of the system in some detail. ")
	}
	root := &content.Node{
		Title:    "Doc",
		URI:      "big.md",
		Children: []*content.Node{{Title: "Huge", URI: "big.md", Text: b.String()}},
	}

	cfg := ChunkerConfig{MaxTokens: 100, OverlapTokens: 20}
	chunks := chunkTree(root, cfg)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		// Window fallback must never split mid-word.
		for _, w := range strings.Fields(c.Text) {
			assert.NotEmpty(t, w)
		}
		assert.Equal(t, "Doc > Huge", c.Section)
	}
}

func TestChunkTreeNeverSplitsWords(t *testing.T) {
	// One giant "sentence" with no terminators forces the word window.
	words := make([]string, 500)
	for i := range words {
		words[i] = "identifier"
	}
	text := strings.Join(words, " ")

	parts := splitWords(text, 50)
	require.Greater(t, len(parts), 1)

	for _, p := range parts {
		for _, w := range strings.Fields(p) {
			assert.Equal(t, "identifier", w)
		}
	}
}

func TestSplitTextOverlapStaysWithinWindow(t *testing.T) {
	// Paragraphs sized so a seeded overlap plus the next paragraph would
	// exceed the window unless the overlap is dropped.
	para := strings.TrimSpace(strings.Repeat("lorem ", 60))
	text := strings.Join([]string{para, para, para}, "\n\n")

	parts := splitText(text, 100, 60)
	require.Greater(t, len(parts), 1)

	for _, p := range parts {
		assert.LessOrEqual(t, estimateTokens(p), 100)
	}
}

func TestSplitSentencesOverlapStaysWithinWindow(t *testing.T) {
	sentence := strings.TrimSpace(strings.Repeat("word ", 34)) + " end."
	text := strings.Repeat(sentence+" ", 10)

	parts := splitSentences(text, 100, 60)
	require.Greater(t, len(parts), 1)

	for _, p := range parts {
		assert.LessOrEqual(t, estimateTokens(p), 100)
	}
}

func TestChunkTreeEmptyTree(t *testing.T) {
	root := &content.Node{Title: "Empty", URI: "empty.md"}
	assert.Empty(t, chunkTree(root, DefaultChunkerConfig()))
}

func TestSplitTextShortPassthrough(t *testing.T) {
	parts := splitText("short text", 800, 100)
	require.Len(t, parts, 1)
	assert.Equal(t, "short text", parts[0])
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, estimateTokens(""))
	assert.GreaterOrEqual(t, estimateTokens("word"), 1)
	assert.Greater(t, estimateTokens(strings.Repeat("word ", 100)), estimateTokens("word"))
}
