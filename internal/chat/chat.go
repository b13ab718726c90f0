// Package chat assembles retrieval-augmented responses, one turn at a time.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docent-ai/docent/internal/identity"
	"github.com/docent-ai/docent/internal/log"
	"github.com/docent-ai/docent/internal/reference"
	"github.com/docent-ai/docent/internal/store"
)

// Roles of conversation messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// apologyText is returned when completion fails. It never exposes
// internals.
const apologyText = "I'm sorry, I wasn't able to answer that just now. Please try again."

// Message is one conversation entry.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is an ordered message history. Not safe for concurrent use;
// callers serialize per conversation.
type Conversation struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

// Append adds a message to the history.
func (c *Conversation) Append(m Message) {
	c.Messages = append(c.Messages, m)
}

// Turn is one incoming user message with its context. User may be nil for
// an unidentified caller.
type Turn struct {
	User         *identity.User
	Conversation *Conversation
	Text         string
}

// Completer generates model text from a system prompt and a user prompt.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Searcher is the slice of the chunk store the session retrieves over.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...store.SearchOption) ([]store.Result, error)
}

// Catalog supplies the references visible to a user.
type Catalog interface {
	ForUser(user *identity.User) []reference.Reference
}

// Config tunes retrieval and the persona.
type Config struct {
	DefaultPersona      string
	TopK                int
	SimilarityThreshold float32
	MaxLatency          time.Duration
	// HistoryWindow caps how many prior messages are replayed to the
	// model; <= 0 means 12.
	HistoryWindow int
}

// Session answers user turns with store retrieval and catalog references.
type Session struct {
	completer Completer
	searcher  Searcher
	catalog   Catalog
	cfg       Config
	logger    log.Logger
}

// NewSession creates a Session.
func NewSession(completer Completer, searcher Searcher, catalog Catalog, cfg Config, logger log.Logger) *Session {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 12
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Session{
		completer: completer,
		searcher:  searcher,
		catalog:   catalog,
		cfg:       cfg,
		logger:    logger,
	}
}

// Respond handles one turn: retrieve context, complete, append the
// assistant message to the conversation. A nil user degrades to the default
// persona with a warning; it never fails the turn. A completion failure
// yields a generic apology message, not an error.
func (s *Session) Respond(ctx context.Context, turn *Turn) (*Message, error) {
	if turn == nil || turn.Conversation == nil {
		return nil, fmt.Errorf("turn without conversation")
	}

	persona := s.cfg.DefaultPersona
	if turn.User == nil {
		s.logger.Warn("responding without a resolved user")
	}

	turn.Conversation.Append(Message{Role: RoleUser, Content: turn.Text, CreatedAt: time.Now()})

	docContext := s.retrieve(ctx, turn)
	refContext := s.consultReferences(ctx, turn)

	system := s.systemPrompt(persona, turn.User, docContext, refContext)
	prompt := s.renderHistory(turn.Conversation)

	reply, err := s.completer.Complete(ctx, system, prompt)
	if err != nil {
		s.logger.Error("completion failed", "error", err)
		reply = apologyText
	}

	msg := Message{Role: RoleAssistant, Content: reply, CreatedAt: time.Now()}
	turn.Conversation.Append(msg)
	return &msg, nil
}

// retrieve runs the dual-pass store search: once for the literal question
// and once for a hypothetical answer (HyDE), merged and deduplicated by
// chunk ID. HyDE rewrite failure degrades to single-pass.
func (s *Session) retrieve(ctx context.Context, turn *Turn) []store.Result {
	opts := []store.SearchOption{
		store.WithTopK(s.cfg.TopK),
		store.WithSimilarityThreshold(s.cfg.SimilarityThreshold),
	}
	if s.cfg.MaxLatency > 0 {
		opts = append(opts, store.WithMaxLatency(s.cfg.MaxLatency))
	}

	queries := []string{turn.Text}
	if hypothetical := s.hypotheticalAnswer(ctx, turn); hypothetical != "" {
		queries = append(queries, hypothetical)
	}

	seen := make(map[string]bool)
	var merged []store.Result
	for _, q := range queries {
		results, err := s.searcher.Search(ctx, q, opts...)
		if err != nil {
			s.logger.Warn("retrieval pass failed", "error", err)
			continue
		}
		for _, r := range results {
			if seen[r.Chunk.ID] {
				continue
			}
			seen[r.Chunk.ID] = true
			merged = append(merged, r)
		}
	}
	return merged
}

// hypotheticalAnswer asks the model to draft the passage that would answer
// the question. Embedding the draft often lands closer to the relevant docs
// than the question itself.
func (s *Session) hypotheticalAnswer(ctx context.Context, turn *Turn) string {
	prompt := fmt.Sprintf(
		"Write a short documentation passage (2-3 sentences) that would directly answer this question. "+
			"Write only the passage, no preamble.\n\nQuestion: %s", turn.Text)

	draft, err := s.completer.Complete(ctx, "", prompt)
	if err != nil {
		s.logger.Warn("hypothetical answer generation failed, single-pass retrieval", "error", err)
		return ""
	}
	return strings.TrimSpace(draft)
}

// consultReferences retrieves from each catalog reference. Individual
// reference failures are skipped.
func (s *Session) consultReferences(ctx context.Context, turn *Turn) []string {
	if s.catalog == nil {
		return nil
	}
	var sections []string
	for _, ref := range s.catalog.ForUser(turn.User) {
		material, err := ref.Retrieve(ctx, turn.Text)
		if err != nil {
			s.logger.Warn("reference retrieval failed", "reference", ref.Name(), "error", err)
			continue
		}
		if material == "" {
			continue
		}
		sections = append(sections, fmt.Sprintf("### %s\n%s", ref.Name(), material))
	}
	return sections
}

func (s *Session) systemPrompt(persona string, user *identity.User, docs []store.Result, refs []string) string {
	var sb strings.Builder
	sb.WriteString(persona)
	sb.WriteString("\n")

	if user != nil && user.DisplayName != "" {
		fmt.Fprintf(&sb, "\nYou are talking to %s.\n", user.DisplayName)
	}

	if len(docs) > 0 {
		sb.WriteString("\n## Relevant documentation\n")
		for _, r := range docs {
			if r.Chunk.Section != "" {
				fmt.Fprintf(&sb, "\n[%s]\n", r.Chunk.Section)
			}
			sb.WriteString(r.Chunk.Text)
			sb.WriteString("\n")
		}
	}
	if len(refs) > 0 {
		sb.WriteString("\n## References\n")
		for _, section := range refs {
			sb.WriteString("\n")
			sb.WriteString(section)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\nAnswer from the documentation above when it is relevant. Be concise and concrete.")
	return sb.String()
}

// renderHistory replays the trailing window of the conversation.
func (s *Session) renderHistory(conv *Conversation) string {
	msgs := conv.Messages
	if len(msgs) > s.cfg.HistoryWindow {
		msgs = msgs[len(msgs)-s.cfg.HistoryWindow:]
	}

	var sb strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}
	sb.WriteString("assistant:")
	return sb.String()
}
