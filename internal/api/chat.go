package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docent-ai/docent/internal/chat"
	"github.com/docent-ai/docent/internal/identity"
	"github.com/docent-ai/docent/internal/log"
)

// maxConversations bounds the in-memory conversation map. When full, the
// least recently used conversation is dropped.
const maxConversations = 256

// conversationEntry pairs a conversation with the mutex serializing its
// turns. Respond mutates the history, so concurrent requests on one
// conversation ID take the entry lock.
type conversationEntry struct {
	mu       sync.Mutex
	conv     *chat.Conversation
	lastUsed time.Time
}

// chatHandler serves conversation turns. Conversations are held in memory,
// keyed by the conversation ID echoed back to the client.
type chatHandler struct {
	responder Responder
	resolver  UserResolver
	logger    log.Logger
	capacity  int

	mu            sync.Mutex
	conversations map[string]*conversationEntry
}

func newChatHandler(responder Responder, resolver UserResolver, logger log.Logger) *chatHandler {
	return &chatHandler{
		responder:     responder,
		resolver:      resolver,
		logger:        logger,
		capacity:      maxConversations,
		conversations: make(map[string]*conversationEntry),
	}
}

type chatRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
	User           struct {
		Kind        string `json:"kind"`
		ExternalID  string `json:"externalId"`
		DisplayName string `json:"displayName"`
	} `json:"user"`
}

type chatResponse struct {
	ConversationID string    `json:"conversationId"`
	Reply          string    `json:"reply"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON", h.logger)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message_required", "message is required", h.logger)
		return
	}

	user := h.resolveUser(r, req)
	entry := h.conversation(req.ConversationID)

	// One turn at a time per conversation; Respond appends to the history.
	entry.mu.Lock()
	msg, err := h.responder.Respond(r.Context(), &chat.Turn{
		User:         user,
		Conversation: entry.conv,
		Text:         req.Message,
	})
	entry.mu.Unlock()
	if err != nil {
		h.logger.Error("chat turn failed", "conversation", entry.conv.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "chat_failed", "could not answer the message", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: entry.conv.ID,
		Reply:          msg.Content,
		CreatedAt:      msg.CreatedAt,
	}, h.logger)
}

// resolveUser maps the request's identity hint to a user. Resolution
// failures leave the turn anonymous rather than failing it.
func (h *chatHandler) resolveUser(r *http.Request, req chatRequest) *identity.User {
	if h.resolver == nil {
		return nil
	}
	user, err := h.resolver.Resolve(r.Context(), identity.Hint{
		Kind:        identity.Kind(req.User.Kind),
		ExternalID:  req.User.ExternalID,
		DisplayName: req.User.DisplayName,
	})
	if err != nil {
		h.logger.Warn("user resolution failed, continuing anonymously", "error", err)
		return nil
	}
	return user
}

// conversation returns the existing entry for id, or starts a new
// conversation when id is blank or unknown.
func (h *chatHandler) conversation(id string) *conversationEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	if id != "" {
		if e, ok := h.conversations[id]; ok {
			e.lastUsed = now
			return e
		}
	}
	if id == "" {
		id = uuid.New().String()
	}
	if len(h.conversations) >= h.capacity {
		h.evictOldest()
	}
	e := &conversationEntry{conv: &chat.Conversation{ID: id}, lastUsed: now}
	h.conversations[id] = e
	return e
}

// evictOldest drops the least recently used conversation. Caller holds h.mu.
// An in-flight turn on the evicted entry finishes on the orphaned value.
func (h *chatHandler) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, e := range h.conversations {
		if oldestID == "" || e.lastUsed.Before(oldest) {
			oldestID, oldest = id, e.lastUsed
		}
	}
	if oldestID != "" {
		h.logger.Debug("evicting idle conversation", "conversation", oldestID)
		delete(h.conversations, oldestID)
	}
}
