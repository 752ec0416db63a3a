// Package api is the HTTP surface: conversation CRUD, the message/reply
// endpoint, profile access, and the public notification endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inima-app/inima/internal/chat"
	"github.com/inima-app/inima/internal/conversation"
	"github.com/inima-app/inima/internal/notify"
	"github.com/inima-app/inima/internal/profile"
	"github.com/inima-app/inima/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// ContextCompiler renders the prompt context block for an owner.
// Implemented by composer.Compiler.
type ContextCompiler interface {
	Compile(ctx context.Context, ownerID string) (string, error)
}

type AppDeps struct {
	Conversations *conversation.Service
	Chat          *chat.Service
	Profiles      *profile.Manager
	Compiler      ContextCompiler
	Mailer        notify.Mailer
	Token         string
}

// NewAppHandler builds the full router. The notification endpoints and the
// health check are public; everything else sits behind bearer auth.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	r.MethodNotAllowed(handleMethodNotAllowed)

	r.Get("/health", handleHealth)
	r.Post("/notify/order", handleNotifyOrder(deps))
	r.Post("/notify/contact", handleNotifyContact(deps))

	r.Group(func(g chi.Router) {
		g.Use(BearerAuth(deps.Token))

		g.Post("/conversations", handleCreateConversation(deps))
		g.Get("/conversations", handleListConversations(deps))
		g.Get("/conversations/{id}", handleGetConversation(deps))
		g.Patch("/conversations/{id}", handleRenameConversation(deps))
		g.Delete("/conversations/{id}", handleDeleteConversation(deps))
		g.Post("/conversations/{id}/messages", handleSendMessage(deps))

		g.Get("/profile", handleGetProfile(deps))
		g.Patch("/profile", handlePatchProfile(deps))
		g.Get("/context", handleCompileContext(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type CreateConversationRequest struct {
	OwnerID string `json:"ownerId"`
	Subject string `json:"subject"`
}

func handleCreateConversation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req CreateConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.OwnerID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "ownerId is required")
			return
		}

		c, err := deps.Conversations.Create(r.Context(), req.OwnerID, req.Subject)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to create conversation: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(c)
	}
}

func handleListConversations(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := r.URL.Query().Get("owner")
		if owner == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "owner query parameter is required")
			return
		}

		convs, err := deps.Conversations.ListByOwner(r.Context(), owner)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list conversations: %v", err)
			return
		}
		if convs == nil {
			convs = []storage.Conversation{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(convs)
	}
}

func handleGetConversation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := r.URL.Query().Get("owner")
		if owner == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "owner query parameter is required")
			return
		}

		c, err := deps.Conversations.Get(r.Context(), chi.URLParam(r, "id"), owner)
		if writeConversationError(w, err) {
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(c)
	}
}

type RenameConversationRequest struct {
	OwnerID string `json:"ownerId"`
	Subject string `json:"subject"`
}

func handleRenameConversation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req RenameConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.OwnerID == "" || req.Subject == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "ownerId and subject are required")
			return
		}

		err := deps.Conversations.Rename(r.Context(), chi.URLParam(r, "id"), req.OwnerID, req.Subject)
		if writeConversationError(w, err) {
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "renamed"})
	}
}

func handleDeleteConversation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := r.URL.Query().Get("owner")
		if owner == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "owner query parameter is required")
			return
		}

		err := deps.Conversations.Delete(r.Context(), chi.URLParam(r, "id"), owner)
		if writeConversationError(w, err) {
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}

type SendMessageRequest struct {
	OwnerID string `json:"ownerId"`
	Content string `json:"content"`
}

func handleSendMessage(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.OwnerID == "" || req.Content == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "ownerId and content are required")
			return
		}

		reply, err := deps.Chat.Send(r.Context(), req.OwnerID, chi.URLParam(r, "id"), req.Content)
		if writeConversationError(w, err) {
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(reply)
	}
}

func handleGetProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := r.URL.Query().Get("owner")
		if owner == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "owner query parameter is required")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("kind") == storage.ProfileKindDynamic {
			p, found, err := deps.Profiles.GetDynamic(r.Context(), owner)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to get dynamic profile: %v", err)
				return
			}
			if !found {
				httpError(w, http.StatusNotFound, "not_found", "no dynamic profile for this owner yet")
				return
			}
			json.NewEncoder(w).Encode(p)
			return
		}

		p, found, err := deps.Profiles.GetPersonality(r.Context(), owner)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get profile: %v", err)
			return
		}
		if !found {
			httpError(w, http.StatusNotFound, "not_found", "no profile for this owner yet")
			return
		}
		json.NewEncoder(w).Encode(p)
	}
}

type PatchProfileRequest struct {
	OwnerID string            `json:"ownerId"`
	Set     map[string]string `json:"set"`
}

func handlePatchProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req PatchProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.OwnerID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "ownerId is required")
			return
		}
		if len(req.Set) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "set must contain at least one preference")
			return
		}

		var updated profile.PersonalityProfile
		for key, value := range req.Set {
			p, err := deps.Profiles.SetPreference(r.Context(), req.OwnerID, key, value)
			if errors.Is(err, profile.ErrUnknownPreference) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v (valid keys: %v)", err, profile.PreferenceKeys())
				return
			}
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "failed to set %q: %v", key, err)
				return
			}
			updated = p
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated)
	}
}

func handleCompileContext(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := r.URL.Query().Get("owner")
		if owner == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "owner query parameter is required")
			return
		}

		block, err := deps.Compiler.Compile(r.Context(), owner)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to compile context: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"context": block})
	}
}

// writeConversationError maps service errors onto the response and reports
// whether one was written.
func writeConversationError(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, conversation.ErrAccessDenied):
		httpError(w, http.StatusForbidden, "access_denied", "conversation belongs to a different owner")
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "conversation not found")
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
	return true
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
