// Package chat orchestrates the reply flow: persist the user message, compile
// personalization context, call the model, persist the reply, and kick off
// the background analysis that keeps the profiles fresh.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/inima-app/inima/internal/composer"
	"github.com/inima-app/inima/internal/conversation"
	"github.com/inima-app/inima/internal/llm"
	"github.com/inima-app/inima/internal/personalinfo"
	"github.com/inima-app/inima/internal/profile"
	"github.com/inima-app/inima/internal/storage"
	"github.com/inima-app/inima/internal/worker"
)

// FallbackReply is what the user sees when the model cannot be reached. The
// chat flow always resolves to some visible message.
const FallbackReply = "Îmi pare rău, am o problemă tehnică și nu pot răspunde chiar acum. Mesajul tău a fost salvat — încearcă din nou în câteva momente."

// baseSystemPrompt is the assistant persona; the compiled context is spliced
// in front of it, never instead of it.
const baseSystemPrompt = `Ești Inima, un companion empatic de wellness. Răspunzi cald, în limba română, fără a pune diagnostice medicale. Încurajezi utilizatorul și adaptezi tonul la starea lui.`

// Completer is the model call. Implemented by llm.Client.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// ContextCompiler renders the profile context block. Implemented by
// composer.Compiler.
type ContextCompiler interface {
	Compile(ctx context.Context, ownerID string) (string, error)
}

// JobQueue enqueues background analysis work. Implemented by storage.Store.
type JobQueue interface {
	EnqueueJob(ctx context.Context, job storage.Job) error
}

type Service struct {
	convs     *conversation.Service
	compiler  ContextCompiler
	model     Completer
	profiles  *profile.Manager
	extractor *personalinfo.Extractor
	jobs      JobQueue
	logger    *slog.Logger

	// async runs fire-and-forget work. Tests replace it to run inline.
	async func(fn func())
}

func NewService(
	convs *conversation.Service,
	compiler ContextCompiler,
	model Completer,
	profiles *profile.Manager,
	jobs JobQueue,
) *Service {
	return &Service{
		convs:     convs,
		compiler:  compiler,
		model:     model,
		profiles:  profiles,
		extractor: personalinfo.New(),
		jobs:      jobs,
		logger:    slog.Default(),
		async:     func(fn func()) { go fn() },
	}
}

// SetAsync replaces the background scheduler (tests run work inline).
func (s *Service) SetAsync(fn func(func())) { s.async = fn }

// Send runs one full message turn and returns the assistant's reply message.
//
// Ordering guarantee: the user message is durably appended before the model
// is invoked, and the reply is appended after the call resolves — a crash
// mid-flow loses at most the in-flight reply, never the user's own message.
// Personal-info extraction and profile re-analysis run in the background and
// never block or fail the reply.
func (s *Service) Send(ctx context.Context, ownerID, conversationID, content string) (storage.Message, error) {
	if _, err := s.convs.AppendMessage(ctx, conversationID, ownerID, storage.SenderUser, content); err != nil {
		return storage.Message{}, err
	}

	s.async(func() {
		s.recordPersonalInfo(ownerID, content)
	})

	contextBlock, err := s.compiler.Compile(ctx, ownerID)
	if err != nil {
		s.logger.Warn("context compilation failed, using bootstrap block", "owner", ownerID, "error", err)
		contextBlock = composer.Bootstrap()
	}

	conv, err := s.convs.Get(ctx, conversationID, ownerID)
	if err != nil {
		return storage.Message{}, err
	}

	reply, err := s.model.Complete(ctx, buildMessages(contextBlock, conv.Messages))
	if err != nil {
		if !errors.Is(err, llm.ErrUpstream) {
			return storage.Message{}, fmt.Errorf("completing reply: %w", err)
		}
		s.logger.Warn("model unavailable, serving fallback reply", "conversation", conversationID, "error", err)
		reply = FallbackReply
	}

	aiMsg, err := s.convs.AppendMessage(ctx, conversationID, ownerID, storage.SenderAI, reply)
	if err != nil {
		return storage.Message{}, err
	}

	s.enqueueAnalysis(ownerID)
	return aiMsg, nil
}

func buildMessages(contextBlock string, history []storage.Message) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.Message{
		Role:    llm.RoleSystem,
		Content: composer.Splice(contextBlock, baseSystemPrompt),
	})
	for _, m := range history {
		role := llm.RoleUser
		if m.Sender == storage.SenderAI {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}
	return msgs
}

// recordPersonalInfo scans the message for explicit self-descriptions and
// merges hits into the profile. Best effort: failures are logged and
// swallowed, and the request context is deliberately not used — the reply
// finishing must not cancel this write.
func (s *Service) recordPersonalInfo(ownerID, content string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("personal info extraction panicked", "owner", ownerID, "panic", r)
		}
	}()

	info := s.extractor.Extract(content)
	if info.Empty() {
		return
	}

	if _, err := s.profiles.MergePersonality(context.Background(), ownerID, func(p *profile.PersonalityProfile) {
		personalinfo.Merge(info, p)
	}); err != nil {
		s.logger.Warn("personal info merge failed", "owner", ownerID, "error", err)
	}
}

// enqueueAnalysis schedules the full profile rebuild and the dynamic-profile
// refresh. Queue failures only cost staleness, so they are logged, not
// surfaced.
func (s *Service) enqueueAnalysis(ownerID string) {
	payload, err := json.Marshal(worker.Payload{OwnerID: ownerID})
	if err != nil {
		s.logger.Warn("marshalling analysis payload failed", "owner", ownerID, "error", err)
		return
	}
	for _, jobType := range []string{worker.JobTypeProfileRefresh, worker.JobTypeDynamicRefresh} {
		job := storage.Job{
			ID:          uuid.New().String(),
			Type:        jobType,
			PayloadJSON: string(payload),
		}
		if err := s.jobs.EnqueueJob(context.Background(), job); err != nil {
			s.logger.Warn("enqueueing analysis job failed", "type", jobType, "owner", ownerID, "error", err)
		}
	}
}
