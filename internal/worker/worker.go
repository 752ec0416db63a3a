// Package worker processes profile analysis jobs from the SQLite job queue.
// The chat pipeline enqueues a job per message turn; the worker re-analyzes
// the owner's full conversation history and rewrites the profile documents.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/inima-app/inima/internal/insight"
	"github.com/inima-app/inima/internal/profile"
	"github.com/inima-app/inima/internal/storage"
)

// Job types handled by this worker.
const (
	JobTypeProfileRefresh = "profile_refresh"
	JobTypeDynamicRefresh = "dynamic_refresh"
)

// Payload is the job payload for both analysis job types.
type Payload struct {
	OwnerID string `json:"owner_id"`
}

// Store abstracts the queue and conversation access the worker needs.
// Implemented by storage.Store.
type Store interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	ListConversationsByOwnerSorted(ctx context.Context, ownerID string) ([]storage.Conversation, error)
}

type Worker struct {
	store      Store
	analyzer   insight.Analyzer
	builder    *profile.Builder
	dynamic    *profile.DynamicAnalyzer
	profiles   *profile.Manager
	staleAfter time.Duration
	poll       time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewWorker creates a Worker. pollInterval <= 0 defaults to 500ms;
// staleAfter <= 0 defaults to 10 minutes.
func NewWorker(store Store, profiles *profile.Manager, staleAfter, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &Worker{
		store:      store,
		analyzer:   insight.NewAnalyzer(),
		builder:    profile.NewBuilder(),
		dynamic:    profile.NewDynamicAnalyzer(),
		profiles:   profiles,
		staleAfter: staleAfter,
		poll:       pollInterval,
		logger:     slog.Default(),
		now:        time.Now,
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes at most one job. It returns true when a job
// was processed (successfully or not), so the caller can poll again without
// delay.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobTypeProfileRefresh, JobTypeDynamicRefresh})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.process(ctx, job); err != nil {
		w.logger.Warn("analysis job failed", "id", job.ID, "type", job.Type, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			return true, fmt.Errorf("recording job failure: %w", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) process(ctx context.Context, job *storage.Job) error {
	var payload Payload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("unmarshalling payload: %w", err)
	}
	if payload.OwnerID == "" {
		return fmt.Errorf("payload missing owner_id")
	}

	switch job.Type {
	case JobTypeProfileRefresh:
		return w.refreshPersonality(ctx, payload.OwnerID)
	case JobTypeDynamicRefresh:
		return w.refreshDynamic(ctx, payload.OwnerID)
	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
}

func (w *Worker) refreshPersonality(ctx context.Context, ownerID string) error {
	convs, insights, err := w.analyzeAll(ctx, ownerID)
	if err != nil {
		return err
	}

	var prev *profile.PersonalityProfile
	if existing, found, err := w.profiles.GetPersonality(ctx, ownerID); err != nil {
		return err
	} else if found {
		prev = &existing
	}

	built := w.builder.Build(convs, insights, prev, w.now())
	if err := w.profiles.SavePersonality(ctx, ownerID, built); err != nil {
		return err
	}
	w.logger.Debug("personality profile rebuilt",
		"owner", ownerID,
		"conversations", built.TotalConversations,
		"messages", built.TotalMessages,
	)
	return nil
}

func (w *Worker) refreshDynamic(ctx context.Context, ownerID string) error {
	// Refresh-if-stale: sends enqueue this job unconditionally, so a fresh
	// document makes the job a no-op.
	if !w.profiles.DynamicStale(ctx, ownerID, w.staleAfter) {
		return nil
	}

	convs, insights, err := w.analyzeAll(ctx, ownerID)
	if err != nil {
		return err
	}

	built := w.dynamic.Analyze(convs, insights, w.now())
	return w.profiles.SaveDynamic(ctx, ownerID, built)
}

// analyzeAll loads the owner's conversations and extracts one insight per
// conversation, in matching order.
func (w *Worker) analyzeAll(ctx context.Context, ownerID string) ([]storage.Conversation, []insight.Insight, error) {
	convs, err := w.store.ListConversationsByOwnerSorted(ctx, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading conversations: %w", err)
	}

	insights := make([]insight.Insight, len(convs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, conv := range convs {
		g.Go(func() error {
			insights[i] = w.analyzer.Analyze(conv)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return convs, insights, nil
}
