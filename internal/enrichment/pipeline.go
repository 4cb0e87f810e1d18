package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/socialink/internal/generator"
	"github.com/charlesng35/socialink/internal/notify"
	"github.com/charlesng35/socialink/internal/tasks"
	"github.com/charlesng35/socialink/pkg/logger"
	"github.com/charlesng35/socialink/pkg/metrics"
)

// TaskName labels enrichment runs in the task runner.
const TaskName = "enrich_post"

// ErrInvalidJob rejects jobs missing a recipient, post or prompt.
var ErrInvalidJob = errors.New("enrichment: invalid job")

// Job is a pending enrichment for one freshly created post. It is built in
// memory and handed to a single Run.
type Job struct {
	UserEmail string
	PostID    uint
	PostURL   string
	Prompt    string
}

func (j Job) validate() error {
	switch {
	case strings.TrimSpace(j.UserEmail) == "":
		return fmt.Errorf("%w: missing user email", ErrInvalidJob)
	case j.PostID == 0:
		return fmt.Errorf("%w: missing post id", ErrInvalidJob)
	case strings.TrimSpace(j.Prompt) == "":
		return fmt.Errorf("%w: missing prompt", ErrInvalidJob)
	}
	return nil
}

// PostStore persists the generated image URL.
type PostStore interface {
	SetImageURL(ctx context.Context, postID uint, url string) error
}

// Pipeline generates an image for a post, stores its URL and emails the
// author about the outcome.
type Pipeline struct {
	generator generator.Generator
	posts     PostStore
	notifier  notify.Sender
	log       *zap.Logger
	record    func(outcome string)
}

// Run outcomes, one per attempt.
const (
	OutcomeCompleted        = "completed"
	OutcomeGenerationFailed = "generation_failed"
	OutcomePersistFailed    = "persist_failed"
	OutcomeNotifyFailed     = "notify_failed"
)

func recordOutcome(outcome string) {
	metrics.EnrichmentRuns.WithLabelValues(outcome).Inc()
}

// NewPipeline wires the pipeline collaborators.
func NewPipeline(gen generator.Generator, posts PostStore, notifier notify.Sender) (*Pipeline, error) {
	if gen == nil {
		return nil, errors.New("enrichment: generator is required")
	}
	if posts == nil {
		return nil, errors.New("enrichment: post store is required")
	}
	if notifier == nil {
		return nil, errors.New("enrichment: notifier is required")
	}
	return &Pipeline{
		generator: gen,
		posts:     posts,
		notifier:  notifier,
		log:       logger.WithModule("enrichment"),
		record:    recordOutcome,
	}, nil
}

// Task adapts a job for the background runner.
func (p *Pipeline) Task(job Job) tasks.Task {
	return func(ctx context.Context) error {
		return p.Run(ctx, job)
	}
}

// Run executes one attempt. A generation failure is answered with a failure
// email and leaves the post untouched. Errors returned from Run are never
// retried. Each attempt records exactly one outcome; a run whose generation
// failed counts as generation_failed even when the failure email bounces.
func (p *Pipeline) Run(ctx context.Context, job Job) error {
	if err := job.validate(); err != nil {
		return err
	}

	outcome, err := p.run(ctx, job)
	p.record(outcome)
	return err
}

func (p *Pipeline) run(ctx context.Context, job Job) (string, error) {
	log := p.log.With(zap.Uint("post_id", job.PostID), zap.String("user", logger.MaskEmail(job.UserEmail)))

	imageURL, err := p.generator.Generate(ctx, job.Prompt)
	if err != nil {
		log.Warn("image generation failed", zap.Error(err))
		if sendErr := notify.SendEmail(ctx, p.notifier, job.UserEmail, notify.EnrichmentFailedEmail(job.UserEmail)); sendErr != nil {
			return OutcomeGenerationFailed, fmt.Errorf("enrichment: notify generation failure: %w", sendErr)
		}
		return OutcomeGenerationFailed, nil
	}

	if err := p.posts.SetImageURL(ctx, job.PostID, imageURL); err != nil {
		return OutcomePersistFailed, fmt.Errorf("enrichment: store image url: %w", err)
	}
	log.Info("post image stored")

	completed := notify.EnrichmentCompletedEmail(job.UserEmail, job.PostURL)
	if err := notify.SendEmail(ctx, p.notifier, job.UserEmail, completed); err != nil {
		return OutcomeNotifyFailed, fmt.Errorf("enrichment: notify completion: %w", err)
	}
	return OutcomeCompleted, nil
}
