package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/angelsplants/checkout-backend/pkg/config"
	"github.com/angelsplants/checkout-backend/pkg/db/models"
	"github.com/angelsplants/checkout-backend/pkg/enums"
	"github.com/angelsplants/checkout-backend/pkg/logger"
	"github.com/angelsplants/checkout-backend/pkg/metrics"
	"github.com/angelsplants/checkout-backend/pkg/outbox/registry"
)

const (
	fallbackBatchSize   = 50
	fallbackInterval    = 500 * time.Millisecond
	fallbackMaxAttempts = 10
	maxErrorBackoff     = 10 * time.Second
	errorJitter         = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	DLQRepository    dlqRepository
	PublisherFactory publisherFactory
	Metrics          *metrics.OutboxMetrics
	Now              func() time.Time
}

// Service drains committed outbox rows to Pub/Sub. Every row fetched in a batch
// leaves it published, scheduled for another attempt, or dead-lettered.
type Service struct {
	logg     *logger.Logger
	db       dbClient
	pubsub   pubSubClient
	repo     outboxRepository
	dlq      dlqRepository
	registry registryResolver
	topics   *topicPublishers
	metrics  *metrics.OutboxMetrics
	now      func() time.Time

	batchSize   int
	maxAttempts int
	interval    time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	required := []struct {
		name    string
		missing bool
	}{
		{"config", params.Config == nil},
		{"logger", params.Logger == nil},
		{"database client", params.DB == nil},
		{"pubsub client", params.PubSub == nil},
		{"outbox repository", params.Repository == nil},
		{"event registry", params.Registry == nil},
		{"dlq repository", params.DLQRepository == nil},
	}
	for _, dep := range required {
		if dep.missing {
			return nil, fmt.Errorf("%s is required", dep.name)
		}
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = gcpPublisherFactory(params.PubSub)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	cfg := params.Config.Outbox
	svc := &Service{
		logg:        params.Logger,
		db:          params.DB,
		pubsub:      params.PubSub,
		repo:        params.Repository,
		dlq:         params.DLQRepository,
		registry:    params.Registry,
		topics:      newTopicPublishers(factory),
		metrics:     params.Metrics,
		now:         now,
		batchSize:   fallbackBatchSize,
		maxAttempts: fallbackMaxAttempts,
		interval:    fallbackInterval,
	}
	if cfg.BatchSize > 0 {
		svc.batchSize = cfg.BatchSize
	}
	if cfg.MaxAttempts > 0 {
		svc.maxAttempts = cfg.MaxAttempts
	}
	if cfg.PollIntervalMS > 0 {
		svc.interval = time.Duration(cfg.PollIntervalMS) * time.Millisecond
	}
	return svc, nil
}

// Run polls until ctx is canceled. A full batch is followed immediately by the
// next one; an empty batch waits one poll interval; a failed batch backs off.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	backoff := s.errorBackoff()
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		found, err := s.processBatch(ctx)
		wait := s.interval
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			wait, _ = backoff.Next()
		case found:
			backoff = s.errorBackoff()
			continue
		default:
			backoff = s.errorBackoff()
		}

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (s *Service) errorBackoff() retry.Backoff {
	b := retry.NewExponential(s.interval)
	b = retry.WithJitter(errorJitter, b)
	return retry.WithCappedDuration(maxErrorBackoff, b)
}

func (s *Service) ready(ctx context.Context) error {
	checks := []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", s.db.Ping},
		{"pubsub", s.pubsub.Ping},
	}
	for _, check := range checks {
		if err := check.ping(ctx); err != nil {
			s.logg.Error(ctx, check.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", check.name, err)
		}
	}
	return nil
}

// processBatch locks one batch of rows, publishes each and records the outcome in
// the same transaction. It reports whether any rows were found.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	found := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		found = len(events) > 0
		for _, event := range events {
			if err := s.record(ctx, tx, s.deliver(ctx, event)); err != nil {
				return err
			}
		}
		return nil
	})
	return found, err
}

type disposition int

const (
	dispositionPublished disposition = iota
	dispositionRetry
	dispositionDeadLetter
)

func (d disposition) String() string {
	switch d {
	case dispositionPublished:
		return "published"
	case dispositionRetry:
		return "retry"
	default:
		return "dlq"
	}
}

type delivery struct {
	event   models.OutboxEvent
	eventID string
	topic   string
	result  disposition
	reason  enums.OutboxDLQErrorReason
	err     error
}

func (d delivery) deadLetter(reason enums.OutboxDLQErrorReason, err error) delivery {
	d.result = dispositionDeadLetter
	d.reason = reason
	d.err = err
	return d
}

func (s *Service) deliver(ctx context.Context, event models.OutboxEvent) delivery {
	d := delivery{event: event}
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return d.deadLetter(enums.OutboxDLQReasonNonRetryable, err)
	}
	d.eventID = resolved.Envelope.EventID
	d.topic = resolved.Descriptor.Topic

	err = s.topics.publish(ctx, d.topic, messageFor(event, resolved.Envelope))
	var nonRetryable registry.NonRetryableError
	switch {
	case err == nil:
		d.result = dispositionPublished
	case errors.As(err, &nonRetryable):
		return d.deadLetter(enums.OutboxDLQReasonNonRetryable, err)
	case event.AttemptCount+1 >= s.maxAttempts:
		return d.deadLetter(enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", err))
	default:
		d.result = dispositionRetry
		d.err = err
	}
	return d
}

func (s *Service) record(ctx context.Context, tx *gorm.DB, d delivery) error {
	id := d.event.ID
	logCtx := s.logg.WithFields(ctx, s.fields(d))

	switch d.result {
	case dispositionPublished:
		if err := s.repo.MarkPublishedTx(tx, id); err != nil {
			return fmt.Errorf("mark published %s: %w", id, err)
		}
		s.logg.Info(logCtx, "outbox event published")
	case dispositionRetry:
		if err := s.repo.MarkFailedTx(tx, id, d.err); err != nil {
			return fmt.Errorf("mark failure %s: %w", id, err)
		}
		s.logg.Warn(logCtx, "outbox publish failed")
	case dispositionDeadLetter:
		msg := d.err.Error()
		entry := models.OutboxDLQ{
			EventID:       id,
			EventType:     d.event.EventType,
			AggregateType: d.event.AggregateType,
			AggregateID:   d.event.AggregateID,
			Payload:       d.event.Payload,
			ErrorReason:   d.reason,
			ErrorMessage:  &msg,
			AttemptCount:  d.event.AttemptCount,
			FailedAt:      s.now().UTC(),
		}
		if err := s.dlq.InsertTx(tx, entry); err != nil {
			return fmt.Errorf("insert dlq %s: %w", id, err)
		}
		if err := s.repo.MarkTerminalTx(tx, id, d.err, s.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", id, err)
		}
		s.logg.Warn(logCtx, "outbox event dead-lettered")
	}
	s.metrics.Inc(string(d.event.EventType), d.result.String())
	return nil
}

func (s *Service) fields(d delivery) map[string]any {
	fields := map[string]any{
		"outbox_id":      d.event.ID.String(),
		"event_type":     d.event.EventType,
		"aggregate_type": d.event.AggregateType,
		"aggregate_id":   d.event.AggregateID.String(),
		"attempt_count":  d.event.AttemptCount,
		"disposition":    d.result.String(),
	}
	if d.eventID != "" {
		fields["event_id"] = d.eventID
	}
	if d.topic != "" {
		fields["topic"] = d.topic
	}
	if d.reason != "" {
		fields["error_reason"] = d.reason
	}
	if d.err != nil {
		fields["error"] = d.err.Error()
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
