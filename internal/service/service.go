// Package service implements the chat session and turn pipeline.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/xiaot623/gogo/fraudgpt/internal/adapter/llm"
	"github.com/xiaot623/gogo/fraudgpt/internal/config"
	"github.com/xiaot623/gogo/fraudgpt/internal/domain"
	"github.com/xiaot623/gogo/fraudgpt/internal/imageproc"
	"github.com/xiaot623/gogo/fraudgpt/internal/repository"
	"github.com/xiaot623/gogo/fraudgpt/policy"
)

// Admission decides whether a turn's input is acceptable.
type Admission interface {
	Evaluate(ctx context.Context, input policy.Input) ([]string, error)
}

// Notifier receives every persisted message and session deletion.
type Notifier interface {
	Publish(ev domain.Event)
}

// Recorder collects service metrics.
type Recorder interface {
	ObserveTurn(outcome domain.TurnOutcome)
	ObserveEngine(provider string, d time.Duration)
	SessionCreated()
	SessionDeleted()
}

type Service struct {
	store      repository.Store
	engine     llm.Client
	admission  Admission
	normalizer *imageproc.Normalizer
	notifier   Notifier
	metrics    Recorder
	config     *config.Config
	log        logrus.FieldLogger
	now        func() time.Time
	newID      func() string

	turns sync.WaitGroup
}

// Option customizes a Service.
type Option func(*Service)

// WithNotifier publishes persisted messages to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics records turn and session metrics on r.
func WithMetrics(r Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.log = l }
}

// WithNormalizer replaces the default image normalizer.
func WithNormalizer(n *imageproc.Normalizer) Option {
	return func(s *Service) { s.normalizer = n }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator sets the generator of session and message ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// New creates a Service. admission may be nil, in which case every turn is admitted.
func New(store repository.Store, engine llm.Client, admission Admission, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		store:      store,
		engine:     engine,
		admission:  admission,
		normalizer: imageproc.NewNormalizer(),
		notifier:   nopNotifier{},
		metrics:    nopRecorder{},
		config:     cfg,
		log:        logrus.StandardLogger(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Health checks that the store is reachable.
func (s *Service) Health(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Drain waits until every in-flight turn has finished or ctx ends. Call it after the
// transport stops accepting requests and before the store is closed.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.turns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// clampLimit maps zero, negative and oversized limits to max.
func clampLimit(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}

type nopNotifier struct{}

func (nopNotifier) Publish(domain.Event) {}

type nopRecorder struct{}

func (nopRecorder) ObserveTurn(domain.TurnOutcome) {}
func (nopRecorder) ObserveEngine(string, time.Duration) {}
func (nopRecorder) SessionCreated() {}
func (nopRecorder) SessionDeleted() {}
