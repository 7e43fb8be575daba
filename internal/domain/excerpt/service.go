package excerpt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/notification-builder/internal/platform/fhir"
)

// ErrArchiveDisabled is returned by archive reads when no archive is configured.
var ErrArchiveDisabled = errors.New("excerpt archive is not configured")

// Result is a produced bundle and the strategy that produced it.
type Result struct {
	Bundle   *fhir.Bundle
	Strategy string
}

// Metrics receives one observation per transformation.
type Metrics interface {
	ObserveTransformation(strategy string, err error, d time.Duration)
}

type Service struct {
	excerpts *Dispatcher
	copies   *Dispatcher
	archive  ArchiveRepository
	metrics  Metrics
	logger   zerolog.Logger
}

// NewService creates a service running the excerpt and copy registries of
// engine. archive may be nil, in which case results are not stored.
func NewService(engine *Engine, archive ArchiveRepository) *Service {
	return &Service{
		excerpts: NewExcerptDispatcher(engine),
		copies:   NewCopyDispatcher(engine),
		archive:  archive,
		logger:   zerolog.Nop(),
	}
}

// SetMetrics attaches an optional metrics sink.
func (s *Service) SetMetrics(m Metrics) {
	s.metrics = m
}

// SetLogger sets the logger for transformation events.
func (s *Service) SetLogger(l zerolog.Logger) {
	s.logger = l
}

// ArchiveEnabled reports whether results are archived.
func (s *Service) ArchiveEnabled() bool {
	return s.archive != nil
}

// Excerpt lowers b one privacy tier.
func (s *Service) Excerpt(ctx context.Context, b *fhir.Bundle) (*Result, error) {
	return s.run(ctx, OperationExcerpt, s.excerpts, b)
}

// Copy produces an independent same-tier copy of b.
func (s *Service) Copy(ctx context.Context, b *fhir.Bundle) (*Result, error) {
	return s.run(ctx, OperationCopy, s.copies, b)
}

func (s *Service) run(ctx context.Context, operation string, d *Dispatcher, b *fhir.Bundle) (*Result, error) {
	start := time.Now()
	strategy, out, err := d.Run(b)
	if s.metrics != nil {
		s.metrics.ObserveTransformation(strategy, err, time.Since(start))
	}

	logger := s.logger.With().
		Str("operation", operation).
		Str("source_identifier", identifierOf(b)).
		Logger()
	if err != nil {
		logger.Warn().Err(err).Str("strategy", strategy).Msg("notification transformation failed")
		return nil, err
	}

	res := &Result{Bundle: out, Strategy: strategy}
	logger.Info().
		Str("strategy", strategy).
		Str("identifier", identifierOf(out)).
		Int("entries", len(out.Entry)).
		Msg("notification transformed")

	if s.archive != nil {
		// The produced bundle is returned even when archiving fails.
		if err := s.store(ctx, operation, b, res); err != nil {
			logger.Error().Err(err).Str("identifier", identifierOf(out)).Msg("archive produced bundle")
		}
	}
	return res, nil
}

func (s *Service) store(ctx context.Context, operation string, source *fhir.Bundle, res *Result) error {
	a, err := NewArchivedBundle(operation, source, res)
	if err != nil {
		return err
	}
	return s.archive.Create(ctx, a)
}

// Get returns the archived bundle with the given identifier.
func (s *Service) Get(ctx context.Context, identifier string) (*ArchivedBundle, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	a, err := s.archive.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("get archived bundle %s: %w", identifier, err)
	}
	return a, nil
}

// List pages through archived bundles, newest first. A non-empty
// sourceIdentifier restricts the listing to bundles derived from that source.
func (s *Service) List(ctx context.Context, sourceIdentifier string, limit, offset int) ([]*ArchivedBundle, int, error) {
	if s.archive == nil {
		return nil, 0, ErrArchiveDisabled
	}
	if sourceIdentifier != "" {
		return s.archive.ListBySource(ctx, sourceIdentifier, limit, offset)
	}
	return s.archive.List(ctx, limit, offset)
}
