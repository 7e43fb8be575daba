// Package excerpt turns a notification bundle into a new, independent bundle
// at the same or the next lower privacy tier.
//
// An Engine runs one pipeline per flavor. Each pipeline extracts the typed
// context of the source bundle, substitutes the subject for the target tier,
// copies the remaining records in dependency order through a CopyMap and
// assembles the copies in canonical order. Dispatchers select the pipeline
// and transition by inspecting the bundle profile.
package excerpt

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/notification-builder/internal/domain/assembler"
	"github.com/ehr/notification-builder/internal/domain/bundlectx"
	"github.com/ehr/notification-builder/internal/domain/copier"
	"github.com/ehr/notification-builder/internal/domain/redaction"
	"github.com/ehr/notification-builder/internal/platform/fhir"
	"github.com/ehr/notification-builder/pkg/fhirmodels"
)

// ErrUnsupportedTransition is returned for tier pairs no pipeline implements.
var ErrUnsupportedTransition = errors.New("unsupported tier transition")

// Engine runs the laboratory and disease pipelines. It holds no per-call
// state, so one Engine may serve concurrent transformations as long as its
// id generator is safe for concurrent use.
type Engine struct {
	redactor redaction.Redactor
	ids      fhir.IDGenerator
	baseURL  string
	logger   zerolog.Logger
	observer Observer
}

// Observer is told about records left out of an excerpt.
type Observer interface {
	Omitted(flavor, resourceType string)
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRedactor replaces the default subject redactor.
func WithRedactor(r redaction.Redactor) EngineOption {
	return func(e *Engine) { e.redactor = r }
}

// WithIDGenerator sets the generator for record ids, bundle ids and
// identifiers. The default redactor shares it.
func WithIDGenerator(ids fhir.IDGenerator) EngineOption {
	return func(e *Engine) { e.ids = ids }
}

// WithBaseURL sets the base of entry full URLs.
func WithBaseURL(base string) EngineOption {
	return func(e *Engine) { e.baseURL = base }
}

// WithLogger sets the logger used for best-effort omissions.
func WithLogger(l zerolog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithObserver sets the receiver of omission events.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) { e.observer = o }
}

// NewEngine creates an Engine. Without options it issues random UUIDs, uses
// the default redactor and logs nothing.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		baseURL: fhirmodels.DefaultFHIRBase,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ids == nil {
		e.ids = fhir.UUIDGenerator{}
	}
	if e.redactor == nil {
		e.redactor = redaction.NewDefaultRedactor(e.ids)
	}
	return e
}

// Laboratory transforms a laboratory notification to the target tier.
func (e *Engine) Laboratory(b *fhir.Bundle, target fhirmodels.Tier) (*fhir.Bundle, error) {
	return e.run(b, fhirmodels.FlavorLaboratory, target, (*pass).laboratory)
}

// Disease transforms a disease notification to the target tier.
func (e *Engine) Disease(b *fhir.Bundle, target fhirmodels.Tier) (*fhir.Bundle, error) {
	return e.run(b, fhirmodels.FlavorDisease, target, (*pass).disease)
}

func (e *Engine) run(b *fhir.Bundle, flavor fhirmodels.Flavor, target fhirmodels.Tier, pipeline func(*pass) error) (*fhir.Bundle, error) {
	ctx, err := bundlectx.Extract(b)
	if err != nil {
		return nil, err
	}
	if ctx.Flavor != flavor {
		return nil, fmt.Errorf("%w: %s pipeline cannot transform a %s notification", ErrUnsupportedTransition, flavor, ctx.Flavor)
	}
	if !supported(ctx.Tier, target) {
		return nil, fmt.Errorf("%w: %s %q to %q", ErrUnsupportedTransition, flavor, ctx.Tier, target)
	}
	profile, ok := fhirmodels.BundleProfile(flavor, target)
	if !ok {
		return nil, fmt.Errorf("%w: no %s bundle profile for tier %q", ErrUnsupportedTransition, flavor, target)
	}

	p := &pass{
		engine: e,
		ctx:    ctx,
		m:      copier.New(ctx.Index(), e.ids),
		parts:  &assembler.Parts{},
		source: ctx.Tier,
		target: target,
		logger: e.logger.With().
			Str("flavor", string(flavor)).
			Str("source_tier", string(ctx.Tier)).
			Str("target_tier", string(target)).
			Logger(),
	}
	if err := pipeline(p); err != nil {
		return nil, err
	}

	out, err := assembler.Assemble(p.parts, profile, assembler.SourceMetaOf(b), assembler.Options{
		BaseURL: e.baseURL,
		IDs:     e.ids,
	})
	if err != nil {
		return nil, err
	}
	if err := VerifyReferences(out, b); err != nil {
		return nil, err
	}
	return out, nil
}

// supported lists the transitions the pipelines implement: same-tier copies
// below the anonymous tier and one step down.
func supported(source, target fhirmodels.Tier) bool {
	switch source {
	case fhirmodels.TierNominal:
		return target == fhirmodels.TierNominal || target == fhirmodels.TierNonNominal
	case fhirmodels.TierNonNominal:
		return target == fhirmodels.TierNonNominal || target == fhirmodels.TierAnonymous
	}
	return false
}
