package excerpt

import (
	"errors"
	"fmt"

	"github.com/ehr/notification-builder/internal/platform/fhir"
	"github.com/ehr/notification-builder/pkg/fhirmodels"
)

// ErrNoStrategy is returned when no strategy applies to a bundle.
var ErrNoStrategy = errors.New("no transformation strategy applies to bundle")

// Strategy is one (source tier, target tier, flavor) transformation.
type Strategy struct {
	Name      string
	Applies   func(b *fhir.Bundle) bool
	Transform func(b *fhir.Bundle) (*fhir.Bundle, error)
}

// Dispatcher evaluates its strategies top to bottom and runs the first one
// that applies.
type Dispatcher struct {
	strategies []Strategy
}

func NewDispatcher(strategies ...Strategy) *Dispatcher {
	return &Dispatcher{strategies: strategies}
}

// Strategies returns the registered strategies in evaluation order.
func (d *Dispatcher) Strategies() []Strategy {
	return append([]Strategy(nil), d.strategies...)
}

// Select returns the first strategy applicable to b.
func (d *Dispatcher) Select(b *fhir.Bundle) (Strategy, error) {
	for _, s := range d.strategies {
		if s.Applies(b) {
			return s, nil
		}
	}
	return Strategy{}, fmt.Errorf("%w (profiles %v)", ErrNoStrategy, b.Profiles())
}

// Dispatch transforms b with the first applicable strategy.
func (d *Dispatcher) Dispatch(b *fhir.Bundle) (*fhir.Bundle, error) {
	_, out, err := d.Run(b)
	return out, err
}

// Run is Dispatch that also reports the name of the strategy that ran. The
// name is empty when none applied.
func (d *Dispatcher) Run(b *fhir.Bundle) (string, *fhir.Bundle, error) {
	s, err := d.Select(b)
	if err != nil {
		return "", nil, err
	}
	out, err := s.Transform(b)
	if err != nil {
		return s.Name, nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	return s.Name, out, nil
}

// HasBundleProfile matches bundles declaring the canonical profile of flavor
// and tier.
func HasBundleProfile(flavor fhirmodels.Flavor, tier fhirmodels.Tier) func(*fhir.Bundle) bool {
	return func(b *fhir.Bundle) bool {
		for _, p := range b.Profiles() {
			if f, t, ok := fhirmodels.ParseBundleProfile(p); ok && f == flavor && t == tier {
				return true
			}
		}
		return false
	}
}

func (e *Engine) strategy(flavor fhirmodels.Flavor, source, target fhirmodels.Tier) Strategy {
	pipeline := e.Laboratory
	if flavor == fhirmodels.FlavorDisease {
		pipeline = e.Disease
	}
	return Strategy{
		Name:    fmt.Sprintf("%s-%s-to-%s", flavor, source, target),
		Applies: HasBundleProfile(flavor, source),
		Transform: func(b *fhir.Bundle) (*fhir.Bundle, error) {
			return pipeline(b, target)
		},
	}
}

// NewExcerptDispatcher registers the tier downgrades: nominal to
// non-nominal and non-nominal to anonymous, for both flavors.
func NewExcerptDispatcher(e *Engine) *Dispatcher {
	return NewDispatcher(
		e.strategy(fhirmodels.FlavorLaboratory, fhirmodels.TierNominal, fhirmodels.TierNonNominal),
		e.strategy(fhirmodels.FlavorLaboratory, fhirmodels.TierNonNominal, fhirmodels.TierAnonymous),
		e.strategy(fhirmodels.FlavorDisease, fhirmodels.TierNominal, fhirmodels.TierNonNominal),
		e.strategy(fhirmodels.FlavorDisease, fhirmodels.TierNonNominal, fhirmodels.TierAnonymous),
	)
}

// NewCopyDispatcher registers the same-tier deep copies.
func NewCopyDispatcher(e *Engine) *Dispatcher {
	return NewDispatcher(
		e.strategy(fhirmodels.FlavorLaboratory, fhirmodels.TierNominal, fhirmodels.TierNominal),
		e.strategy(fhirmodels.FlavorLaboratory, fhirmodels.TierNonNominal, fhirmodels.TierNonNominal),
		e.strategy(fhirmodels.FlavorDisease, fhirmodels.TierNominal, fhirmodels.TierNominal),
		e.strategy(fhirmodels.FlavorDisease, fhirmodels.TierNonNominal, fhirmodels.TierNonNominal),
	)
}
