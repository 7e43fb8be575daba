package excerpt

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no archived bundle has the requested identifier.
var ErrNotFound = errors.New("archived bundle not found")

type ArchiveRepository interface {
	Create(ctx context.Context, a *ArchivedBundle) error
	GetByIdentifier(ctx context.Context, identifier string) (*ArchivedBundle, error)
	List(ctx context.Context, limit, offset int) ([]*ArchivedBundle, int, error)
	ListBySource(ctx context.Context, sourceIdentifier string, limit, offset int) ([]*ArchivedBundle, int, error)
}
