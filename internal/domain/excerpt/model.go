package excerpt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/notification-builder/internal/platform/fhir"
)

// Archive operations.
const (
	OperationExcerpt = "excerpt"
	OperationCopy    = "copy"
)

// ArchivedBundle maps to the excerpt_archive table: one produced bundle and
// the bundle it was derived from.
type ArchivedBundle struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	Identifier       string          `db:"identifier" json:"identifier"`
	SourceIdentifier *string         `db:"source_identifier" json:"source_identifier,omitempty"`
	Operation        string          `db:"operation" json:"operation"`
	Strategy         string          `db:"strategy" json:"strategy"`
	Profile          string          `db:"profile" json:"profile"`
	Body             json.RawMessage `db:"body" json:"bundle"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// NewArchivedBundle records result, produced from source by operation.
func NewArchivedBundle(operation string, source *fhir.Bundle, result *Result) (*ArchivedBundle, error) {
	if result == nil || result.Bundle == nil {
		return nil, fmt.Errorf("archive %s: no bundle", operation)
	}
	var body bytes.Buffer
	if err := fhir.Encode(&body, result.Bundle, false); err != nil {
		return nil, fmt.Errorf("archive %s: %w", operation, err)
	}
	a := &ArchivedBundle{
		Identifier: identifierOf(result.Bundle),
		Operation:  operation,
		Strategy:   result.Strategy,
		Body:       json.RawMessage(bytes.TrimSpace(body.Bytes())),
	}
	if v := identifierOf(source); v != "" {
		a.SourceIdentifier = &v
	}
	if p := result.Bundle.Profiles(); len(p) > 0 {
		a.Profile = p[0]
	}
	return a, nil
}

// Bundle decodes the archived body.
func (a *ArchivedBundle) Bundle() (*fhir.Bundle, error) {
	return fhir.Decode(bytes.NewReader(a.Body))
}

func identifierOf(b *fhir.Bundle) string {
	if b == nil || b.Identifier == nil {
		return ""
	}
	return b.Identifier.Value
}
