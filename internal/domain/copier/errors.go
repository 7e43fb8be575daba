package copier

import "fmt"

// Violation reasons.
const (
	ReasonNotCopied     = "referenced before it was copied"
	ReasonCopiedTwice   = "copied more than once"
	ReasonNoStrategy    = "no copy strategy for this record kind"
	ReasonSpecimenGroup = "specimen group did not yield exactly one copy per specimen"
	ReasonDangling      = "reference does not resolve within the bundle"
	ReasonOmitted       = "referenced after it was left out"
)

// CopyContractViolation is a programming error in a pipeline: a dependency
// was referenced before being copied, or a shared record was copied twice.
// It is never a recoverable runtime state.
type CopyContractViolation struct {
	Kind   string
	ID     string
	Reason string
}

func (e *CopyContractViolation) Error() string {
	return fmt.Sprintf("copy contract violated for %s/%s: %s", e.Kind, e.ID, e.Reason)
}

func violation(kind, id, reason string) error {
	return &CopyContractViolation{Kind: kind, ID: id, Reason: reason}
}
