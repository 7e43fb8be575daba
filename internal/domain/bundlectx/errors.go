package bundlectx

import "fmt"

// Roles that Extract resolves. Errors name the role that failed.
const (
	RoleComposition      = "composition"
	RoleSubject          = "subject"
	RoleNotifier         = "notifier"
	RoleSubmitter        = "submitter"
	RoleCondition        = "condition"
	RoleDiagnosticReport = "diagnosticReport"
	RoleObservation      = "observation"
	RoleSpecimen         = "specimen"
	RoleFlavor           = "flavor"
)

// ContextResolutionError reports that a required role of a notification
// could not be resolved from the source bundle. It is fatal to the whole
// transformation.
type ContextResolutionError struct {
	Role   string
	Reason string
}

func (e *ContextResolutionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("cannot resolve %s", e.Role)
	}
	return fmt.Sprintf("cannot resolve %s: %s", e.Role, e.Reason)
}

func unresolved(role, format string, args ...interface{}) error {
	return &ContextResolutionError{Role: role, Reason: fmt.Sprintf(format, args...)}
}
