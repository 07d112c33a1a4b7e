package provision

import "fmt"

// ValidationError reports locally detectable bad input, before any call to
// the DNS server is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SnapshotError reports an unexpected zone snapshot shape, such as a missing
// rrset array. It is distinct from an empty filter match.
type SnapshotError struct {
	Zone   string
	Reason string
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("bad snapshot for zone %s: %s", e.Zone, e.Reason)
}
