// internal/domain/offspring/status.go
package offspring

// LifecycleStatus is where an offspring group sits in its post-birth lifecycle.
// It is the single source of truth for lifecycle position; events are audit only.
type LifecycleStatus string

const (
	StatusPending       LifecycleStatus = "PENDING"
	StatusBorn          LifecycleStatus = "BORN"
	StatusWeaning       LifecycleStatus = "WEANING"
	StatusWeaned        LifecycleStatus = "WEANED"
	StatusPlacement     LifecycleStatus = "PLACEMENT"
	StatusGroupComplete LifecycleStatus = "GROUP_COMPLETE"
	StatusDissolved     LifecycleStatus = "DISSOLVED"
)

// canonicalOrder lists the forward sequence. DISSOLVED is lateral and never appears here.
var canonicalOrder = []LifecycleStatus{
	StatusPending,
	StatusBorn,
	StatusWeaning,
	StatusWeaned,
	StatusPlacement,
	StatusGroupComplete,
}

// AllStatuses returns every defined status, canonical order first.
func AllStatuses() []LifecycleStatus {
	out := make([]LifecycleStatus, 0, len(canonicalOrder)+1)
	out = append(out, canonicalOrder...)
	return append(out, StatusDissolved)
}

// Valid reports whether s is one of the seven defined statuses.
func (s LifecycleStatus) Valid() bool {
	switch s {
	case StatusPending, StatusBorn, StatusWeaning, StatusWeaned, StatusPlacement, StatusGroupComplete, StatusDissolved:
		return true
	}
	return false
}

// Terminal reports whether no forward transition can leave s.
func (s LifecycleStatus) Terminal() bool {
	return s == StatusGroupComplete || s == StatusDissolved
}

// Position returns the index of s in canonical order, or -1 for DISSOLVED and unknown values.
func (s LifecycleStatus) Position() int {
	for i, candidate := range canonicalOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Next returns the status one position forward in canonical order.
func (s LifecycleStatus) Next() (LifecycleStatus, bool) {
	pos := s.Position()
	if pos < 0 || pos+1 >= len(canonicalOrder) {
		return "", false
	}
	return canonicalOrder[pos+1], true
}

// Previous returns the status one position back in canonical order.
func (s LifecycleStatus) Previous() (LifecycleStatus, bool) {
	pos := s.Position()
	if pos <= 0 {
		return "", false
	}
	return canonicalOrder[pos-1], true
}

// IsDirectSuccessorOf reports whether s sits exactly one canonical position after prev.
func (s LifecycleStatus) IsDirectSuccessorOf(prev LifecycleStatus) bool {
	from, to := prev.Position(), s.Position()
	return from >= 0 && to == from+1
}

func (s LifecycleStatus) String() string { return string(s) }
