// internal/domain/offspring/group.go
package offspring

import "time"

// LifeState records whether a member is alive.
type LifeState string

const (
	LifeStateAlive    LifeState = "ALIVE"
	LifeStateDeceased LifeState = "DECEASED"
)

// PlacementState records whether a member has gone to an external party.
type PlacementState string

const (
	PlacementUnassigned  PlacementState = "UNASSIGNED"
	PlacementOptionHold  PlacementState = "OPTION_HOLD"
	PlacementPlaced      PlacementState = "PLACED"
	PlacementTransferred PlacementState = "TRANSFERRED"
)

// KeeperIntent records whether the owner means to retain a member.
type KeeperIntent string

const (
	KeeperNone            KeeperIntent = "NONE"
	KeeperKeep            KeeperIntent = "KEEP"
	KeeperWithheld        KeeperIntent = "WITHHELD"
	KeeperUnderEvaluation KeeperIntent = "UNDER_EVALUATION"
)

// Group is the aggregate root for a cohort of offspring sharing one birth event.
// Corresponds to the 'offspring_groups' table.
type Group struct {
	ID       string
	TenantID string
	Species  string
	Status   LifecycleStatus

	ActualBirthOn    *time.Time
	WeanedAt         *time.Time
	PlacementStartAt *time.Time
	CompletedAt      *time.Time

	ExpectedWeanedAt             *time.Time
	ExpectedPlacementStartAt     *time.Time
	ExpectedPlacementCompletedAt *time.Time

	// Counters override member-derived counts when non-nil.
	CountLive   *int
	CountBorn   *int
	CountPlaced *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member is an individual offspring record. The state machine only reads it.
// Corresponds to the 'offspring' table.
type Member struct {
	ID             string
	GroupID        string
	Name           string
	LifeState      LifeState
	PlacementState PlacementState
	KeeperIntent   KeeperIntent
	ArchivedAt     *time.Time
}

// Alive reports whether the member is currently alive.
func (m Member) Alive() bool { return m.LifeState == LifeStateAlive }

// Resolved reports whether a member no longer needs placement: placed,
// transferred, or retained by the owner.
func (m Member) Resolved() bool {
	switch m.PlacementState {
	case PlacementPlaced, PlacementTransferred:
		return true
	}
	switch m.KeeperIntent {
	case KeeperKeep, KeeperWithheld:
		return true
	}
	return false
}

// Snapshot is a group plus its live (non-archived) members, read in one unit of work.
type Snapshot struct {
	Group   Group
	Members []Member
}

// LiveCount returns the larger of the live counter and the number of ALIVE members,
// so a stale counter can never hide a living member.
func (s Snapshot) LiveCount() int {
	n := 0
	for _, m := range s.Members {
		if m.Alive() {
			n++
		}
	}
	if s.Group.CountLive != nil && *s.Group.CountLive > n {
		return *s.Group.CountLive
	}
	return n
}

// UnresolvedCount returns how many live members still need placement.
// Without member records it falls back to CountLive - CountPlaced.
func (s Snapshot) UnresolvedCount() int {
	if len(s.Members) == 0 && s.Group.CountLive != nil {
		placed := 0
		if s.Group.CountPlaced != nil {
			placed = *s.Group.CountPlaced
		}
		if remaining := *s.Group.CountLive - placed; remaining > 0 {
			return remaining
		}
		return 0
	}
	n := 0
	for _, m := range s.Members {
		if m.Alive() && !m.Resolved() {
			n++
		}
	}
	return n
}

// DateField names a date column on the group that transitions and milestones write.
type DateField string

const (
	FieldActualBirthOn                DateField = "actual_birth_on"
	FieldWeanedAt                     DateField = "weaned_at"
	FieldPlacementStartAt             DateField = "placement_start_at"
	FieldCompletedAt                  DateField = "completed_at"
	FieldExpectedWeanedAt             DateField = "expected_weaned_at"
	FieldExpectedPlacementStartAt     DateField = "expected_placement_start_at"
	FieldExpectedPlacementCompletedAt DateField = "expected_placement_completed_at"
)

// StatusField is the field name recorded on status transition events.
const StatusField = "lifecycle_status"

// DateFields returns every writable date field in a stable order.
func DateFields() []DateField {
	return []DateField{
		FieldActualBirthOn,
		FieldWeanedAt,
		FieldPlacementStartAt,
		FieldCompletedAt,
		FieldExpectedWeanedAt,
		FieldExpectedPlacementStartAt,
		FieldExpectedPlacementCompletedAt,
	}
}

// Valid reports whether f is a known date field.
func (f DateField) Valid() bool {
	for _, known := range DateFields() {
		if known == f {
			return true
		}
	}
	return false
}

// DateRef returns a pointer to the group's storage for f, or nil when f is unknown.
func (g *Group) DateRef(f DateField) **time.Time {
	switch f {
	case FieldActualBirthOn:
		return &g.ActualBirthOn
	case FieldWeanedAt:
		return &g.WeanedAt
	case FieldPlacementStartAt:
		return &g.PlacementStartAt
	case FieldCompletedAt:
		return &g.CompletedAt
	case FieldExpectedWeanedAt:
		return &g.ExpectedWeanedAt
	case FieldExpectedPlacementStartAt:
		return &g.ExpectedPlacementStartAt
	case FieldExpectedPlacementCompletedAt:
		return &g.ExpectedPlacementCompletedAt
	}
	return nil
}

// GroupPatch is the set of field changes a unit of work writes to a group.
type GroupPatch struct {
	Status *LifecycleStatus
	Set    map[DateField]time.Time
	Clear  []DateField
}

// Empty reports whether the patch changes nothing.
func (p GroupPatch) Empty() bool {
	return p.Status == nil && len(p.Set) == 0 && len(p.Clear) == 0
}

// Apply returns a copy of g with the patch applied. Clears run after sets.
func (p GroupPatch) Apply(g Group) Group {
	if p.Status != nil {
		g.Status = *p.Status
	}
	for field, value := range p.Set {
		if ref := g.DateRef(field); ref != nil {
			v := value
			*ref = &v
		}
	}
	for _, field := range p.Clear {
		if ref := g.DateRef(field); ref != nil {
			*ref = nil
		}
	}
	return g
}
