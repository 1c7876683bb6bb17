// internal/domain/offspring/repository.go
package offspring

import "context"

// Repository reads and writes groups inside a unit of work.
type Repository interface {
	// LoadSnapshot returns the group and its non-archived members, or ErrGroupNotFound.
	LoadSnapshot(ctx context.Context, groupID string) (Snapshot, error)
	// WriteGroup applies patch to the group, or returns ErrGroupNotFound.
	WriteGroup(ctx context.Context, groupID string, patch GroupPatch) error
}

// EventSink appends audit events. Implementations never update or delete events.
type EventSink interface {
	Append(ctx context.Context, event Event) error
}

// Tx is the collaborator surface available inside one atomic unit of work.
type Tx interface {
	Repository
	EventSink
}

// TxRunner runs fn in one atomic unit of work. If fn returns an error nothing it
// wrote is kept. Concurrent units of work on the same group must be serialised by
// the implementation.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// EventReader lists the audit trail of a group, oldest first.
type EventReader interface {
	ListEvents(ctx context.Context, groupID string) ([]Event, error)
}

// GroupLister lists groups that have not reached a terminal status.
type GroupLister interface {
	ListOpenGroups(ctx context.Context) ([]Group, error)
}

// Store is the full persistence surface used by the application services.
type Store interface {
	TxRunner
	EventReader
	GroupLister
}
