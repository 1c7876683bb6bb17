package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"offspring_lifecycle/internal/domain/offspring"
)

func TestRunInTxCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	g, err := store.CreateGroup(ctx, offspring.Group{Species: "DOG"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if g.Status != offspring.StatusPending {
		t.Fatalf("expected default PENDING status, got %s", g.Status)
	}

	birth := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	next := offspring.StatusBorn
	err = store.RunInTx(ctx, func(tx offspring.Tx) error {
		if err := tx.WriteGroup(ctx, g.ID, offspring.GroupPatch{
			Status: &next,
			Set:    map[offspring.DateField]time.Time{offspring.FieldActualBirthOn: birth},
		}); err != nil {
			return err
		}
		return tx.Append(ctx, offspring.Event{GroupID: g.ID, Type: offspring.EventAdvance, Field: offspring.StatusField})
	})
	if err != nil {
		t.Fatalf("run in tx: %v", err)
	}

	stored, _ := store.GetGroup(ctx, g.ID)
	if stored.Status != offspring.StatusBorn || stored.ActualBirthOn == nil {
		t.Fatalf("expected committed write, got %+v", stored)
	}
	events, _ := store.ListEvents(ctx, g.ID)
	if len(events) != 1 || events[0].ID == "" || events[0].OccurredAt.IsZero() {
		t.Fatalf("expected one stamped event, got %+v", events)
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	g, _ := store.CreateGroup(ctx, offspring.Group{Species: "DOG"})

	boom := errors.New("boom")
	next := offspring.StatusBorn
	err := store.RunInTx(ctx, func(tx offspring.Tx) error {
		if err := tx.WriteGroup(ctx, g.ID, offspring.GroupPatch{Status: &next}); err != nil {
			return err
		}
		if err := tx.Append(ctx, offspring.Event{GroupID: g.ID, Type: offspring.EventAdvance}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	stored, _ := store.GetGroup(ctx, g.ID)
	if stored.Status != offspring.StatusPending {
		t.Fatalf("expected rollback, got status %s", stored.Status)
	}
	if events, _ := store.ListEvents(ctx, g.ID); len(events) != 0 {
		t.Fatalf("expected no events after rollback, got %d", len(events))
	}
}

func TestLoadSnapshotSkipsArchivedMembers(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	g, _ := store.CreateGroup(ctx, offspring.Group{Species: "CAT"})
	archived := time.Now().UTC()
	if _, err := store.AddMember(ctx, offspring.Member{GroupID: g.ID, Name: "a"}); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if _, err := store.AddMember(ctx, offspring.Member{GroupID: g.ID, Name: "b", ArchivedAt: &archived}); err != nil {
		t.Fatalf("add member: %v", err)
	}

	var snap offspring.Snapshot
	err := store.RunInTx(ctx, func(tx offspring.Tx) error {
		var err error
		snap, err = tx.LoadSnapshot(ctx, g.ID)
		return err
	})
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(snap.Members) != 1 || snap.Members[0].Name != "a" {
		t.Fatalf("expected only the live member, got %+v", snap.Members)
	}
	if snap.Members[0].LifeState != offspring.LifeStateAlive || snap.Members[0].KeeperIntent != offspring.KeeperNone {
		t.Fatalf("expected member defaults, got %+v", snap.Members[0])
	}
}

func TestLoadSnapshotUnknownGroup(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	err := store.RunInTx(ctx, func(tx offspring.Tx) error {
		_, err := tx.LoadSnapshot(ctx, "missing")
		return err
	})
	if !errors.Is(err, offspring.ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestListOpenGroupsExcludesTerminal(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	open, _ := store.CreateGroup(ctx, offspring.Group{Species: "DOG", Status: offspring.StatusWeaning})
	_, _ = store.CreateGroup(ctx, offspring.Group{Species: "DOG", Status: offspring.StatusDissolved})
	_, _ = store.CreateGroup(ctx, offspring.Group{Species: "DOG", Status: offspring.StatusGroupComplete})

	groups, err := store.ListOpenGroups(ctx)
	if err != nil {
		t.Fatalf("list open groups: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != open.ID {
		t.Fatalf("expected only the open group, got %+v", groups)
	}
}

func TestSnapshotIsolatedFromCallerMutation(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	birth := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	g, _ := store.CreateGroup(ctx, offspring.Group{Species: "DOG", ActualBirthOn: &birth})

	*g.ActualBirthOn = birth.AddDate(1, 0, 0)
	stored, _ := store.GetGroup(ctx, g.ID)
	if !stored.ActualBirthOn.Equal(birth) {
		t.Fatalf("expected stored birth date to be isolated, got %v", stored.ActualBirthOn)
	}
}
