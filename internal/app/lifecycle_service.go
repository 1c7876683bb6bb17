// internal/app/lifecycle_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"offspring_lifecycle/internal/domain/offspring"

	"github.com/sirupsen/logrus"
)

// Operation names used in logs and metrics.
const (
	OpAdvance     = "advance"
	OpAutoAdvance = "auto_advance"
	OpRewind      = "rewind"
	OpDissolve    = "dissolve"
	OpRecord      = "record_milestone"
)

// failureCodeInternal labels failures that carry no lifecycle code (storage errors).
const failureCodeInternal = "INTERNAL"

// LifecycleService moves offspring groups through their post-birth lifecycle.
type LifecycleService interface {
	// Advance moves the group exactly one canonical position forward. A non-nil target
	// must name that position.
	Advance(ctx context.Context, groupID string, target *offspring.LifecycleStatus) (offspring.Group, error)
	// Rewind moves the group one position back and clears the dates the forward step set.
	Rewind(ctx context.Context, groupID string) (offspring.Group, error)
	// Dissolve marks a group with no live offspring as DISSOLVED. Repeated calls are no-ops.
	Dissolve(ctx context.Context, groupID string) (offspring.Group, error)
	// AutoAdvanceIfReady takes at most one forward step when its precondition holds.
	AutoAdvanceIfReady(ctx context.Context, groupID string) (AutoAdvanceResult, error)
}

// AutoAdvanceResult reports what AutoAdvanceIfReady did. Group is the state after the call.
type AutoAdvanceResult struct {
	Advanced bool
	From     offspring.LifecycleStatus
	To       offspring.LifecycleStatus
	Group    offspring.Group
}

// TransitionRecorder receives transition outcomes, typically a metrics backend.
type TransitionRecorder interface {
	Transition(operation, from, to string)
	Failure(operation, code string)
}

type noopRecorder struct{}

func (noopRecorder) Transition(string, string, string) {}
func (noopRecorder) Failure(string, string)            {}

// LifecycleServiceImpl implements LifecycleService on top of a TxRunner.
type LifecycleServiceImpl struct {
	runner   offspring.TxRunner
	logger   logrus.FieldLogger
	recorder TransitionRecorder
	nowFn    func() time.Time
}

func NewLifecycleServiceImpl(runner offspring.TxRunner, logger logrus.FieldLogger, recorder TransitionRecorder) *LifecycleServiceImpl {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &LifecycleServiceImpl{
		runner:   runner,
		logger:   logger,
		recorder: recorder,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the clock used for completedAt stamps.
func (s *LifecycleServiceImpl) SetNowFunc(fn func() time.Time) {
	s.nowFn = fn
}

// Advance implements LifecycleService.
func (s *LifecycleServiceImpl) Advance(ctx context.Context, groupID string, target *offspring.LifecycleStatus) (offspring.Group, error) {
	var result offspring.Group
	var from, to offspring.LifecycleStatus

	err := s.runner.RunInTx(ctx, func(tx offspring.Tx) error {
		snap, err := loadSnapshot(ctx, tx, groupID)
		if err != nil {
			return err
		}
		from = snap.Group.Status
		if err := checkAdvanceable(from); err != nil {
			return err
		}

		next, ok := from.Next()
		if target != nil {
			next, ok = *target, true
		}
		if !ok {
			return offspring.NewError(offspring.CodeNoNextStatus, "no status follows %s", from)
		}
		if !next.IsDirectSuccessorOf(from) {
			return offspring.NewError(offspring.CodeInvalidTarget, "%s is not the next status after %s", next, from)
		}
		if err := offspring.ValidateTransition(from, next, snap); err != nil {
			return err
		}
		to = next

		result, err = s.applyForward(ctx, tx, groupID, from, next, offspring.EventAdvance)
		return err
	})
	if err != nil {
		return offspring.Group{}, s.fail(OpAdvance, groupID, err)
	}

	s.succeed(OpAdvance, groupID, from, to)
	return result, nil
}

// Rewind implements LifecycleService.
func (s *LifecycleServiceImpl) Rewind(ctx context.Context, groupID string) (offspring.Group, error) {
	var result offspring.Group
	var from, to offspring.LifecycleStatus

	err := s.runner.RunInTx(ctx, func(tx offspring.Tx) error {
		snap, err := loadSnapshot(ctx, tx, groupID)
		if err != nil {
			return err
		}
		from = snap.Group.Status
		switch {
		case from == offspring.StatusPending:
			return offspring.NewError(offspring.CodeCannotRewindPending, "group is already at %s", from)
		case from == offspring.StatusDissolved:
			return offspring.NewError(offspring.CodeCannotRewindDissolved, "a dissolved group cannot be rewound")
		case !from.Valid():
			return offspring.NewError(offspring.CodeInvalidStatus, "stored status %q is not recognised", from)
		}
		prev, ok := from.Previous()
		if !ok {
			return offspring.NewError(offspring.CodeCannotRewind, "no status precedes %s", from)
		}
		to = prev

		cleared := offspring.FieldsClearedOnLeaving(from)
		if err := tx.WriteGroup(ctx, groupID, offspring.GroupPatch{Status: &prev, Clear: cleared}); err != nil {
			return fmt.Errorf("failed to write rewound group %s: %w", groupID, err)
		}
		if err := tx.Append(ctx, offspring.Event{
			GroupID: groupID,
			Type:    offspring.EventRewind,
			Field:   offspring.StatusField,
			Before:  string(from),
			After:   string(prev),
			Notes:   clearedNote(cleared),
		}); err != nil {
			return fmt.Errorf("failed to append rewind event for group %s: %w", groupID, err)
		}

		result, err = reload(ctx, tx, groupID)
		return err
	})
	if err != nil {
		return offspring.Group{}, s.fail(OpRewind, groupID, err)
	}

	s.succeed(OpRewind, groupID, from, to)
	return result, nil
}

// Dissolve implements LifecycleService.
func (s *LifecycleServiceImpl) Dissolve(ctx context.Context, groupID string) (offspring.Group, error) {
	var result offspring.Group
	var from offspring.LifecycleStatus
	changed := false

	err := s.runner.RunInTx(ctx, func(tx offspring.Tx) error {
		snap, err := loadSnapshot(ctx, tx, groupID)
		if err != nil {
			return err
		}
		from = snap.Group.Status
		switch {
		case from == offspring.StatusDissolved:
			result = snap.Group
			return nil
		case from == offspring.StatusGroupComplete:
			return offspring.NewError(offspring.CodeAlreadyComplete, "a completed group cannot be dissolved")
		case !from.Valid():
			return offspring.NewError(offspring.CodeInvalidStatus, "stored status %q is not recognised", from)
		}
		if live := snap.LiveCount(); live > 0 {
			return offspring.NewError(offspring.CodeLiveOffspringExist, "%d live offspring remain in the group", live)
		}

		dissolved := offspring.StatusDissolved
		if err := tx.WriteGroup(ctx, groupID, offspring.GroupPatch{Status: &dissolved}); err != nil {
			return fmt.Errorf("failed to write dissolved group %s: %w", groupID, err)
		}
		if err := tx.Append(ctx, offspring.Event{
			GroupID: groupID,
			Type:    offspring.EventDissolve,
			Field:   offspring.StatusField,
			Before:  string(from),
			After:   string(dissolved),
			Notes:   fmt.Sprintf("dissolved from %s", from),
		}); err != nil {
			return fmt.Errorf("failed to append dissolve event for group %s: %w", groupID, err)
		}
		changed = true

		result, err = reload(ctx, tx, groupID)
		return err
	})
	if err != nil {
		return offspring.Group{}, s.fail(OpDissolve, groupID, err)
	}

	if changed {
		s.succeed(OpDissolve, groupID, from, offspring.StatusDissolved)
	} else {
		s.logger.WithField("group_id", groupID).Debug("Group already dissolved, nothing to do")
	}
	return result, nil
}

// AutoAdvanceIfReady implements LifecycleService. An unmet precondition and a
// terminal group both yield Advanced == false without an error.
func (s *LifecycleServiceImpl) AutoAdvanceIfReady(ctx context.Context, groupID string) (AutoAdvanceResult, error) {
	var res AutoAdvanceResult

	err := s.runner.RunInTx(ctx, func(tx offspring.Tx) error {
		snap, err := loadSnapshot(ctx, tx, groupID)
		if err != nil {
			return err
		}
		from := snap.Group.Status
		res = AutoAdvanceResult{From: from, To: from, Group: snap.Group}
		if !from.Valid() {
			return offspring.NewError(offspring.CodeInvalidStatus, "stored status %q is not recognised", from)
		}
		next, ok := from.Next()
		if !ok {
			return nil
		}
		if err := offspring.ValidateTransition(from, next, snap); err != nil {
			if offspring.CodeOf(err).IsPrecondition() {
				s.logger.WithFields(logrus.Fields{
					"group_id": groupID,
					"from":     from,
					"to":       next,
					"code":     offspring.CodeOf(err),
				}).Debug("Auto-advance precondition not met")
				return nil
			}
			return err
		}

		g, err := s.applyForward(ctx, tx, groupID, from, next, offspring.EventAutoAdvance)
		if err != nil {
			return err
		}
		res = AutoAdvanceResult{Advanced: true, From: from, To: next, Group: g}
		return nil
	})
	if err != nil {
		return AutoAdvanceResult{}, s.fail(OpAutoAdvance, groupID, err)
	}

	if res.Advanced {
		s.succeed(OpAutoAdvance, groupID, res.From, res.To)
	}
	return res, nil
}

// applyForward writes a validated forward step and its event, returning the stored group.
func (s *LifecycleServiceImpl) applyForward(ctx context.Context, tx offspring.Tx, groupID string, from, next offspring.LifecycleStatus, eventType offspring.EventType) (offspring.Group, error) {
	patch := offspring.GroupPatch{Status: &next}
	notes := ""
	if next == offspring.StatusGroupComplete {
		now := s.nowFn().UTC()
		patch.Set = map[offspring.DateField]time.Time{offspring.FieldCompletedAt: now}
		notes = fmt.Sprintf("%s=%s", offspring.FieldCompletedAt, now.Format(time.RFC3339))
	}
	if err := tx.WriteGroup(ctx, groupID, patch); err != nil {
		return offspring.Group{}, fmt.Errorf("failed to write advanced group %s: %w", groupID, err)
	}
	if err := tx.Append(ctx, offspring.Event{
		GroupID: groupID,
		Type:    eventType,
		Field:   offspring.StatusField,
		Before:  string(from),
		After:   string(next),
		Notes:   notes,
	}); err != nil {
		return offspring.Group{}, fmt.Errorf("failed to append transition event for group %s: %w", groupID, err)
	}
	return reload(ctx, tx, groupID)
}

func (s *LifecycleServiceImpl) succeed(op, groupID string, from, to offspring.LifecycleStatus) {
	s.recorder.Transition(op, string(from), string(to))
	s.logger.WithFields(logrus.Fields{
		"operation": op,
		"group_id":  groupID,
		"from":      from,
		"to":        to,
	}).Info("Lifecycle transition committed")
}

func (s *LifecycleServiceImpl) fail(op, groupID string, err error) error {
	code := string(offspring.CodeOf(err))
	entry := s.logger.WithFields(logrus.Fields{"operation": op, "group_id": groupID})
	if code == "" {
		code = failureCodeInternal
		entry.WithError(err).Error("Lifecycle operation failed")
	} else {
		entry.WithField("code", code).Warn("Lifecycle operation rejected")
	}
	s.recorder.Failure(op, code)
	return err
}

// checkAdvanceable rejects terminal and unrecognised statuses before a forward move.
func checkAdvanceable(status offspring.LifecycleStatus) error {
	switch {
	case status == offspring.StatusDissolved:
		return offspring.NewError(offspring.CodeCannotAdvanceDissolved, "a dissolved group cannot move forward")
	case status == offspring.StatusGroupComplete:
		return offspring.NewError(offspring.CodeAlreadyComplete, "group lifecycle is already complete")
	case !status.Valid():
		return offspring.NewError(offspring.CodeInvalidStatus, "stored status %q is not recognised", status)
	}
	return nil
}

// loadSnapshot maps the storage sentinel onto the GROUP_NOT_FOUND lifecycle code.
func loadSnapshot(ctx context.Context, tx offspring.Tx, groupID string) (offspring.Snapshot, error) {
	snap, err := tx.LoadSnapshot(ctx, groupID)
	if err != nil {
		if errors.Is(err, offspring.ErrGroupNotFound) {
			return offspring.Snapshot{}, offspring.NewError(offspring.CodeGroupNotFound, "offspring group %s not found", groupID)
		}
		return offspring.Snapshot{}, fmt.Errorf("failed to load offspring group %s: %w", groupID, err)
	}
	return snap, nil
}

func reload(ctx context.Context, tx offspring.Tx, groupID string) (offspring.Group, error) {
	snap, err := loadSnapshot(ctx, tx, groupID)
	if err != nil {
		return offspring.Group{}, err
	}
	return snap.Group, nil
}

func clearedNote(fields []offspring.DateField) string {
	if len(fields) == 0 {
		return ""
	}
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, string(f))
	}
	return "cleared: " + strings.Join(names, ", ")
}
