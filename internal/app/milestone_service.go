// internal/app/milestone_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"offspring_lifecycle/internal/domain/offspring"
	"offspring_lifecycle/internal/domain/species"

	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// MilestoneService records actual milestone dates and reports on overdue ones.
type MilestoneService interface {
	// RecordBirth stores the birth date and its projected milestones, then auto-advances.
	RecordBirth(ctx context.Context, groupID string, birthDate time.Time) (MilestoneResult, error)
	RecordWeaned(ctx context.Context, groupID string, weanedAt time.Time) (MilestoneResult, error)
	RecordPlacementStart(ctx context.Context, groupID string, startAt time.Time) (MilestoneResult, error)
	// History lists the group's audit trail, oldest first.
	History(ctx context.Context, groupID string) ([]offspring.Event, error)
	// OverdueMilestones lists open groups whose next expected milestone has passed.
	OverdueMilestones(ctx context.Context, asOf time.Time) ([]OverdueMilestone, error)
}

// MilestoneResult is the group after recording plus what the follow-up auto-advance did.
type MilestoneResult struct {
	Group       offspring.Group
	AutoAdvance AutoAdvanceResult
}

// OverdueMilestone is one group whose next expected date is behind schedule.
type OverdueMilestone struct {
	GroupID     string
	TenantID    string
	Species     string
	Status      offspring.LifecycleStatus
	Field       offspring.DateField
	ExpectedOn  time.Time
	DaysOverdue int
}

// MilestoneServiceImpl implements MilestoneService.
type MilestoneServiceImpl struct {
	store     offspring.Store
	lifecycle LifecycleService
	provider  species.Provider
	logger    logrus.FieldLogger
	graceDays int
}

func NewMilestoneServiceImpl(
	store offspring.Store,
	lifecycle LifecycleService,
	provider species.Provider,
	logger logrus.FieldLogger,
	graceDays int, // days past the expected date before a milestone counts as overdue
) *MilestoneServiceImpl {
	if provider == nil {
		provider = species.Table{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MilestoneServiceImpl{
		store:     store,
		lifecycle: lifecycle,
		provider:  provider,
		logger:    logger,
		graceDays: graceDays,
	}
}

// RecordBirth implements MilestoneService.
func (s *MilestoneServiceImpl) RecordBirth(ctx context.Context, groupID string, birthDate time.Time) (MilestoneResult, error) {
	birth := offspring.NormalizeDate(birthDate)
	return s.record(ctx, groupID, func(g offspring.Group) map[offspring.DateField]time.Time {
		fields := offspring.CalculateExpectedDates(birth, g.Species, s.provider).Fields()
		fields[offspring.FieldActualBirthOn] = birth
		return fields
	})
}

// RecordWeaned implements MilestoneService.
func (s *MilestoneServiceImpl) RecordWeaned(ctx context.Context, groupID string, weanedAt time.Time) (MilestoneResult, error) {
	weaned := offspring.NormalizeDate(weanedAt)
	return s.record(ctx, groupID, func(offspring.Group) map[offspring.DateField]time.Time {
		return map[offspring.DateField]time.Time{offspring.FieldWeanedAt: weaned}
	})
}

// RecordPlacementStart implements MilestoneService.
func (s *MilestoneServiceImpl) RecordPlacementStart(ctx context.Context, groupID string, startAt time.Time) (MilestoneResult, error) {
	start := offspring.NormalizeDate(startAt)
	return s.record(ctx, groupID, func(offspring.Group) map[offspring.DateField]time.Time {
		return map[offspring.DateField]time.Time{offspring.FieldPlacementStartAt: start}
	})
}

// record writes the fields built from the current group in one unit of work, then
// runs the single-step auto-advance hook in a second one.
func (s *MilestoneServiceImpl) record(ctx context.Context, groupID string, build func(offspring.Group) map[offspring.DateField]time.Time) (MilestoneResult, error) {
	var recorded offspring.Group

	err := s.store.RunInTx(ctx, func(tx offspring.Tx) error {
		snap, err := loadSnapshot(ctx, tx, groupID)
		if err != nil {
			return err
		}
		current := snap.Group
		switch {
		case current.Status == offspring.StatusDissolved:
			return offspring.NewError(offspring.CodeCannotAdvanceDissolved, "cannot record milestones on a dissolved group")
		case current.Status == offspring.StatusGroupComplete:
			return offspring.NewError(offspring.CodeAlreadyComplete, "cannot record milestones on a completed group")
		case !current.Status.Valid():
			return offspring.NewError(offspring.CodeInvalidStatus, "stored status %q is not recognised", current.Status)
		}

		fields := build(current)
		for field, value := range fields {
			if !isActualDate(field) {
				continue
			}
			if prev := *current.DateRef(field); prev != nil && !prev.Equal(value) {
				s.logger.WithFields(logrus.Fields{
					"group_id": groupID,
					"status":   current.Status,
					"field":    field,
					"before":   formatDate(prev),
					"after":    value.Format(dateLayout),
				}).Warn("Overwriting a recorded milestone date")
			}
		}
		if err := tx.WriteGroup(ctx, groupID, offspring.GroupPatch{Set: fields}); err != nil {
			return fmt.Errorf("failed to write milestones for group %s: %w", groupID, err)
		}
		for _, field := range offspring.DateFields() {
			value, ok := fields[field]
			if !ok {
				continue
			}
			if err := tx.Append(ctx, offspring.Event{
				GroupID: groupID,
				Type:    offspring.EventMilestoneRecorded,
				Field:   string(field),
				Before:  formatDate(*current.DateRef(field)),
				After:   value.Format(dateLayout),
			}); err != nil {
				return fmt.Errorf("failed to append milestone event for group %s: %w", groupID, err)
			}
		}

		recorded, err = reload(ctx, tx, groupID)
		return err
	})
	if err != nil {
		code := offspring.CodeOf(err)
		s.logger.WithFields(logrus.Fields{"operation": OpRecord, "group_id": groupID, "code": code}).WithError(err).Warn("Milestone not recorded")
		return MilestoneResult{}, err
	}

	s.logger.WithFields(logrus.Fields{"operation": OpRecord, "group_id": groupID}).Info("Milestone recorded")

	auto, err := s.lifecycle.AutoAdvanceIfReady(ctx, groupID)
	if err != nil {
		return MilestoneResult{Group: recorded}, fmt.Errorf("milestone recorded but auto-advance failed: %w", err)
	}
	result := MilestoneResult{Group: recorded, AutoAdvance: auto}
	if auto.Advanced {
		result.Group = auto.Group
	}
	return result, nil
}

// History implements MilestoneService.
func (s *MilestoneServiceImpl) History(ctx context.Context, groupID string) ([]offspring.Event, error) {
	events, err := s.store.ListEvents(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for group %s: %w", groupID, err)
	}
	return events, nil
}

// OverdueMilestones implements MilestoneService.
func (s *MilestoneServiceImpl) OverdueMilestones(ctx context.Context, asOf time.Time) ([]OverdueMilestone, error) {
	groups, err := s.store.ListOpenGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open groups: %w", err)
	}

	today := offspring.NormalizeDate(asOf)
	out := make([]OverdueMilestone, 0)
	for _, g := range groups {
		field, expected, ok := pendingMilestone(g)
		if !ok {
			continue
		}
		deadline := offspring.AddDays(expected, s.graceDays)
		if !today.After(deadline) {
			continue
		}
		out = append(out, OverdueMilestone{
			GroupID:     g.ID,
			TenantID:    g.TenantID,
			Species:     g.Species,
			Status:      g.Status,
			Field:       field,
			ExpectedOn:  offspring.NormalizeDate(expected),
			DaysOverdue: offspring.DaysBetween(expected, today),
		})
	}
	return out, nil
}

// pendingMilestone returns the next actual date the group is waiting on and when it
// was expected. Groups without projections (no birth recorded) have none.
func pendingMilestone(g offspring.Group) (offspring.DateField, time.Time, bool) {
	var field offspring.DateField
	var expected *time.Time
	switch g.Status {
	case offspring.StatusBorn, offspring.StatusWeaning:
		field, expected = offspring.FieldWeanedAt, g.ExpectedWeanedAt
	case offspring.StatusWeaned:
		field, expected = offspring.FieldPlacementStartAt, g.ExpectedPlacementStartAt
	case offspring.StatusPlacement:
		field, expected = offspring.FieldCompletedAt, g.ExpectedPlacementCompletedAt
	default:
		return "", time.Time{}, false
	}
	if expected == nil || *g.DateRef(field) != nil {
		return "", time.Time{}, false
	}
	return field, *expected, true
}

// isActualDate reports whether field holds an observed date rather than a projection.
func isActualDate(field offspring.DateField) bool {
	switch field {
	case offspring.FieldActualBirthOn, offspring.FieldWeanedAt, offspring.FieldPlacementStartAt:
		return true
	}
	return false
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
