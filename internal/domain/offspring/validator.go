// internal/domain/offspring/validator.go
package offspring

// ValidateTransition checks the entry predicate for a forward move from -> to.
// Each adjacent canonical pair has exactly one predicate; any other pair is rejected.
func ValidateTransition(from, to LifecycleStatus, snap Snapshot) error {
	switch {
	case from == StatusPending && to == StatusBorn:
		return requireBirthDate(snap)
	case from == StatusBorn && to == StatusWeaning:
		return requireLiveOffspring(snap)
	case from == StatusWeaning && to == StatusWeaned:
		return requireWeanedDate(snap)
	case from == StatusWeaned && to == StatusPlacement:
		return requirePlacementStart(snap)
	case from == StatusPlacement && to == StatusGroupComplete:
		return requireAllPlaced(snap)
	}
	return NewError(CodeInvalidTransition, "no transition defined from %s to %s", from, to)
}

func requireBirthDate(snap Snapshot) error {
	if snap.Group.ActualBirthOn == nil {
		return NewError(CodeBirthDateRequired, "birth date must be recorded before moving to %s", StatusBorn)
	}
	return nil
}

func requireLiveOffspring(snap Snapshot) error {
	if snap.LiveCount() <= 0 {
		return NewError(CodeNoLiveOffspring, "at least one live offspring is required to start weaning")
	}
	return nil
}

func requireWeanedDate(snap Snapshot) error {
	if snap.Group.WeanedAt == nil {
		return NewError(CodeWeanedDateRequired, "weaned date must be recorded before moving to %s", StatusWeaned)
	}
	return nil
}

func requirePlacementStart(snap Snapshot) error {
	if snap.Group.PlacementStartAt == nil {
		return NewError(CodePlacementStartRequired, "placement start date must be recorded before moving to %s", StatusPlacement)
	}
	return nil
}

func requireAllPlaced(snap Snapshot) error {
	if remaining := snap.UnresolvedCount(); remaining > 0 {
		return NewError(CodeOffspringNotPlaced, "%d live offspring still need placement or a keep decision", remaining)
	}
	return nil
}

// FieldsClearedOnLeaving returns the date fields the forward move into status sets,
// which a rewind out of status must clear.
func FieldsClearedOnLeaving(status LifecycleStatus) []DateField {
	switch status {
	case StatusGroupComplete:
		return []DateField{FieldCompletedAt}
	case StatusPlacement:
		return []DateField{FieldPlacementStartAt}
	case StatusWeaned:
		return []DateField{FieldWeanedAt}
	case StatusBorn:
		return []DateField{
			FieldActualBirthOn,
			FieldExpectedWeanedAt,
			FieldExpectedPlacementStartAt,
			FieldExpectedPlacementCompletedAt,
		}
	}
	return nil
}
