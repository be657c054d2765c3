// Package availability unifies the two equipment availability
// representations behind one debit/credit contract. Quantity-tracked items
// carry a countable stock plus an assigned marker and support several
// concurrent open assignments; state-tracked items are a single unit with
// an enumerated state and at most one open assignment.
package availability

import (
	"example.com/backstage/services/inventory/internal/errs"
	"example.com/backstage/services/inventory/internal/models"
)

// Available returns how many units of the item can still be granted
func Available(item *models.EquipmentItem) int {
	switch item.Mode {
	case models.ModeState:
		if item.State == models.StateAvailable {
			return 1
		}
		return 0
	default:
		return item.Quantity
	}
}

// CanDebit reports whether a debit of amount would succeed without
// mutating the item.
func CanDebit(item *models.EquipmentItem, amount int) bool {
	return amount >= 1 && amount <= Available(item)
}

// Debit removes amount units from the item's availability and marks it
// assigned. The caller is expected to hold the item's row lock and persist
// the mutation in the same transaction.
func Debit(item *models.EquipmentItem, amount int) error {
	if amount < 1 {
		return errs.Newf(errs.KindValidation, "debit amount must be positive, got %d", amount)
	}

	switch item.Mode {
	case models.ModeState:
		if item.State != models.StateAvailable {
			return errs.Newf(errs.KindInsufficientAvailability,
				"equipment %s is %s", item.Code, item.State)
		}
		// A state-tracked item is a single unit; a multi-unit debit
		// cannot be satisfied.
		if amount > 1 {
			return errs.Newf(errs.KindInsufficientAvailability,
				"equipment %s holds a single unit, %d requested", item.Code, amount)
		}
		item.State = models.StateAssigned
		return nil
	default:
		if amount > item.Quantity {
			return errs.Newf(errs.KindInsufficientAvailability,
				"equipment %s has %d available, %d requested", item.Code, item.Quantity, amount)
		}
		item.Quantity -= amount
		item.Assigned = true
		return nil
	}
}

// Credit restores amount units to the item. openAssignments is the number
// of assignments still open for the item after the triggering return; when
// it reaches zero the assigned marker is cleared.
func Credit(item *models.EquipmentItem, amount int, openAssignments int64) error {
	if amount < 1 {
		return errs.Newf(errs.KindValidation, "credit amount must be positive, got %d", amount)
	}

	switch item.Mode {
	case models.ModeState:
		item.State = models.StateAvailable
		return nil
	default:
		item.Quantity += amount
		if openAssignments <= 0 {
			item.Assigned = false
		}
		return nil
	}
}

// Reconcile recomputes the derived availability markers from the open
// assignment count, repairing drift between the catalog and the ledger.
// It returns true when the item was changed.
func Reconcile(item *models.EquipmentItem, openAssignments int64) bool {
	switch item.Mode {
	case models.ModeState:
		// Out-of-service items are withdrawn manually and stay that way.
		if item.State == models.StateOutOfService {
			return false
		}
		want := models.StateAvailable
		if openAssignments > 0 {
			want = models.StateAssigned
		}
		if item.State != want {
			item.State = want
			return true
		}
		return false
	default:
		want := openAssignments > 0
		if item.Assigned != want {
			item.Assigned = want
			return true
		}
		return false
	}
}
