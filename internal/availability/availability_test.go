package availability

import (
	"testing"

	"example.com/backstage/services/inventory/internal/errs"
	"example.com/backstage/services/inventory/internal/models"

	"github.com/stretchr/testify/require"
)

func quantityItem(qty int) *models.EquipmentItem {
	return &models.EquipmentItem{
		Code:     "CAB-001",
		Mode:     models.ModeQuantity,
		Quantity: qty,
	}
}

func stateItem(state models.EquipmentState) *models.EquipmentItem {
	return &models.EquipmentItem{
		Code:  "SRV-042",
		Mode:  models.ModeState,
		State: state,
	}
}

func TestDebitQuantity(t *testing.T) {
	item := quantityItem(5)

	require.NoError(t, Debit(item, 3))
	require.Equal(t, 2, item.Quantity)
	require.True(t, item.Assigned)
}

func TestDebitNeverGoesNegative(t *testing.T) {
	item := quantityItem(2)

	err := Debit(item, 5)
	require.Error(t, err)
	require.Equal(t, errs.KindInsufficientAvailability, errs.KindOf(err))
	require.Equal(t, 2, item.Quantity, "failed debit must not mutate the item")
	require.False(t, item.Assigned)
}

func TestDebitRejectsNonPositiveAmount(t *testing.T) {
	item := quantityItem(5)

	for _, amount := range []int{0, -1} {
		err := Debit(item, amount)
		require.Equal(t, errs.KindValidation, errs.KindOf(err))
	}
	require.Equal(t, 5, item.Quantity)
}

func TestDebitCreditRoundTrip(t *testing.T) {
	for n := 1; n <= 5; n++ {
		item := quantityItem(5)
		require.NoError(t, Debit(item, n))
		require.NoError(t, Credit(item, n, 0))
		require.Equal(t, 5, item.Quantity, "round trip of %d units", n)
		require.False(t, item.Assigned)
	}
}

func TestCreditKeepsAssignedWhileHoldersRemain(t *testing.T) {
	item := quantityItem(5)
	require.NoError(t, Debit(item, 2))
	require.NoError(t, Debit(item, 2))

	require.NoError(t, Credit(item, 2, 1))
	require.Equal(t, 3, item.Quantity)
	require.True(t, item.Assigned, "one assignment is still open")

	require.NoError(t, Credit(item, 2, 0))
	require.Equal(t, 5, item.Quantity)
	require.False(t, item.Assigned)
}

func TestDebitStateSingleHolder(t *testing.T) {
	item := stateItem(models.StateAvailable)

	require.NoError(t, Debit(item, 1))
	require.Equal(t, models.StateAssigned, item.State)

	// Second holder is excluded.
	err := Debit(item, 1)
	require.Equal(t, errs.KindInsufficientAvailability, errs.KindOf(err))
}

func TestDebitStateOutOfService(t *testing.T) {
	item := stateItem(models.StateOutOfService)

	err := Debit(item, 1)
	require.Equal(t, errs.KindInsufficientAvailability, errs.KindOf(err))
	require.Equal(t, models.StateOutOfService, item.State)
}

func TestDebitStateRejectsMultiUnit(t *testing.T) {
	item := stateItem(models.StateAvailable)

	err := Debit(item, 2)
	require.Equal(t, errs.KindInsufficientAvailability, errs.KindOf(err))
	require.Equal(t, models.StateAvailable, item.State)
}

func TestCreditStateReleases(t *testing.T) {
	item := stateItem(models.StateAssigned)

	require.NoError(t, Credit(item, 1, 0))
	require.Equal(t, models.StateAvailable, item.State)
}

func TestAvailable(t *testing.T) {
	require.Equal(t, 4, Available(quantityItem(4)))
	require.Equal(t, 1, Available(stateItem(models.StateAvailable)))
	require.Equal(t, 0, Available(stateItem(models.StateAssigned)))
	require.Equal(t, 0, Available(stateItem(models.StateOutOfService)))
}

func TestReconcileQuantity(t *testing.T) {
	item := quantityItem(3)
	item.Assigned = true

	require.True(t, Reconcile(item, 0))
	require.False(t, item.Assigned)

	// Already consistent: no change reported.
	require.False(t, Reconcile(item, 0))

	require.True(t, Reconcile(item, 2))
	require.True(t, item.Assigned)
}

func TestReconcileState(t *testing.T) {
	item := stateItem(models.StateAssigned)
	require.True(t, Reconcile(item, 0))
	require.Equal(t, models.StateAvailable, item.State)

	require.True(t, Reconcile(item, 1))
	require.Equal(t, models.StateAssigned, item.State)

	oos := stateItem(models.StateOutOfService)
	require.False(t, Reconcile(oos, 1), "out-of-service items are left alone")
	require.Equal(t, models.StateOutOfService, oos.State)
}
