package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/inventory/internal/models"
	"example.com/backstage/services/inventory/internal/repository"
)

func TestReconcileAvailability_RepairsDriftedMarker(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo, false)

	// Marked assigned although nothing is open for it.
	drifted := quantityItem(1, "LPT-01", 5)
	drifted.Assigned = true
	// Consistent, must be left alone.
	clean := quantityItem(2, "SCR-01", 3)

	repo.On("ListEquipment", mock.Anything, repository.EquipmentFilter{}).
		Return([]models.EquipmentItem{*drifted, *clean}, nil)
	repo.On("LockEquipment", mock.Anything, uint(1)).Return(drifted, nil)
	repo.On("LockEquipment", mock.Anything, uint(2)).Return(clean, nil)
	repo.On("CountOpenAssignments", mock.Anything, uint(1)).Return(int64(0), nil)
	repo.On("CountOpenAssignments", mock.Anything, uint(2)).Return(int64(0), nil)
	repo.On("SaveEquipment", mock.Anything, drifted).Return(nil)

	require.NoError(t, svc.ReconcileAvailability(context.Background()))
	require.False(t, drifted.Assigned)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "SaveEquipment", mock.Anything, clean)
}

func TestReconcileAvailability_LeavesOutOfServiceAlone(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo, false)

	item := stateItem(3, "PRJ-01", models.StateOutOfService)

	repo.On("ListEquipment", mock.Anything, repository.EquipmentFilter{}).
		Return([]models.EquipmentItem{*item}, nil)
	repo.On("LockEquipment", mock.Anything, uint(3)).Return(item, nil)
	repo.On("CountOpenAssignments", mock.Anything, uint(3)).Return(int64(0), nil)

	require.NoError(t, svc.ReconcileAvailability(context.Background()))
	require.Equal(t, models.StateOutOfService, item.State)
	repo.AssertNotCalled(t, "SaveEquipment", mock.Anything, mock.Anything)
}
