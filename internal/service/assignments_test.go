package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/inventory/internal/errs"
	"example.com/backstage/services/inventory/internal/models"
)

func TestGrantEquipment_RequiresStaff(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo, false)

	_, err := svc.GrantEquipment(context.Background(), requesterUser(10), GrantInput{EquipmentID: 1, HolderID: 10})
	require.Error(t, err)
	require.Equal(t, errs.KindForbidden, errs.KindOf(err))
}

func TestGrantEquipment_DebitsAndNotifiesHolder(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo, false)
	item := quantityItem(1, "LPT-01", 4)
	holder := requesterUser(10)

	repo.On("FindUserByID", mock.Anything, uint(10)).Return(holder, nil)
	repo.On("LockEquipment", mock.Anything, uint(1)).Return(item, nil)
	repo.On("SaveEquipment", mock.Anything, item).Return(nil)
	repo.On("CreateAssignment", mock.Anything, mock.MatchedBy(func(a *models.Assignment) bool {
		return a.EquipmentID == 1 && a.HolderID == 10 && a.RequestID == nil && a.Open()
	})).Return(nil)
	repo.On("CreateNotification", mock.Anything, mock.MatchedBy(func(n *models.Notification) bool {
		return n.RecipientID == 10
	})).Return(nil)

	a, err := svc.GrantEquipment(context.Background(), staffUser(1), GrantInput{
		EquipmentID: 1,
		HolderID:    10,
		Quantity:    2,
		Department:  "engineering",
	})
	require.NoError(t, err)
	require.Equal(t, uint(1), a.EquipmentID)
	require.Equal(t, 2, item.Quantity)
	repo.AssertExpectations(t)
}

func TestGrantEquipment_InsufficientAvailability(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo, false)
	holder := requesterUser(10)

	repo.On("FindUserByID", mock.Anything, uint(10)).Return(holder, nil)
	repo.On("LockEquipment", mock.Anything, uint(1)).Return(quantityItem(1, "LPT-01", 1), nil)

	_, err := svc.GrantEquipment(context.Background(), staffUser(1), GrantInput{
		EquipmentID: 1,
		HolderID:    10,
		Quantity:    3,
	})
	require.Error(t, err)
	require.Equal(t, errs.KindInsufficientAvailability, errs.KindOf(err))
	repo.AssertNotCalled(t, "CreateAssignment", mock.Anything, mock.Anything)
}

func TestReturnAssignment_RestoresRequestQuantity(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo, false)
	reqID := uint(7)
	item := quantityItem(1, "LPT-01", 3)
	item.Assigned = true
	a := openAssignment(20, 1, 10, &reqID)
	req := pendingRequest(7, 10, 2, *item)
	req.Status = models.RequestApproved

	repo.On("LockAssignment", mock.Anything, uint(20)).Return(a, nil)
	repo.On("SaveAssignment", mock.Anything, a).Return(nil)
	repo.On("FindRequestByID", mock.Anything, uint(7)).Return(req, nil)
	repo.On("LockEquipment", mock.Anything, uint(1)).Return(item, nil)
	repo.On("CountOpenAssignments", mock.Anything, uint(1)).Return(int64(0), nil)
	repo.On("SaveEquipment", mock.Anything, item).Return(nil)
	repo.On("CountOpenAssignmentsForRequest", mock.Anything, uint(7)).Return(int64(0), nil)
	repo.On("SaveRequest", mock.Anything, req).Return(nil)
	repo.On("ListStaff", mock.Anything).Return([]models.User{*staffUser(1)}, nil)
	repo.On("CreateNotification", mock.Anything, mock.Anything).Return(nil)

	returned, err := svc.ReturnAssignment(context.Background(), requesterUser(10), 20)
	require.NoError(t, err)
	require.False(t, returned.Open())
	require.Equal(t, 5, item.Quantity)
	require.False(t, item.Assigned)
	require.True(t, req.Archived)
	repo.AssertExpectations(t)
}

func TestReturnAssignment_FallbackSingleUnitWithoutRequest(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo, false)
	item := quantityItem(1, "LPT-01", 4)
	item.Assigned = true
	a := openAssignment(20, 1, 10, nil)

	repo.On("LockAssignment", mock.Anything, uint(20)).Return(a, nil)
	repo.On("SaveAssignment", mock.Anything, a).Return(nil)
	repo.On("LockEquipment", mock.Anything, uint(1)).Return(item, nil)
	repo.On("CountOpenAssignments", mock.Anything, uint(1)).Return(int64(0), nil)
	repo.On("SaveEquipment", mock.Anything, item).Return(nil)
	repo.On("ListStaff", mock.Anything).Return([]models.User{*staffUser(1)}, nil)
	repo.On("CreateNotification", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.ReturnAssignment(context.Background(), requesterUser(10), 20)
	require.NoError(t, err)
	require.Equal(t, 5, item.Quantity)
	repo.AssertExpectations(t)
}

func TestReturnAssignment_KeepsAssignedWhileOthersHold(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo, false)
	item := quantityItem(1, "LPT-01", 2)
	item.Assigned = true
	a := openAssignment(20, 1, 10, nil)

	repo.On("LockAssignment", mock.Anything, uint(20)).Return(a, nil)
	repo.On("SaveAssignment", mock.Anything, a).Return(nil)
	repo.On("LockEquipment", mock.Anything, uint(1)).Return(item, nil)
	repo.On("CountOpenAssignments", mock.Anything, uint(1)).Return(int64(1), nil)
	repo.On("SaveEquipment", mock.Anything, item).Return(nil)
	repo.On("ListStaff", mock.Anything).Return([]models.User{*staffUser(1)}, nil)
	repo.On("CreateNotification", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.ReturnAssignment(context.Background(), requesterUser(10), 20)
	require.NoError(t, err)
	require.Equal(t, 3, item.Quantity)
	require.True(t, item.Assigned)
	repo.AssertExpectations(t)
}

func TestReturnAssignment_AlreadyReturned(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo, false)
	a := openAssignment(20, 1, 10, nil)
	past := time.Now().UTC().Add(-time.Minute)
	a.ReturnedAt = &past

	repo.On("LockAssignment", mock.Anything, uint(20)).Return(a, nil)

	_, err := svc.ReturnAssignment(context.Background(), requesterUser(10), 20)
	require.Error(t, err)
	require.Equal(t, errs.KindAlreadyReturned, errs.KindOf(err))
	repo.AssertNotCalled(t, "SaveAssignment", mock.Anything, mock.Anything)
}

func TestReturnAssignment_ForbiddenForStrangers(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo, false)
	a := openAssignment(20, 1, 10, nil)

	repo.On("LockAssignment", mock.Anything, uint(20)).Return(a, nil)

	_, err := svc.ReturnAssignment(context.Background(), requesterUser(99), 20)
	require.Error(t, err)
	require.Equal(t, errs.KindForbidden, errs.KindOf(err))
}

func TestReturnAssignment_StaffCanReturnForHolder(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo, false)
	item := quantityItem(1, "LPT-01", 4)
	item.Assigned = true
	a := openAssignment(20, 1, 10, nil)

	repo.On("LockAssignment", mock.Anything, uint(20)).Return(a, nil)
	repo.On("SaveAssignment", mock.Anything, a).Return(nil)
	repo.On("LockEquipment", mock.Anything, uint(1)).Return(item, nil)
	repo.On("CountOpenAssignments", mock.Anything, uint(1)).Return(int64(0), nil)
	repo.On("SaveEquipment", mock.Anything, item).Return(nil)
	repo.On("ListStaff", mock.Anything).Return([]models.User{*staffUser(1)}, nil)
	repo.On("CreateNotification", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.ReturnAssignment(context.Background(), staffUser(1), 20)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestReassignEquipment_SwapsItems(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo, false)
	old := quantityItem(1, "LPT-01", 0)
	old.Assigned = true
	next := quantityItem(2, "LPT-02", 3)
	a := openAssignment(20, 1, 10, nil)

	repo.On("LockAssignment", mock.Anything, uint(20)).Return(a, nil)
	repo.On("LockEquipment", mock.Anything, uint(1)).Return(old, nil)
	repo.On("LockEquipment", mock.Anything, uint(2)).Return(next, nil)
	repo.On("SaveAssignment", mock.Anything, a).Return(nil)
	repo.On("CountOpenAssignments", mock.Anything, uint(1)).Return(int64(0), nil)
	repo.On("SaveEquipment", mock.Anything, old).Return(nil)
	repo.On("SaveEquipment", mock.Anything, next).Return(nil)
	repo.On("CreateNotification", mock.Anything, mock.MatchedBy(func(n *models.Notification) bool {
		return n.RecipientID == 10
	})).Return(nil)

	out, err := svc.ReassignEquipment(context.Background(), staffUser(1), 20, 2)
	require.NoError(t, err)
	require.Equal(t, uint(2), out.EquipmentID)
	require.Equal(t, 1, old.Quantity)
	require.False(t, old.Assigned)
	require.Equal(t, 2, next.Quantity)
	require.True(t, next.Assigned)
	repo.AssertExpectations(t)
}

// Approve then return round-trips the full stock.
func TestApproveThenReturnRoundTrip(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo, false)
	item := quantityItem(1, "LPT-01", 5)
	req := pendingRequest(7, 10, 2, *item)

	var created *models.Assignment
	repo.On("LockRequest", mock.Anything, uint(7)).Return(req, nil)
	repo.On("LockEquipment", mock.Anything, uint(1)).Return(item, nil)
	repo.On("SaveEquipment", mock.Anything, item).Return(nil)
	repo.On("CreateAssignment", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*models.Assignment)
		created.ID = 20
	}).Return(nil)
	repo.On("SaveRequest", mock.Anything, req).Return(nil)
	repo.On("CreateNotification", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.ApproveRequest(context.Background(), staffUser(1), 7)
	require.NoError(t, err)
	require.Equal(t, 3, item.Quantity)
	require.NotNil(t, created)

	repo.On("LockAssignment", mock.Anything, uint(20)).Return(created, nil)
	repo.On("SaveAssignment", mock.Anything, created).Return(nil)
	repo.On("FindRequestByID", mock.Anything, uint(7)).Return(req, nil)
	repo.On("CountOpenAssignments", mock.Anything, uint(1)).Return(int64(0), nil)
	repo.On("CountOpenAssignmentsForRequest", mock.Anything, uint(7)).Return(int64(0), nil)
	repo.On("ListStaff", mock.Anything).Return([]models.User{*staffUser(1)}, nil)

	_, err = svc.ReturnAssignment(context.Background(), requesterUser(10), 20)
	require.NoError(t, err)
	require.Equal(t, 5, item.Quantity)
	require.False(t, item.Assigned)
	require.True(t, req.Archived)
}
