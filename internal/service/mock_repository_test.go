package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"example.com/backstage/services/inventory/internal/models"
	"example.com/backstage/services/inventory/internal/repository"
)

// mockRepository is a testify mock of repository.Repository.
// WithTransaction runs the callback against the mock itself, so tests
// set expectations once and exercise transactional flows directly.
type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo repository.Repository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) CreateEquipment(ctx context.Context, item *models.EquipmentItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockRepository) SaveEquipment(ctx context.Context, item *models.EquipmentItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockRepository) DeleteEquipment(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepository) FindEquipmentByID(ctx context.Context, id uint) (*models.EquipmentItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EquipmentItem), args.Error(1)
}

func (m *mockRepository) FindEquipmentByCode(ctx context.Context, code string) (*models.EquipmentItem, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EquipmentItem), args.Error(1)
}

func (m *mockRepository) LockEquipment(ctx context.Context, id uint) (*models.EquipmentItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EquipmentItem), args.Error(1)
}

func (m *mockRepository) ListEquipment(ctx context.Context, filter repository.EquipmentFilter) ([]models.EquipmentItem, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.EquipmentItem), args.Error(1)
}

func (m *mockRepository) CreateRequest(ctx context.Context, req *models.EquipmentRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockRepository) SaveRequest(ctx context.Context, req *models.EquipmentRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockRepository) FindRequestByID(ctx context.Context, id uint) (*models.EquipmentRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EquipmentRequest), args.Error(1)
}

func (m *mockRepository) LockRequest(ctx context.Context, id uint) (*models.EquipmentRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EquipmentRequest), args.Error(1)
}

func (m *mockRepository) ListRequests(ctx context.Context, filter repository.RequestFilter) ([]models.EquipmentRequest, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.EquipmentRequest), args.Error(1)
}

func (m *mockRepository) ClearRequestEquipment(ctx context.Context, req *models.EquipmentRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockRepository) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockRepository) SaveAssignment(ctx context.Context, a *models.Assignment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockRepository) FindAssignmentByID(ctx context.Context, id uint) (*models.Assignment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Assignment), args.Error(1)
}

func (m *mockRepository) LockAssignment(ctx context.Context, id uint) (*models.Assignment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Assignment), args.Error(1)
}

func (m *mockRepository) ListAssignments(ctx context.Context, filter repository.AssignmentFilter) ([]models.Assignment, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Assignment), args.Error(1)
}

func (m *mockRepository) CountOpenAssignments(ctx context.Context, equipmentID uint) (int64, error) {
	args := m.Called(ctx, equipmentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepository) CountOpenAssignmentsForRequest(ctx context.Context, requestID uint) (int64, error) {
	args := m.Called(ctx, requestID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepository) CreateUser(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockRepository) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockRepository) FindUserByToken(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockRepository) ListStaff(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *mockRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockRepository) ListNotifications(ctx context.Context, recipientID uint) ([]models.Notification, error) {
	args := m.Called(ctx, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *mockRepository) MarkNotificationRead(ctx context.Context, id, recipientID uint) error {
	return m.Called(ctx, id, recipientID).Error(0)
}

func (m *mockRepository) CreateIntervention(ctx context.Context, ir *models.InterventionRequest) error {
	return m.Called(ctx, ir).Error(0)
}

func (m *mockRepository) ListInterventions(ctx context.Context, filter repository.InterventionFilter) ([]models.InterventionRequest, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InterventionRequest), args.Error(1)
}

// helpers shared across the service tests

func newTestService(repo repository.Repository, atomic bool) Service {
	svc, err := NewService(Config{Repository: repo, AtomicApproval: atomic})
	if err != nil {
		panic(err)
	}
	return svc
}

func quantityItem(id uint, code string, qty int) *models.EquipmentItem {
	item := &models.EquipmentItem{
		Code:     code,
		Name:     code,
		Mode:     models.ModeQuantity,
		Quantity: qty,
		State:    models.StateAvailable,
	}
	item.ID = id
	return item
}

func stateItem(id uint, code string, st models.EquipmentState) *models.EquipmentItem {
	item := &models.EquipmentItem{
		Code:  code,
		Name:  code,
		Mode:  models.ModeState,
		State: st,
	}
	item.ID = id
	return item
}

func staffUser(id uint) *models.User {
	u := &models.User{Username: "manager", Email: "manager@example.com", Elevated: true}
	u.ID = id
	return u
}

func requesterUser(id uint) *models.User {
	u := &models.User{Username: "requester", Email: "requester@example.com"}
	u.ID = id
	return u
}

func pendingRequest(id, requesterID uint, qty int, items ...models.EquipmentItem) *models.EquipmentRequest {
	req := &models.EquipmentRequest{
		RequesterID: requesterID,
		Equipment:   items,
		Quantity:    qty,
		Subject:     "laptops for the new hires",
		Department:  "engineering",
		Status:      models.RequestPending,
	}
	req.ID = id
	return req
}

func openAssignment(id, equipmentID, holderID uint, requestID *uint) *models.Assignment {
	a := &models.Assignment{
		EquipmentID: equipmentID,
		HolderID:    holderID,
		RequestID:   requestID,
		GrantedAt:   time.Now().UTC().Add(-time.Hour),
	}
	a.ID = id
	return a
}
