package repository

import (
	"context"
	"time"

	"example.com/backstage/services/inventory/internal/database"
	"example.com/backstage/services/inventory/internal/errs"
	"example.com/backstage/services/inventory/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EquipmentFilter narrows a catalog listing. Empty fields are no-ops and
// populated fields compose with AND.
type EquipmentFilter struct {
	Category    string
	SubCategory string
	Location    string
	Assigned    *bool
	State       models.EquipmentState
}

// RequestFilter narrows a request listing
type RequestFilter struct {
	Status         models.RequestStatus
	RequesterEmail string
	CreatedOn      *time.Time
	Archived       *bool
}

// AssignmentFilter narrows an assignment listing
type AssignmentFilter struct {
	HolderID    uint
	EquipmentID uint
	OpenOnly    bool
}

// InterventionFilter narrows an intervention request listing
type InterventionFilter struct {
	RequesterEmail string
	CreatedOn      *time.Time
}

// Repository provides data access methods
type Repository interface {
	// Transaction support
	WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error

	// Equipment operations
	CreateEquipment(ctx context.Context, item *models.EquipmentItem) error
	SaveEquipment(ctx context.Context, item *models.EquipmentItem) error
	DeleteEquipment(ctx context.Context, id uint) error
	FindEquipmentByID(ctx context.Context, id uint) (*models.EquipmentItem, error)
	FindEquipmentByCode(ctx context.Context, code string) (*models.EquipmentItem, error)
	LockEquipment(ctx context.Context, id uint) (*models.EquipmentItem, error)
	ListEquipment(ctx context.Context, filter EquipmentFilter) ([]models.EquipmentItem, error)

	// Request operations
	CreateRequest(ctx context.Context, req *models.EquipmentRequest) error
	SaveRequest(ctx context.Context, req *models.EquipmentRequest) error
	FindRequestByID(ctx context.Context, id uint) (*models.EquipmentRequest, error)
	LockRequest(ctx context.Context, id uint) (*models.EquipmentRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]models.EquipmentRequest, error)
	ClearRequestEquipment(ctx context.Context, req *models.EquipmentRequest) error

	// Assignment operations
	CreateAssignment(ctx context.Context, a *models.Assignment) error
	SaveAssignment(ctx context.Context, a *models.Assignment) error
	FindAssignmentByID(ctx context.Context, id uint) (*models.Assignment, error)
	LockAssignment(ctx context.Context, id uint) (*models.Assignment, error)
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, error)
	CountOpenAssignments(ctx context.Context, equipmentID uint) (int64, error)
	CountOpenAssignmentsForRequest(ctx context.Context, requestID uint) (int64, error)

	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	FindUserByToken(ctx context.Context, token string) (*models.User, error)
	ListStaff(ctx context.Context) ([]models.User, error)

	// Notification operations
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, recipientID uint) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, recipientID uint) error

	// Intervention operations
	CreateIntervention(ctx context.Context, ir *models.InterventionRequest) error
	ListInterventions(ctx context.Context, filter InterventionFilter) ([]models.InterventionRequest, error)
}

// repo is an implementation of the Repository interface
type repo struct {
	db database.DB
}

// dbWrapper adapts an open transaction to the database.DB interface
type dbWrapper struct {
	db *gorm.DB
}

func (w *dbWrapper) DB() (*gorm.DB, error) {
	return w.db, nil
}

func (w *dbWrapper) Close() error {
	return nil
}

// NewRepository creates a new repository instance
func NewRepository(db database.DB) Repository {
	return &repo{db: db}
}

// WithTransaction executes the given function within a database transaction
func (r *repo) WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &repo{db: &dbWrapper{db: tx}})
	})
}

// translate maps GORM lookup failures onto the service error taxonomy
func translate(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.Newf(errs.KindNotFound, "%s not found", what)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.Newf(errs.KindConflict, "%s already exists", what)
	}
	return err
}

// Equipment operations

func (r *repo) CreateEquipment(ctx context.Context, item *models.EquipmentItem) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}
	if err := gormDB.WithContext(ctx).Create(item).Error; err != nil {
		return translate(err, "equipment")
	}
	return nil
}

func (r *repo) SaveEquipment(ctx context.Context, item *models.EquipmentItem) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return gormDB.WithContext(ctx).Save(item).Error
}

func (r *repo) DeleteEquipment(ctx context.Context, id uint) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}
	result := gormDB.WithContext(ctx).Delete(&models.EquipmentItem{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.New(errs.KindNotFound, "equipment not found")
	}
	return nil
}

func (r *repo) FindEquipmentByID(ctx context.Context, id uint) (*models.EquipmentItem, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}
	var item models.EquipmentItem
	if err := gormDB.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, translate(err, "equipment")
	}
	return &item, nil
}

func (r *repo) FindEquipmentByCode(ctx context.Context, code string) (*models.EquipmentItem, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}
	var item models.EquipmentItem
	if err := gormDB.WithContext(ctx).Where("code = ?", code).First(&item).Error; err != nil {
		return nil, translate(err, "equipment")
	}
	return &item, nil
}

// LockEquipment loads an equipment row under SELECT ... FOR UPDATE so that
// concurrent debits serialize. Only meaningful inside WithTransaction.
func (r *repo) LockEquipment(ctx context.Context, id uint) (*models.EquipmentItem, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}
	var item models.EquipmentItem
	if err := gormDB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, id).Error; err != nil {
		return nil, translate(err, "equipment")
	}
	return &item, nil
}

func (r *repo) ListEquipment(ctx context.Context, filter EquipmentFilter) ([]models.EquipmentItem, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	q := gormDB.WithContext(ctx).Model(&models.EquipmentItem{}).Order("id")
	if filter.Category != "" {
		q = q.Where("category ILIKE ?", "%"+filter.Category+"%")
	}
	if filter.SubCategory != "" {
		q = q.Where("sub_category ILIKE ?", "%"+filter.SubCategory+"%")
	}
	if filter.Location != "" {
		q = q.Where("location ILIKE ?", "%"+filter.Location+"%")
	}
	if filter.Assigned != nil {
		q = q.Where("assigned = ?", *filter.Assigned)
	}
	if filter.State != "" {
		q = q.Where("state = ?", filter.State)
	}

	var items []models.EquipmentItem
	if err := q.Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list equipment")
	}
	return items, nil
}

// Request operations

func (r *repo) CreateRequest(ctx context.Context, req *models.EquipmentRequest) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return gormDB.WithContext(ctx).Create(req).Error
}

func (r *repo) SaveRequest(ctx context.Context, req *models.EquipmentRequest) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}
	// Omit the association so a save never re-attaches cleared equipment.
	return gormDB.WithContext(ctx).Omit("Equipment").Save(req).Error
}

func (r *repo) FindRequestByID(ctx context.Context, id uint) (*models.EquipmentRequest, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}
	var req models.EquipmentRequest
	if err := gormDB.WithContext(ctx).
		Preload("Equipment").Preload("Requester").
		First(&req, id).Error; err != nil {
		return nil, translate(err, "request")
	}
	return &req, nil
}

func (r *repo) LockRequest(ctx context.Context, id uint) (*models.EquipmentRequest, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}
	var req models.EquipmentRequest
	if err := gormDB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, id).Error; err != nil {
		return nil, translate(err, "request")
	}
	// Associations are loaded outside the locking clause; FOR UPDATE does
	// not apply to joined preloads.
	if err := gormDB.WithContext(ctx).Model(&req).Association("Equipment").Find(&req.Equipment); err != nil {
		return nil, errors.Wrap(err, "failed to load request equipment")
	}
	return &req, nil
}

func (r *repo) ListRequests(ctx context.Context, filter RequestFilter) ([]models.EquipmentRequest, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	q := gormDB.WithContext(ctx).Model(&models.EquipmentRequest{}).
		Preload("Equipment").Preload("Requester").
		Order("created_at DESC")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.RequesterEmail != "" {
		q = q.Joins("JOIN users ON users.id = equipment_requests.requester_id").
			Where("users.email ILIKE ?", "%"+filter.RequesterEmail+"%")
	}
	if filter.CreatedOn != nil {
		day := filter.CreatedOn.Truncate(24 * time.Hour)
		q = q.Where("equipment_requests.created_at >= ? AND equipment_requests.created_at < ?",
			day, day.Add(24*time.Hour))
	}
	if filter.Archived != nil {
		q = q.Where("archived = ?", *filter.Archived)
	}

	var reqs []models.EquipmentRequest
	if err := q.Find(&reqs).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list requests")
	}
	return reqs, nil
}

func (r *repo) ClearRequestEquipment(ctx context.Context, req *models.EquipmentRequest) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}
	if err := gormDB.WithContext(ctx).Model(req).Association("Equipment").Clear(); err != nil {
		return errors.Wrap(err, "failed to clear request equipment")
	}
	req.Equipment = nil
	return nil
}

// Assignment operations

func (r *repo) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return gormDB.WithContext(ctx).Create(a).Error
}

func (r *repo) SaveAssignment(ctx context.Context, a *models.Assignment) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return gormDB.WithContext(ctx).Save(a).Error
}

func (r *repo) FindAssignmentByID(ctx context.Context, id uint) (*models.Assignment, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}
	var a models.Assignment
	if err := gormDB.WithContext(ctx).
		Preload("Equipment").Preload("Holder").Preload("Request").
		First(&a, id).Error; err != nil {
		return nil, translate(err, "assignment")
	}
	return &a, nil
}

func (r *repo) LockAssignment(ctx context.Context, id uint) (*models.Assignment, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}
	var a models.Assignment
	if err := gormDB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&a, id).Error; err != nil {
		return nil, translate(err, "assignment")
	}
	return &a, nil
}

func (r *repo) ListAssignments(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	q := gormDB.WithContext(ctx).Model(&models.Assignment{}).
		Preload("Equipment").Preload("Holder").
		Order("granted_at DESC")
	if filter.HolderID != 0 {
		q = q.Where("holder_id = ?", filter.HolderID)
	}
	if filter.EquipmentID != 0 {
		q = q.Where("equipment_id = ?", filter.EquipmentID)
	}
	if filter.OpenOnly {
		q = q.Where("returned_at IS NULL")
	}

	var list []models.Assignment
	if err := q.Find(&list).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list assignments")
	}
	return list, nil
}

func (r *repo) CountOpenAssignments(ctx context.Context, equipmentID uint) (int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return 0, err
	}
	var n int64
	err = gormDB.WithContext(ctx).Model(&models.Assignment{}).
		Where("equipment_id = ? AND returned_at IS NULL", equipmentID).
		Count(&n).Error
	return n, err
}

func (r *repo) CountOpenAssignmentsForRequest(ctx context.Context, requestID uint) (int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return 0, err
	}
	var n int64
	err = gormDB.WithContext(ctx).Model(&models.Assignment{}).
		Where("request_id = ? AND returned_at IS NULL", requestID).
		Count(&n).Error
	return n, err
}

// User operations

func (r *repo) CreateUser(ctx context.Context, user *models.User) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}
	if err := gormDB.WithContext(ctx).Create(user).Error; err != nil {
		return translate(err, "user")
	}
	return nil
}

func (r *repo) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := gormDB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

func (r *repo) FindUserByToken(ctx context.Context, token string) (*models.User, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := gormDB.WithContext(ctx).Where("access_token = ?", token).First(&user).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

// ListStaff returns every user holding the Manager or Administrator role
func (r *repo) ListStaff(ctx context.Context) ([]models.User, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := gormDB.WithContext(ctx).
		Where("elevated = ? OR superuser = ?", true, true).
		Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list staff users")
	}
	return users, nil
}

// Notification operations

func (r *repo) CreateNotification(ctx context.Context, n *models.Notification) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return gormDB.WithContext(ctx).Create(n).Error
}

func (r *repo) ListNotifications(ctx context.Context, recipientID uint) ([]models.Notification, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}
	var list []models.Notification
	if err := gormDB.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}
	return list, nil
}

func (r *repo) MarkNotificationRead(ctx context.Context, id, recipientID uint) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}
	result := gormDB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.New(errs.KindNotFound, "notification not found")
	}
	return nil
}

// Intervention operations

func (r *repo) CreateIntervention(ctx context.Context, ir *models.InterventionRequest) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return gormDB.WithContext(ctx).Create(ir).Error
}

func (r *repo) ListInterventions(ctx context.Context, filter InterventionFilter) ([]models.InterventionRequest, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	q := gormDB.WithContext(ctx).Model(&models.InterventionRequest{}).
		Preload("Requester").
		Order("created_at DESC")
	if filter.RequesterEmail != "" {
		q = q.Joins("JOIN users ON users.id = intervention_requests.requester_id").
			Where("users.email ILIKE ?", "%"+filter.RequesterEmail+"%")
	}
	if filter.CreatedOn != nil {
		day := filter.CreatedOn.Truncate(24 * time.Hour)
		q = q.Where("intervention_requests.created_at >= ? AND intervention_requests.created_at < ?",
			day, day.Add(24*time.Hour))
	}

	var list []models.InterventionRequest
	if err := q.Find(&list).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list intervention requests")
	}
	return list, nil
}
