package models

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Model is the base model with common fields for all database entities
type Model struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// User is the principal store for the identity collaborator. The core only
// ever reads the two capability flags; account management happens elsewhere.
type User struct {
	Model
	Username    string `json:"username" gorm:"not null"`
	Email       string `json:"email" gorm:"uniqueIndex;not null"`
	AccessToken string `json:"-" gorm:"uniqueIndex;not null"`
	Elevated    bool   `json:"elevated" gorm:"not null;default:false"`
	Superuser   bool   `json:"superuser" gorm:"not null;default:false"`
}

// AvailabilityMode selects how an equipment item tracks availability
type AvailabilityMode string

const (
	// ModeQuantity tracks a countable stock with an assigned marker
	ModeQuantity AvailabilityMode = "quantity"
	// ModeState tracks a single discrete unit through an enumerated state
	ModeState AvailabilityMode = "state"
)

// EquipmentState is the enumerated availability of a state-tracked item
type EquipmentState string

const (
	StateAvailable    EquipmentState = "available"
	StateAssigned     EquipmentState = "assigned"
	StateOutOfService EquipmentState = "out_of_service"
)

// EquipmentItem is a catalog entry. Depending on Mode either the
// Quantity/Assigned pair or State carries its availability; the other
// representation is ignored.
type EquipmentItem struct {
	Model
	Code        string           `json:"code" gorm:"uniqueIndex;not null"`
	Name        string           `json:"name" gorm:"not null"`
	Category    string           `json:"category"`
	SubCategory string           `json:"sub_category"`
	Location    string           `json:"location"`
	Year        int              `json:"year"`
	Mode        AvailabilityMode `json:"mode" gorm:"not null;default:quantity"`
	Quantity    int              `json:"quantity" gorm:"not null;default:0"`
	Assigned    bool             `json:"assigned" gorm:"not null;default:false"`
	State       EquipmentState   `json:"state" gorm:"not null;default:available"`
}

// RequestStatus is the workflow state of an equipment request
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// EquipmentRequest is a staff member's request for one or more items.
// Pending requests transition exactly once, to approved or rejected.
type EquipmentRequest struct {
	Model
	RequesterID   uint            `json:"requester_id" gorm:"not null;index"`
	Requester     *User           `json:"requester,omitempty" gorm:"foreignKey:RequesterID"`
	Equipment     []EquipmentItem `json:"equipment,omitempty" gorm:"many2many:request_equipment"`
	Quantity      int             `json:"quantity" gorm:"not null;default:1"`
	Subject       string          `json:"subject"`
	Justification string          `json:"justification"`
	Department    string          `json:"department"`
	Status        RequestStatus   `json:"status" gorm:"not null;default:pending;index"`
	Archived      bool            `json:"archived" gorm:"not null;default:false"`
}

// Assignment records a grant of equipment to a holder. Rows are never
// deleted; a nil ReturnedAt means the assignment is still open.
type Assignment struct {
	Model
	EquipmentID uint              `json:"equipment_id" gorm:"not null;index"`
	Equipment   *EquipmentItem    `json:"equipment,omitempty" gorm:"foreignKey:EquipmentID"`
	HolderID    uint              `json:"holder_id" gorm:"not null;index"`
	Holder      *User             `json:"holder,omitempty" gorm:"foreignKey:HolderID"`
	RequestID   *uint             `json:"request_id" gorm:"index"`
	Request     *EquipmentRequest `json:"request,omitempty" gorm:"foreignKey:RequestID"`
	Department  string            `json:"department"`
	GrantedAt   time.Time         `json:"granted_at" gorm:"not null"`
	ReturnedAt  *time.Time        `json:"returned_at"`
}

// Open reports whether the assignment has not been returned yet
func (a *Assignment) Open() bool {
	return a.ReturnedAt == nil
}

// Notification is an append-only message owned by its recipient
type Notification struct {
	Model
	RecipientID uint   `json:"recipient_id" gorm:"not null;index"`
	Message     string `json:"message" gorm:"not null"`
	Read        bool   `json:"read" gorm:"not null;default:false"`
}

// InterventionRequest asks for a technician intervention on a workstation
type InterventionRequest struct {
	Model
	RequesterID uint   `json:"requester_id" gorm:"not null;index"`
	Requester   *User  `json:"requester,omitempty" gorm:"foreignKey:RequesterID"`
	Department  string `json:"department"`
	Post        string `json:"post"`
	Description string `json:"description" gorm:"not null"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&EquipmentItem{},
		&EquipmentRequest{},
		&Assignment{},
		&Notification{},
		&InterventionRequest{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
