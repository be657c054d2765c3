package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"example.com/backstage/services/inventory/internal/availability"
	"example.com/backstage/services/inventory/internal/errs"
	"example.com/backstage/services/inventory/internal/models"
	"example.com/backstage/services/inventory/internal/repository"
	"example.com/backstage/services/inventory/internal/roles"
)

// GrantInput carries a direct grant outside the request workflow.
type GrantInput struct {
	EquipmentID uint   `json:"equipment_id"`
	HolderID    uint   `json:"holder_id"`
	Quantity    int    `json:"quantity"`
	Department  string `json:"department"`
}

// GrantEquipment hands equipment to a holder directly, without a request.
// Staff only.
func (s *service) GrantEquipment(ctx context.Context, actor *models.User, input GrantInput) (*models.Assignment, error) {
	txn := s.tracer.StartTransaction("service.GrantEquipment")
	defer s.tracer.EndTransaction(txn)

	if !roles.IsStaff(roles.Resolve(actor.Elevated, actor.Superuser)) {
		return nil, errs.New(errs.KindForbidden, "only staff can grant equipment")
	}
	if input.Quantity < 1 {
		input.Quantity = 1
	}

	holder, err := s.repo.FindUserByID(ctx, input.HolderID)
	if err != nil {
		return nil, err
	}

	var (
		assignment *models.Assignment
		item       *models.EquipmentItem
	)
	err = s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.Repository) error {
		locked, err := tx.LockEquipment(ctx, input.EquipmentID)
		if err != nil {
			return err
		}
		if err := availability.Debit(locked, input.Quantity); err != nil {
			return err
		}
		if err := tx.SaveEquipment(ctx, locked); err != nil {
			return err
		}
		a := &models.Assignment{
			EquipmentID: locked.ID,
			HolderID:    holder.ID,
			Department:  input.Department,
			GrantedAt:   time.Now().UTC(),
		}
		if err := tx.CreateAssignment(ctx, a); err != nil {
			return err
		}
		assignment = a
		item = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refreshEquipment(ctx, item)
	s.metrics.IncrementCounter("assignments.granted")
	s.appendNotification(ctx, holder.ID,
		fmt.Sprintf("Equipment %q has been assigned to you", item.Code))
	log.Info().
		Uint("assignment_id", assignment.ID).
		Uint("equipment_id", item.ID).
		Uint("holder_id", holder.ID).
		Msg("Equipment granted")
	return assignment, nil
}

// ReassignEquipment swaps the equipment behind an open assignment:
// the old item is credited back and the new one debited. Staff only.
func (s *service) ReassignEquipment(ctx context.Context, actor *models.User, assignmentID, newEquipmentID uint) (*models.Assignment, error) {
	txn := s.tracer.StartTransaction("service.ReassignEquipment")
	defer s.tracer.EndTransaction(txn)

	if !roles.IsStaff(roles.Resolve(actor.Elevated, actor.Superuser)) {
		return nil, errs.New(errs.KindForbidden, "only staff can reassign equipment")
	}

	var (
		assignment *models.Assignment
		oldItem    *models.EquipmentItem
		newItem    *models.EquipmentItem
	)
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.Repository) error {
		a, err := tx.LockAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if !a.Open() {
			return errs.Newf(errs.KindAlreadyReturned, "assignment #%d has already been returned", a.ID)
		}
		if a.EquipmentID == newEquipmentID {
			return errs.New(errs.KindValidation, "assignment already holds this equipment")
		}
		amount := s.restoreAmount(ctx, tx, a)

		old, err := tx.LockEquipment(ctx, a.EquipmentID)
		if err != nil {
			return err
		}
		next, err := tx.LockEquipment(ctx, newEquipmentID)
		if err != nil {
			return err
		}

		a.EquipmentID = next.ID
		a.Equipment = nil
		if err := tx.SaveAssignment(ctx, a); err != nil {
			return err
		}

		open, err := tx.CountOpenAssignments(ctx, old.ID)
		if err != nil {
			return err
		}
		if err := availability.Credit(old, amount, open); err != nil {
			return err
		}
		if err := tx.SaveEquipment(ctx, old); err != nil {
			return err
		}
		if err := availability.Debit(next, amount); err != nil {
			return err
		}
		if err := tx.SaveEquipment(ctx, next); err != nil {
			return err
		}

		assignment = a
		oldItem = old
		newItem = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refreshEquipment(ctx, oldItem)
	s.refreshEquipment(ctx, newItem)
	s.metrics.IncrementCounter("assignments.reassigned")
	s.appendNotification(ctx, assignment.HolderID,
		fmt.Sprintf("Your assignment of %q has been replaced with %q", oldItem.Code, newItem.Code))
	log.Info().
		Uint("assignment_id", assignment.ID).
		Uint("old_equipment_id", oldItem.ID).
		Uint("new_equipment_id", newItem.ID).
		Msg("Assignment reassigned")
	return assignment, nil
}

// ReturnAssignment closes an open assignment and credits the equipment
// back. The holder can return their own equipment; staff can return
// anyone's.
func (s *service) ReturnAssignment(ctx context.Context, actor *models.User, assignmentID uint) (*models.Assignment, error) {
	txn := s.tracer.StartTransaction("service.ReturnAssignment")
	defer s.tracer.EndTransaction(txn)

	var (
		returned *models.Assignment
		item     *models.EquipmentItem
	)
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.Repository) error {
		a, err := tx.LockAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if a.HolderID != actor.ID && !roles.IsStaff(roles.Resolve(actor.Elevated, actor.Superuser)) {
			return errs.New(errs.KindForbidden, "only the holder or staff can return an assignment")
		}
		if !a.Open() {
			return errs.Newf(errs.KindAlreadyReturned, "assignment #%d has already been returned", a.ID)
		}

		now := time.Now().UTC()
		a.ReturnedAt = &now
		if err := tx.SaveAssignment(ctx, a); err != nil {
			return err
		}

		amount := s.restoreAmount(ctx, tx, a)
		locked, err := tx.LockEquipment(ctx, a.EquipmentID)
		if err != nil {
			return err
		}
		open, err := tx.CountOpenAssignments(ctx, locked.ID)
		if err != nil {
			return err
		}
		if err := availability.Credit(locked, amount, open); err != nil {
			return err
		}
		if err := tx.SaveEquipment(ctx, locked); err != nil {
			return err
		}

		// Once every assignment spawned by a request is closed, the
		// request drops out of the active listings.
		if a.RequestID != nil {
			stillOpen, err := tx.CountOpenAssignmentsForRequest(ctx, *a.RequestID)
			if err != nil {
				return err
			}
			if stillOpen == 0 {
				req, err := tx.FindRequestByID(ctx, *a.RequestID)
				if err != nil {
					return err
				}
				req.Archived = true
				if err := tx.SaveRequest(ctx, req); err != nil {
					return err
				}
			}
		}

		returned = a
		item = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refreshEquipment(ctx, item)
	s.metrics.IncrementCounter("assignments.returned")
	s.notifyStaff(ctx, fmt.Sprintf("Equipment %q was returned by holder #%d", item.Code, returned.HolderID))
	log.Info().
		Uint("assignment_id", returned.ID).
		Uint("equipment_id", item.ID).
		Msg("Assignment returned")
	return returned, nil
}

// restoreAmount resolves how many units an assignment holds: the quantity
// of its originating request, or a single unit when the assignment was
// granted directly or the request is gone.
func (s *service) restoreAmount(ctx context.Context, tx repository.Repository, a *models.Assignment) int {
	if a.RequestID == nil {
		return 1
	}
	req, err := tx.FindRequestByID(ctx, *a.RequestID)
	if err != nil {
		log.Warn().
			Err(err).
			Uint("assignment_id", a.ID).
			Uint("request_id", *a.RequestID).
			Msg("Originating request unavailable, restoring a single unit")
		return 1
	}
	return req.Quantity
}

// ListAssignments lists assignments matching the filter.
func (s *service) ListAssignments(ctx context.Context, filter repository.AssignmentFilter) ([]models.Assignment, error) {
	return s.repo.ListAssignments(ctx, filter)
}

// ListMyEquipment lists the holder's open assignments.
func (s *service) ListMyEquipment(ctx context.Context, holder *models.User) ([]models.Assignment, error) {
	return s.repo.ListAssignments(ctx, repository.AssignmentFilter{
		HolderID: holder.ID,
		OpenOnly: true,
	})
}
