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

// SubmitRequestInput carries a new equipment request.
type SubmitRequestInput struct {
	EquipmentIDs  []uint `json:"equipment_ids"`
	Quantity      int    `json:"quantity"`
	Subject       string `json:"subject"`
	Justification string `json:"justification"`
	Department    string `json:"department"`
}

// SubmitRequest files a pending request on behalf of the requester and
// notifies staff that a new request is waiting.
func (s *service) SubmitRequest(ctx context.Context, requester *models.User, input SubmitRequestInput) (*models.EquipmentRequest, error) {
	txn := s.tracer.StartTransaction("service.SubmitRequest")
	defer s.tracer.EndTransaction(txn)

	if input.Quantity < 1 {
		return nil, errs.New(errs.KindValidation, "quantity must be at least 1")
	}
	if len(input.EquipmentIDs) == 0 {
		return nil, errs.New(errs.KindValidation, "at least one equipment item must be selected")
	}

	items := make([]models.EquipmentItem, 0, len(input.EquipmentIDs))
	for _, id := range input.EquipmentIDs {
		item, err := s.repo.FindEquipmentByID(ctx, id)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	// Advisory check at submission time: a single-item request that can
	// never be covered by current stock is rejected up front. Multi-item
	// requests go through, approval decides per item.
	if len(items) == 1 && !availability.CanDebit(&items[0], input.Quantity) {
		return nil, errs.Newf(errs.KindValidation,
			"requested quantity %d exceeds availability of %q", input.Quantity, items[0].Code)
	}

	req := &models.EquipmentRequest{
		RequesterID:   requester.ID,
		Equipment:     items,
		Quantity:      input.Quantity,
		Subject:       input.Subject,
		Justification: input.Justification,
		Department:    input.Department,
		Status:        models.RequestPending,
	}
	if err := s.repo.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	s.metrics.IncrementCounter("requests.submitted")
	s.notifyStaff(ctx, fmt.Sprintf("New equipment request #%d from %s: %s", req.ID, requester.Username, req.Subject))
	log.Info().Uint("request_id", req.ID).Uint("requester_id", requester.ID).Msg("Equipment request submitted")
	return req, nil
}

// ApproveRequest approves a pending request. Each selected item that can
// cover the requested quantity is debited and granted to the requester;
// items that cannot are skipped, unless atomic approval is configured,
// in which case the whole approval fails.
func (s *service) ApproveRequest(ctx context.Context, approver *models.User, requestID uint) (*models.EquipmentRequest, error) {
	txn := s.tracer.StartTransaction("service.ApproveRequest")
	defer s.tracer.EndTransaction(txn)

	if !roles.IsStaff(roles.Resolve(approver.Elevated, approver.Superuser)) {
		return nil, errs.New(errs.KindForbidden, "only staff can approve requests")
	}

	var (
		approved *models.EquipmentRequest
		granted  []*models.EquipmentItem
	)
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.Repository) error {
		req, err := tx.LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != models.RequestPending {
			return errs.Newf(errs.KindInvalidState, "request #%d is already %s", req.ID, req.Status)
		}

		now := time.Now().UTC()
		for i := range req.Equipment {
			item, err := tx.LockEquipment(ctx, req.Equipment[i].ID)
			if err != nil {
				return err
			}
			if err := availability.Debit(item, req.Quantity); err != nil {
				if errs.IsKind(err, errs.KindInsufficientAvailability) && !s.atomicApproval {
					s.metrics.IncrementCounter("requests.items_skipped")
					log.Warn().
						Uint("request_id", req.ID).
						Uint("equipment_id", item.ID).
						Str("code", item.Code).
						Int("quantity", req.Quantity).
						Msg("Skipping equipment with insufficient availability")
					continue
				}
				return err
			}
			if err := tx.SaveEquipment(ctx, item); err != nil {
				return err
			}
			a := &models.Assignment{
				EquipmentID: item.ID,
				HolderID:    req.RequesterID,
				RequestID:   &req.ID,
				Department:  req.Department,
				GrantedAt:   now,
			}
			if err := tx.CreateAssignment(ctx, a); err != nil {
				return err
			}
			granted = append(granted, item)
		}

		req.Status = models.RequestApproved
		if err := tx.SaveRequest(ctx, req); err != nil {
			return err
		}
		approved = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, item := range granted {
		s.refreshEquipment(ctx, item)
	}
	s.metrics.IncrementCounter("requests.approved")
	s.appendNotification(ctx, approved.RequesterID,
		fmt.Sprintf("Your equipment request #%d has been approved", approved.ID))
	log.Info().
		Uint("request_id", approved.ID).
		Uint("approver_id", approver.ID).
		Int("items_granted", len(granted)).
		Msg("Equipment request approved")
	return approved, nil
}

// RejectRequest rejects a pending request and clears its equipment
// selection so the listing no longer ties the items to it.
func (s *service) RejectRequest(ctx context.Context, approver *models.User, requestID uint) (*models.EquipmentRequest, error) {
	txn := s.tracer.StartTransaction("service.RejectRequest")
	defer s.tracer.EndTransaction(txn)

	if !roles.IsStaff(roles.Resolve(approver.Elevated, approver.Superuser)) {
		return nil, errs.New(errs.KindForbidden, "only staff can reject requests")
	}

	var rejected *models.EquipmentRequest
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.Repository) error {
		req, err := tx.LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != models.RequestPending {
			return errs.Newf(errs.KindInvalidState, "request #%d is already %s", req.ID, req.Status)
		}
		if err := tx.ClearRequestEquipment(ctx, req); err != nil {
			return err
		}
		req.Equipment = nil
		req.Status = models.RequestRejected
		if err := tx.SaveRequest(ctx, req); err != nil {
			return err
		}
		rejected = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementCounter("requests.rejected")
	s.appendNotification(ctx, rejected.RequesterID,
		fmt.Sprintf("Your equipment request #%d has been rejected", rejected.ID))
	log.Info().Uint("request_id", rejected.ID).Uint("approver_id", approver.ID).Msg("Equipment request rejected")
	return rejected, nil
}

// GetRequest reads one request.
func (s *service) GetRequest(ctx context.Context, id uint) (*models.EquipmentRequest, error) {
	return s.repo.FindRequestByID(ctx, id)
}

// ListRequests lists requests matching the filter.
func (s *service) ListRequests(ctx context.Context, filter repository.RequestFilter) ([]models.EquipmentRequest, error) {
	return s.repo.ListRequests(ctx, filter)
}
