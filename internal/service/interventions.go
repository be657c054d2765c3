package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"example.com/backstage/services/inventory/internal/errs"
	"example.com/backstage/services/inventory/internal/models"
	"example.com/backstage/services/inventory/internal/repository"
)

// InterventionInput carries a new technician intervention request.
type InterventionInput struct {
	Department  string `json:"department"`
	Post        string `json:"post"`
	Description string `json:"description"`
}

// SubmitIntervention files an intervention request and alerts staff.
func (s *service) SubmitIntervention(ctx context.Context, requester *models.User, input InterventionInput) (*models.InterventionRequest, error) {
	if input.Description == "" {
		return nil, errs.New(errs.KindValidation, "a description of the problem is required")
	}

	ir := &models.InterventionRequest{
		RequesterID: requester.ID,
		Department:  input.Department,
		Post:        input.Post,
		Description: input.Description,
	}
	if err := s.repo.CreateIntervention(ctx, ir); err != nil {
		return nil, err
	}

	s.metrics.IncrementCounter("interventions.submitted")
	s.notifyStaff(ctx, fmt.Sprintf("New intervention request #%d from %s (%s)", ir.ID, requester.Username, ir.Department))
	log.Info().Uint("intervention_id", ir.ID).Uint("requester_id", requester.ID).Msg("Intervention request submitted")
	return ir, nil
}

// ListInterventions lists intervention requests matching the filter.
func (s *service) ListInterventions(ctx context.Context, filter repository.InterventionFilter) ([]models.InterventionRequest, error) {
	return s.repo.ListInterventions(ctx, filter)
}
