package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"example.com/backstage/services/inventory/internal/availability"
	"example.com/backstage/services/inventory/internal/repository"
)

// ReconcileAvailability recomputes every item's availability markers from
// the assignment ledger and repairs any drift. The worker runs it on a
// schedule; crashes between a ledger write and a marker write heal here.
func (s *service) ReconcileAvailability(ctx context.Context) error {
	start := time.Now()
	items, err := s.repo.ListEquipment(ctx, repository.EquipmentFilter{})
	if err != nil {
		return err
	}

	repaired := 0
	for i := range items {
		id := items[i].ID
		err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.Repository) error {
			item, err := tx.LockEquipment(ctx, id)
			if err != nil {
				return err
			}
			open, err := tx.CountOpenAssignments(ctx, item.ID)
			if err != nil {
				return err
			}
			if !availability.Reconcile(item, open) {
				return nil
			}
			if err := tx.SaveEquipment(ctx, item); err != nil {
				return err
			}
			repaired++
			s.refreshEquipment(ctx, item)
			log.Warn().
				Uint("equipment_id", item.ID).
				Str("code", item.Code).
				Int64("open_assignments", open).
				Msg("Repaired drifted availability markers")
			return nil
		})
		if err != nil {
			log.Error().Err(err).Uint("equipment_id", id).Msg("Failed to reconcile equipment")
		}
	}

	s.metrics.IncrementCounterBy("reconcile.repaired", int64(repaired))
	s.metrics.RecordDuration("reconcile.run", time.Since(start))
	log.Info().Int("items", len(items)).Int("repaired", repaired).Msg("Availability reconciliation finished")
	return nil
}
