package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"example.com/backstage/services/inventory/internal/availability"
	"example.com/backstage/services/inventory/internal/cache"
	"example.com/backstage/services/inventory/internal/errs"
	"example.com/backstage/services/inventory/internal/models"
	"example.com/backstage/services/inventory/internal/repository"
)

const equipmentCacheTTL = 5 * time.Minute

// EquipmentUpdate carries the editable fields of a catalog entry. Nil
// fields are left untouched.
type EquipmentUpdate struct {
	Code        *string                `json:"code"`
	Name        *string                `json:"name"`
	Category    *string                `json:"category"`
	SubCategory *string                `json:"sub_category"`
	Location    *string                `json:"location"`
	Year        *int                   `json:"year"`
	Quantity    *int                   `json:"quantity"`
	State       *models.EquipmentState `json:"state"`
}

// CreateEquipment adds an item to the catalog.
func (s *service) CreateEquipment(ctx context.Context, item *models.EquipmentItem) error {
	txn := s.tracer.StartTransaction("service.CreateEquipment")
	defer s.tracer.EndTransaction(txn)

	item.Code = strings.TrimSpace(item.Code)
	if item.Code == "" {
		return errs.New(errs.KindValidation, "equipment code is required")
	}
	if item.Name == "" {
		return errs.New(errs.KindValidation, "equipment name is required")
	}
	if item.Mode == "" {
		item.Mode = models.ModeQuantity
	}
	switch item.Mode {
	case models.ModeQuantity:
		if item.Quantity < 0 {
			return errs.New(errs.KindValidation, "quantity cannot be negative")
		}
		item.Assigned = false
		item.State = models.StateAvailable
	case models.ModeState:
		if item.State == "" {
			item.State = models.StateAvailable
		}
		if !validState(item.State) {
			return errs.Newf(errs.KindValidation, "unknown equipment state %q", item.State)
		}
		item.Quantity = 0
		item.Assigned = item.State == models.StateAssigned
	default:
		return errs.Newf(errs.KindValidation, "unknown availability mode %q", item.Mode)
	}

	existing, err := s.repo.FindEquipmentByCode(ctx, item.Code)
	if err != nil && !errs.IsKind(err, errs.KindNotFound) {
		return err
	}
	if existing != nil {
		return errs.Newf(errs.KindValidation, "equipment code %q is already in use", item.Code)
	}

	if err := s.repo.CreateEquipment(ctx, item); err != nil {
		return err
	}
	s.metrics.IncrementCounter("catalog.created")
	s.refreshEquipment(ctx, item)
	log.Info().Uint("equipment_id", item.ID).Str("code", item.Code).Msg("Equipment created")
	return nil
}

// UpdateEquipment edits a catalog entry. Availability markers outside
// the item's mode are not editable.
func (s *service) UpdateEquipment(ctx context.Context, id uint, upd EquipmentUpdate) (*models.EquipmentItem, error) {
	txn := s.tracer.StartTransaction("service.UpdateEquipment")
	defer s.tracer.EndTransaction(txn)

	var updated *models.EquipmentItem
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.Repository) error {
		item, err := tx.LockEquipment(ctx, id)
		if err != nil {
			return err
		}
		if upd.Code != nil {
			code := strings.TrimSpace(*upd.Code)
			if code == "" {
				return errs.New(errs.KindValidation, "equipment code is required")
			}
			if code != item.Code {
				other, err := tx.FindEquipmentByCode(ctx, code)
				if err != nil && !errs.IsKind(err, errs.KindNotFound) {
					return err
				}
				if other != nil {
					return errs.Newf(errs.KindValidation, "equipment code %q is already in use", code)
				}
				item.Code = code
			}
		}
		if upd.Name != nil {
			if *upd.Name == "" {
				return errs.New(errs.KindValidation, "equipment name is required")
			}
			item.Name = *upd.Name
		}
		if upd.Category != nil {
			item.Category = *upd.Category
		}
		if upd.SubCategory != nil {
			item.SubCategory = *upd.SubCategory
		}
		if upd.Location != nil {
			item.Location = *upd.Location
		}
		if upd.Year != nil {
			item.Year = *upd.Year
		}
		if upd.Quantity != nil {
			if item.Mode != models.ModeQuantity {
				return errs.New(errs.KindValidation, "quantity is only editable on quantity-tracked items")
			}
			if *upd.Quantity < 0 {
				return errs.New(errs.KindValidation, "quantity cannot be negative")
			}
			item.Quantity = *upd.Quantity
		}
		if upd.State != nil {
			if item.Mode != models.ModeState {
				return errs.New(errs.KindValidation, "state is only editable on state-tracked items")
			}
			if !validState(*upd.State) {
				return errs.Newf(errs.KindValidation, "unknown equipment state %q", *upd.State)
			}
			item.State = *upd.State
		}

		open, err := tx.CountOpenAssignments(ctx, item.ID)
		if err != nil {
			return err
		}
		availability.Reconcile(item, open)

		if err := tx.SaveEquipment(ctx, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.refreshEquipment(ctx, updated)
	return updated, nil
}

// DeleteEquipment removes a catalog entry. Items with open assignments
// cannot be deleted; they have to be returned first.
func (s *service) DeleteEquipment(ctx context.Context, id uint) error {
	txn := s.tracer.StartTransaction("service.DeleteEquipment")
	defer s.tracer.EndTransaction(txn)

	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.Repository) error {
		item, err := tx.LockEquipment(ctx, id)
		if err != nil {
			return err
		}
		open, err := tx.CountOpenAssignments(ctx, item.ID)
		if err != nil {
			return err
		}
		if open > 0 {
			return errs.Newf(errs.KindConflict, "equipment %q has %d open assignment(s)", item.Code, open)
		}
		return tx.DeleteEquipment(ctx, item.ID)
	})
	if err != nil {
		return err
	}

	if s.cache.Enabled() {
		if err := s.cache.Delete(ctx, cache.EquipmentCacheKey(id)); err != nil {
			log.Warn().Err(err).Uint("equipment_id", id).Msg("Failed to invalidate equipment cache")
		}
	}
	if s.elastic != nil {
		if err := s.elastic.RemoveEquipment(ctx, id); err != nil {
			log.Warn().Err(err).Uint("equipment_id", id).Msg("Failed to remove equipment from index")
		}
	}
	s.metrics.IncrementCounter("catalog.deleted")
	log.Info().Uint("equipment_id", id).Msg("Equipment deleted")
	return nil
}

// GetEquipment reads one catalog entry, through the cache when enabled.
func (s *service) GetEquipment(ctx context.Context, id uint) (*models.EquipmentItem, error) {
	key := cache.EquipmentCacheKey(id)
	if s.cache.Enabled() {
		var cached models.EquipmentItem
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.IncrementCounter("catalog.cache_hit")
			return &cached, nil
		}
	}

	item, err := s.repo.FindEquipmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, item, equipmentCacheTTL); err != nil {
			log.Warn().Err(err).Uint("equipment_id", id).Msg("Failed to cache equipment")
		}
	}
	return item, nil
}

// ListEquipment lists the catalog. A non-empty query performs a free-text
// search and intersects the hits with the structured filter; when the
// search backend is unreachable the structured listing is served alone.
func (s *service) ListEquipment(ctx context.Context, filter repository.EquipmentFilter, query string) ([]models.EquipmentItem, error) {
	items, err := s.repo.ListEquipment(ctx, filter)
	if err != nil {
		return nil, err
	}
	if query == "" || s.elastic == nil {
		return items, nil
	}

	ids, err := s.elastic.SearchEquipment(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("Equipment search failed, serving unfiltered listing")
		return items, nil
	}
	hits := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		hits[id] = struct{}{}
	}
	matched := make([]models.EquipmentItem, 0, len(items))
	for i := range items {
		if _, ok := hits[items[i].ID]; ok {
			matched = append(matched, items[i])
		}
	}
	return matched, nil
}

// DebitEquipment takes amount units out of availability, failing when the
// item cannot cover it.
func (s *service) DebitEquipment(ctx context.Context, id uint, amount int) (*models.EquipmentItem, error) {
	var item *models.EquipmentItem
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.Repository) error {
		locked, err := tx.LockEquipment(ctx, id)
		if err != nil {
			return err
		}
		if err := availability.Debit(locked, amount); err != nil {
			return err
		}
		if err := tx.SaveEquipment(ctx, locked); err != nil {
			return err
		}
		item = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementCounterBy("catalog.debited", int64(amount))
	s.refreshEquipment(ctx, item)
	return item, nil
}

// CreditEquipment returns amount units to availability. The assigned
// marker is cleared only when no open assignment remains.
func (s *service) CreditEquipment(ctx context.Context, id uint, amount int) (*models.EquipmentItem, error) {
	var item *models.EquipmentItem
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.Repository) error {
		locked, err := tx.LockEquipment(ctx, id)
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
		item = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementCounterBy("catalog.credited", int64(amount))
	s.refreshEquipment(ctx, item)
	return item, nil
}

func validState(st models.EquipmentState) bool {
	switch st {
	case models.StateAvailable, models.StateAssigned, models.StateOutOfService:
		return true
	}
	return false
}
