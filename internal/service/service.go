package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/inventory/internal/cache"
	"example.com/backstage/services/inventory/internal/errs"
	"example.com/backstage/services/inventory/internal/messaging"
	"example.com/backstage/services/inventory/internal/metrics"
	"example.com/backstage/services/inventory/internal/models"
	"example.com/backstage/services/inventory/internal/repository"
	"example.com/backstage/services/inventory/internal/search"
	"example.com/backstage/services/inventory/internal/tracing"
)

// Service exposes the equipment inventory operations to the API layer
// and the background worker.
type Service interface {
	// Catalog
	CreateEquipment(ctx context.Context, item *models.EquipmentItem) error
	UpdateEquipment(ctx context.Context, id uint, upd EquipmentUpdate) (*models.EquipmentItem, error)
	DeleteEquipment(ctx context.Context, id uint) error
	GetEquipment(ctx context.Context, id uint) (*models.EquipmentItem, error)
	ListEquipment(ctx context.Context, filter repository.EquipmentFilter, query string) ([]models.EquipmentItem, error)
	DebitEquipment(ctx context.Context, id uint, amount int) (*models.EquipmentItem, error)
	CreditEquipment(ctx context.Context, id uint, amount int) (*models.EquipmentItem, error)

	// Requests
	SubmitRequest(ctx context.Context, requester *models.User, input SubmitRequestInput) (*models.EquipmentRequest, error)
	ApproveRequest(ctx context.Context, approver *models.User, requestID uint) (*models.EquipmentRequest, error)
	RejectRequest(ctx context.Context, approver *models.User, requestID uint) (*models.EquipmentRequest, error)
	GetRequest(ctx context.Context, id uint) (*models.EquipmentRequest, error)
	ListRequests(ctx context.Context, filter repository.RequestFilter) ([]models.EquipmentRequest, error)

	// Assignments
	GrantEquipment(ctx context.Context, actor *models.User, input GrantInput) (*models.Assignment, error)
	ReassignEquipment(ctx context.Context, actor *models.User, assignmentID, newEquipmentID uint) (*models.Assignment, error)
	ReturnAssignment(ctx context.Context, actor *models.User, assignmentID uint) (*models.Assignment, error)
	ListAssignments(ctx context.Context, filter repository.AssignmentFilter) ([]models.Assignment, error)
	ListMyEquipment(ctx context.Context, holder *models.User) ([]models.Assignment, error)

	// Notifications
	ListNotifications(ctx context.Context, recipient *models.User) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, recipient *models.User, id uint) error
	ProcessNotificationMessage(ctx context.Context, msg *azservicebus.ReceivedMessage) error

	// Interventions
	SubmitIntervention(ctx context.Context, requester *models.User, input InterventionInput) (*models.InterventionRequest, error)
	ListInterventions(ctx context.Context, filter repository.InterventionFilter) ([]models.InterventionRequest, error)

	// Maintenance
	ReconcileAvailability(ctx context.Context) error
}

// Config carries the service dependencies. Repository is required,
// everything else degrades gracefully when absent.
type Config struct {
	Repository repository.Repository
	Cache      *cache.RedisCache
	Elastic    *search.ElasticClient
	Messaging  messaging.ServiceBusClient
	Metrics    *metrics.Metrics
	Tracer     tracing.Tracer
	// AtomicApproval makes an approval fail outright when any selected
	// item cannot cover the requested quantity, instead of skipping it.
	AtomicApproval bool
}

type service struct {
	repo           repository.Repository
	cache          *cache.RedisCache
	elastic        *search.ElasticClient
	bus            messaging.ServiceBusClient
	metrics        *metrics.Metrics
	tracer         tracing.Tracer
	atomicApproval bool
}

// NewService validates the configuration and builds the service.
func NewService(cfg Config) (Service, error) {
	if cfg.Repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewMetrics()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = tracing.NewNoopTracer()
	}
	return &service{
		repo:           cfg.Repository,
		cache:          cfg.Cache,
		elastic:        cfg.Elastic,
		bus:            cfg.Messaging,
		metrics:        cfg.Metrics,
		tracer:         cfg.Tracer,
		atomicApproval: cfg.AtomicApproval,
	}, nil
}

// refreshEquipment drops the cached copy of an item and reindexes it.
// Both are best-effort: a cold cache or a stale index self-heals.
func (s *service) refreshEquipment(ctx context.Context, item *models.EquipmentItem) {
	if s.cache.Enabled() {
		if err := s.cache.Delete(ctx, cache.EquipmentCacheKey(item.ID)); err != nil {
			log.Warn().Err(err).Uint("equipment_id", item.ID).Msg("Failed to invalidate equipment cache")
		}
	}
	if s.elastic != nil {
		if err := s.elastic.IndexEquipment(ctx, item); err != nil {
			log.Warn().Err(err).Uint("equipment_id", item.ID).Msg("Failed to index equipment")
		}
	}
}

// appendNotification delivers a notification through the service bus,
// falling back to a direct write when the bus is unavailable. Delivery
// problems are logged, never surfaced to the caller.
func (s *service) appendNotification(ctx context.Context, recipientID uint, message string) {
	event := messaging.NotificationEvent{
		RecipientID: recipientID,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	}
	if s.bus != nil {
		err := s.bus.SendMessage(ctx, event)
		if err == nil {
			s.metrics.IncrementCounter("notifications.published")
			return
		}
		log.Warn().Err(err).Uint("recipient_id", recipientID).Msg("Service bus send failed, persisting notification directly")
	}
	notification := &models.Notification{RecipientID: recipientID, Message: message}
	if err := s.repo.CreateNotification(ctx, notification); err != nil {
		log.Error().Err(err).Uint("recipient_id", recipientID).Msg("Failed to persist notification")
		return
	}
	s.metrics.IncrementCounter("notifications.persisted")
}

// notifyStaff broadcasts a message to every elevated or superuser account.
func (s *service) notifyStaff(ctx context.Context, message string) {
	staff, err := s.repo.ListStaff(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list staff for notification broadcast")
		return
	}
	for i := range staff {
		s.appendNotification(ctx, staff[i].ID, message)
	}
}

// ProcessNotificationMessage handles a queued notification event and
// persists it for its recipient.
func (s *service) ProcessNotificationMessage(ctx context.Context, msg *azservicebus.ReceivedMessage) error {
	var event messaging.NotificationEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return errs.Wrap(err, errs.KindValidation, "unmarshaling notification event")
	}
	notification := &models.Notification{
		RecipientID: event.RecipientID,
		Message:     event.Message,
	}
	if err := s.repo.CreateNotification(ctx, notification); err != nil {
		return err
	}
	s.metrics.IncrementCounter("notifications.persisted")
	log.Debug().Uint("recipient_id", event.RecipientID).Msg("Notification persisted from queue")
	return nil
}
