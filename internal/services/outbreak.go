package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"cropwise-backend/internal/geo"
	"cropwise-backend/internal/models"
	"cropwise-backend/internal/store"
)

var (
	// ErrInvalidSeverity is returned for severities outside low/medium/high.
	ErrInvalidSeverity = errors.New("severity must be low, medium or high")

	// ErrInvalidRadius is returned for a non-positive alert radius.
	ErrInvalidRadius = errors.New("radius must be positive")
)

// AlertBroadcaster pushes a freshly created alert to connected live clients.
// The websocket hub implements it; a nil broadcaster disables live pushes.
type AlertBroadcaster interface {
	BroadcastAlert(alert *models.OutbreakAlert)
}

// OutbreakService creates disease outbreak alerts and fans them out to the
// owners of fields inside the alert radius.
type OutbreakService struct {
	store         store.Store
	notifications *NotificationService
	broadcaster   AlertBroadcaster
}

func NewOutbreakService(s store.Store, notifications *NotificationService, broadcaster AlertBroadcaster) *OutbreakService {
	return &OutbreakService{store: s, notifications: notifications, broadcaster: broadcaster}
}

// CreateAlert persists the alert, then notifies every affected field owner.
// The alert itself is the source of truth; notification delivery is best
// effort and individual failures only get logged. Each recipient is notified
// once, on alert creation, no matter how often their fields are read later.
func (s *OutbreakService) CreateAlert(ctx context.Context, creator *models.User, alert *models.OutbreakAlert) (*models.OutbreakAlert, error) {
	switch alert.Severity {
	case models.OutbreakSeverityLow, models.OutbreakSeverityMedium, models.OutbreakSeverityHigh:
	default:
		return nil, ErrInvalidSeverity
	}
	if alert.RadiusMeters <= 0 {
		return nil, ErrInvalidRadius
	}

	// An alert raised from a field inherits that field's location.
	if alert.FieldID != nil {
		field, err := s.store.GetField(ctx, *alert.FieldID)
		if err != nil {
			return nil, fmt.Errorf("alert field: %w", err)
		}
		if field.Location != nil {
			alert.Center = *field.Location
		}
	}

	alert.ID = primitive.NilObjectID
	alert.CreatorID = creator.ID
	alert.CreatorName = creator.Name
	alert.Status = models.OutbreakStatusActive
	alert.CreatedAt = time.Now()

	if err := s.store.InsertAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}

	s.fanOut(ctx, creator, alert)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastAlert(alert)
	}
	return alert, nil
}

// fanOut scans all registered fields and notifies each distinct owner with a
// field inside the radius. Fields without a location are unlocatable and
// skipped; the creator never gets notified about their own alert.
func (s *OutbreakService) fanOut(ctx context.Context, creator *models.User, alert *models.OutbreakAlert) {
	fields, err := s.store.ListFields(ctx)
	if err != nil {
		log.Printf("⚠️ alert %s: field scan failed: %v", alert.ID.Hex(), err)
		return
	}

	recipients := make(map[primitive.ObjectID]string)
	for _, field := range fields {
		if field.Location == nil {
			continue
		}
		if field.OwnerID == creator.ID {
			continue
		}
		if _, seen := recipients[field.OwnerID]; seen {
			continue
		}
		if geo.WithinRadius(*field.Location, alert.Center, alert.RadiusMeters) {
			recipients[field.OwnerID] = field.Name
		}
	}

	var wg sync.WaitGroup
	for ownerID, fieldName := range recipients {
		wg.Add(1)
		go func(ownerID primitive.ObjectID, fieldName string) {
			defer wg.Done()
			s.notifyOwner(ctx, alert, ownerID, fieldName)
		}(ownerID, fieldName)
	}
	wg.Wait()

	log.Printf("🚨 alert %s (%s): notified %d field owners", alert.ID.Hex(), alert.Severity, len(recipients))
}

func (s *OutbreakService) notifyOwner(ctx context.Context, alert *models.OutbreakAlert, ownerID primitive.ObjectID, fieldName string) {
	n := &models.Notification{
		RecipientID: ownerID,
		ActorID:     &alert.CreatorID,
		Type:        models.NotificationTypeAlert,
		Title:       fmt.Sprintf("Outbreak alert: %s", alert.Title),
		Message:     fmt.Sprintf("%s reported %q near your field %q", alert.CreatorName, alert.Title, fieldName),
		AlertID:     &alert.ID,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		log.Printf("⚠️ alert %s: notify %s failed: %v", alert.ID.Hex(), ownerID.Hex(), err)
		return
	}

	if alert.Severity != models.OutbreakSeverityHigh {
		return
	}
	owner, err := s.store.GetUser(ctx, ownerID)
	if err != nil {
		log.Printf("⚠️ alert %s: load owner %s failed: %v", alert.ID.Hex(), ownerID.Hex(), err)
		return
	}
	if err := s.notifications.SendSMS(owner.Phone, n.Message); err != nil {
		log.Printf("⚠️ alert %s: sms to %s failed: %v", alert.ID.Hex(), ownerID.Hex(), err)
	}
}

// ResolveAlert marks an active alert as resolved. Resolved alerts stay
// listable but stop matching field containment queries.
func (s *OutbreakService) ResolveAlert(ctx context.Context, alertID primitive.ObjectID) (*models.OutbreakAlert, error) {
	alert, err := s.store.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert.Status == models.OutbreakStatusResolved {
		return alert, nil
	}

	if err := s.store.SetAlertStatus(ctx, alertID, models.OutbreakStatusResolved); err != nil {
		return nil, err
	}
	alert.Status = models.OutbreakStatusResolved

	log.Printf("✅ alert %s resolved", alertID.Hex())
	return alert, nil
}

func (s *OutbreakService) ListAlerts(ctx context.Context) ([]models.OutbreakAlert, error) {
	return s.store.ListAlerts(ctx)
}

// ActiveAlertsForField returns the active alerts whose radius covers the
// field. A field without a location is covered by nothing.
func (s *OutbreakService) ActiveAlertsForField(ctx context.Context, fieldID primitive.ObjectID) ([]models.OutbreakAlert, error) {
	field, err := s.store.GetField(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	if field.Location == nil {
		return nil, nil
	}

	alerts, err := s.store.ListAlerts(ctx)
	if err != nil {
		return nil, err
	}

	var matched []models.OutbreakAlert
	for _, alert := range alerts {
		if alert.Status != models.OutbreakStatusActive {
			continue
		}
		if geo.WithinRadius(*field.Location, alert.Center, alert.RadiusMeters) {
			matched = append(matched, alert)
		}
	}
	return matched, nil
}
