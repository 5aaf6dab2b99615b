package services

import (
	"context"
	"fmt"
	"time"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"cropwise-backend/internal/models"
	"cropwise-backend/internal/store"
)

// NotificationService manages the per-user notification inbox and, when
// Twilio credentials are configured, SMS delivery for urgent alerts.
type NotificationService struct {
	store store.Store

	smsClient *twilio.RestClient
	smsFrom   string
}

func NewNotificationService(s store.Store) *NotificationService {
	return &NotificationService{store: s}
}

// EnableSMS wires a Twilio client. Without it SendSMS is a no-op, so SMS
// stays optional in local and test setups.
func (s *NotificationService) EnableSMS(accountSID, authToken, from string) {
	s.smsClient = twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	s.smsFrom = from
}

func (s *NotificationService) Create(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return s.store.InsertNotification(ctx, n)
}

func (s *NotificationService) List(ctx context.Context, recipientID primitive.ObjectID, includeRead bool) ([]models.Notification, error) {
	return s.store.ListNotifications(ctx, recipientID, includeRead)
}

func (s *NotificationService) Count(ctx context.Context, recipientID primitive.ObjectID) (models.NotificationCount, error) {
	return s.store.CountNotifications(ctx, recipientID)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID primitive.ObjectID) error {
	return s.store.MarkNotificationRead(ctx, id, recipientID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID primitive.ObjectID) error {
	return s.store.MarkAllNotificationsRead(ctx, recipientID)
}

func (s *NotificationService) Delete(ctx context.Context, id, recipientID primitive.ObjectID) error {
	return s.store.DeleteNotification(ctx, id, recipientID)
}

// SendSMS delivers a text message through Twilio. Returns nil when SMS is
// not configured.
func (s *NotificationService) SendSMS(to, body string) error {
	if s.smsClient == nil || to == "" {
		return nil
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.smsFrom)
	params.SetBody(body)

	if _, err := s.smsClient.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send to %s: %w", to, err)
	}
	return nil
}
