package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"cropwise-backend/internal/models"
	"cropwise-backend/internal/store"
)

// Hanoi city center; offsets in latitude degrees, 0.009 ≈ 1 km.
var alertCenter = models.LatLng{Latitude: 21.0285, Longitude: 105.8048}

func newOutbreakFixture(t *testing.T) (*OutbreakService, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return NewOutbreakService(mem, NewNotificationService(mem), nil), mem
}

func registerField(t *testing.T, mem *store.Memory, owner *models.User, name string, loc *models.LatLng) *models.Field {
	t.Helper()
	f := &models.Field{
		OwnerID:   owner.ID,
		Name:      name,
		AreaHa:    1.2,
		CropType:  "rice",
		Location:  loc,
		Status:    models.FieldStatusActive,
		CreatedAt: time.Now(),
	}
	require.NoError(t, mem.InsertField(context.Background(), f))
	return f
}

func offsetNorth(km float64) *models.LatLng {
	return &models.LatLng{
		Latitude:  alertCenter.Latitude + km*0.009,
		Longitude: alertCenter.Longitude,
	}
}

func TestCreateAlertNotifiesOwnersInRadius(t *testing.T) {
	svc, mem := newOutbreakFixture(t)
	ctx := context.Background()
	creator := newTestUser(t, mem, "creator")
	near := newTestUser(t, mem, "near")
	close2 := newTestUser(t, mem, "close")
	far := newTestUser(t, mem, "far")

	registerField(t, mem, near, "North paddy", offsetNorth(0.5))
	registerField(t, mem, close2, "East paddy", offsetNorth(1.5))
	registerField(t, mem, far, "Remote paddy", offsetNorth(10))

	alert, err := svc.CreateAlert(ctx, creator, &models.OutbreakAlert{
		Title:        "Rice blast",
		Description:  "Lesions spreading fast",
		Severity:     models.OutbreakSeverityMedium,
		RadiusMeters: 2000,
		Center:       alertCenter,
	})
	require.NoError(t, err)
	require.False(t, alert.ID.IsZero())
	assert.Equal(t, models.OutbreakStatusActive, alert.Status)
	assert.Equal(t, creator.ID, alert.CreatorID)

	for _, u := range []*models.User{near, close2} {
		inbox, err := mem.ListNotifications(ctx, u.ID, true)
		require.NoError(t, err)
		require.Len(t, inbox, 1, "owner %s", u.Name)
		assert.Equal(t, models.NotificationTypeAlert, inbox[0].Type)
		assert.Equal(t, &alert.ID, inbox[0].AlertID)
	}

	inbox, err := mem.ListNotifications(ctx, far.ID, true)
	require.NoError(t, err)
	assert.Empty(t, inbox)
}

func TestCreateAlertSkipsCreatorAndUnlocatedFields(t *testing.T) {
	svc, mem := newOutbreakFixture(t)
	ctx := context.Background()
	creator := newTestUser(t, mem, "creator")
	unlocated := newTestUser(t, mem, "unlocated")

	// Creator's own field sits dead center; the unlocated field has no
	// coordinates at all.
	registerField(t, mem, creator, "My paddy", &alertCenter)
	registerField(t, mem, unlocated, "Mystery paddy", nil)

	_, err := svc.CreateAlert(ctx, creator, &models.OutbreakAlert{
		Title:        "Brown planthopper",
		Severity:     models.OutbreakSeverityLow,
		RadiusMeters: 5000,
		Center:       alertCenter,
	})
	require.NoError(t, err)

	for _, u := range []*models.User{creator, unlocated} {
		inbox, err := mem.ListNotifications(ctx, u.ID, true)
		require.NoError(t, err)
		assert.Empty(t, inbox, "owner %s", u.Name)
	}
}

func TestCreateAlertNotifiesOwnerOncePerAlert(t *testing.T) {
	svc, mem := newOutbreakFixture(t)
	ctx := context.Background()
	creator := newTestUser(t, mem, "creator")
	owner := newTestUser(t, mem, "owner")

	registerField(t, mem, owner, "Paddy A", offsetNorth(0.3))
	registerField(t, mem, owner, "Paddy B", offsetNorth(0.6))

	_, err := svc.CreateAlert(ctx, creator, &models.OutbreakAlert{
		Title:        "Leaf folder",
		Severity:     models.OutbreakSeverityMedium,
		RadiusMeters: 2000,
		Center:       alertCenter,
	})
	require.NoError(t, err)

	inbox, err := mem.ListNotifications(ctx, owner.ID, true)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)
}

func TestCreateAlertValidation(t *testing.T) {
	svc, mem := newOutbreakFixture(t)
	creator := newTestUser(t, mem, "creator")
	ctx := context.Background()

	_, err := svc.CreateAlert(ctx, creator, &models.OutbreakAlert{
		Title:        "x",
		Severity:     "catastrophic",
		RadiusMeters: 1000,
		Center:       alertCenter,
	})
	assert.ErrorIs(t, err, ErrInvalidSeverity)

	_, err = svc.CreateAlert(ctx, creator, &models.OutbreakAlert{
		Title:        "x",
		Severity:     models.OutbreakSeverityLow,
		RadiusMeters: 0,
		Center:       alertCenter,
	})
	assert.ErrorIs(t, err, ErrInvalidRadius)
}

func TestCreateAlertFromFieldInheritsLocation(t *testing.T) {
	svc, mem := newOutbreakFixture(t)
	ctx := context.Background()
	creator := newTestUser(t, mem, "creator")
	neighbor := newTestUser(t, mem, "neighbor")

	source := registerField(t, mem, creator, "Infected paddy", &alertCenter)
	registerField(t, mem, neighbor, "Next door", offsetNorth(0.5))

	alert, err := svc.CreateAlert(ctx, creator, &models.OutbreakAlert{
		FieldID:      &source.ID,
		Title:        "Stem rot",
		Severity:     models.OutbreakSeverityHigh,
		RadiusMeters: 1500,
	})
	require.NoError(t, err)
	assert.Equal(t, alertCenter, alert.Center)

	inbox, err := mem.ListNotifications(ctx, neighbor.ID, true)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)
}

type recordingBroadcaster struct {
	alerts []*models.OutbreakAlert
}

func (b *recordingBroadcaster) BroadcastAlert(alert *models.OutbreakAlert) {
	b.alerts = append(b.alerts, alert)
}

func TestCreateAlertBroadcastsToHub(t *testing.T) {
	mem := store.NewMemory()
	hub := &recordingBroadcaster{}
	svc := NewOutbreakService(mem, NewNotificationService(mem), hub)
	creator := newTestUser(t, mem, "creator")

	alert, err := svc.CreateAlert(context.Background(), creator, &models.OutbreakAlert{
		Title:        "Armyworm",
		Severity:     models.OutbreakSeverityHigh,
		RadiusMeters: 3000,
		Center:       alertCenter,
	})
	require.NoError(t, err)
	require.Len(t, hub.alerts, 1)
	assert.Equal(t, alert.ID, hub.alerts[0].ID)
}

func TestResolveAlert(t *testing.T) {
	svc, mem := newOutbreakFixture(t)
	ctx := context.Background()
	creator := newTestUser(t, mem, "creator")
	owner := newTestUser(t, mem, "owner")

	field := registerField(t, mem, owner, "Paddy", offsetNorth(0.5))

	alert, err := svc.CreateAlert(ctx, creator, &models.OutbreakAlert{
		Title:        "Rice blast",
		Severity:     models.OutbreakSeverityMedium,
		RadiusMeters: 2000,
		Center:       alertCenter,
	})
	require.NoError(t, err)

	matched, err := svc.ActiveAlertsForField(ctx, field.ID)
	require.NoError(t, err)
	require.Len(t, matched, 1)

	resolved, err := svc.ResolveAlert(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutbreakStatusResolved, resolved.Status)

	// Resolving twice is a no-op.
	resolved, err = svc.ResolveAlert(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutbreakStatusResolved, resolved.Status)

	matched, err = svc.ActiveAlertsForField(ctx, field.ID)
	require.NoError(t, err)
	assert.Empty(t, matched)

	_, err = svc.ResolveAlert(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestActiveAlertsForField(t *testing.T) {
	svc, mem := newOutbreakFixture(t)
	ctx := context.Background()
	creator := newTestUser(t, mem, "creator")
	owner := newTestUser(t, mem, "owner")

	field := registerField(t, mem, owner, "Paddy", offsetNorth(0.5))
	bare := registerField(t, mem, owner, "Unlocated", nil)

	_, err := svc.CreateAlert(ctx, creator, &models.OutbreakAlert{
		Title:        "Covers the field",
		Severity:     models.OutbreakSeverityMedium,
		RadiusMeters: 2000,
		Center:       alertCenter,
	})
	require.NoError(t, err)
	_, err = svc.CreateAlert(ctx, creator, &models.OutbreakAlert{
		Title:        "Too small",
		Severity:     models.OutbreakSeverityMedium,
		RadiusMeters: 100,
		Center:       alertCenter,
	})
	require.NoError(t, err)

	matched, err := svc.ActiveAlertsForField(ctx, field.ID)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "Covers the field", matched[0].Title)

	matched, err = svc.ActiveAlertsForField(ctx, bare.ID)
	require.NoError(t, err)
	assert.Empty(t, matched)
}
