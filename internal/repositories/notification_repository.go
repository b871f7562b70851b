package repositories

import (
	"context"
	"sort"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/pkg/store"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetByRecipientID(ctx context.Context, recipientID string) ([]models.Notification, error)
	DeleteNotification(ctx context.Context, recipientID, notificationID string) error
	// Watch calls fn with the recipient's full list every time it changes.
	Watch(ctx context.Context, recipientID string, fn func([]models.Notification)) (func(), error)
}

type notificationRepository struct {
	store store.Store
}

func NewNotificationRepository(s store.Store) NotificationRepository {
	return &notificationRepository{store: s}
}

func (r *notificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	path := store.Join(notificationsPath(notification.RecipientID), notification.ID)
	return r.store.Set(ctx, path, notification)
}

func (r *notificationRepository) GetByRecipientID(ctx context.Context, recipientID string) ([]models.Notification, error) {
	var byID map[string]models.Notification
	if _, err := r.store.Get(ctx, notificationsPath(recipientID), &byID); err != nil {
		return nil, err
	}
	return flattenNotifications(recipientID, byID), nil
}

func (r *notificationRepository) DeleteNotification(ctx context.Context, recipientID, notificationID string) error {
	return r.store.Delete(ctx, store.Join(notificationsPath(recipientID), notificationID))
}

func (r *notificationRepository) Watch(ctx context.Context, recipientID string, fn func([]models.Notification)) (func(), error) {
	return r.store.Subscribe(ctx, notificationsPath(recipientID), func(c store.Change) {
		var byID map[string]models.Notification
		if _, err := c.Decode(&byID); err != nil {
			return
		}
		fn(flattenNotifications(recipientID, byID))
	})
}

// flattenNotifications orders newest first.
func flattenNotifications(recipientID string, byID map[string]models.Notification) []models.Notification {
	out := make([]models.Notification, 0, len(byID))
	for id, n := range byID {
		n.ID = id
		n.RecipientID = recipientID
		out = append(out, n)
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].Timestamp.Equal(out[k].Timestamp) {
			return out[i].Timestamp.After(out[k].Timestamp)
		}
		return out[i].ID > out[k].ID
	})
	return out
}
