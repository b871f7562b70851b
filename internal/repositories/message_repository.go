package repositories

import (
	"context"
	"sort"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/pkg/store"
)

// MessageRepository stores the append-only message channels.
type MessageRepository interface {
	CreateMessage(ctx context.Context, employerID, freelancerID string, msg *models.Message) error
	GetChannel(ctx context.Context, employerID, freelancerID string) ([]models.Message, error)
}

type messageRepository struct {
	store store.Store
}

func NewMessageRepository(s store.Store) MessageRepository {
	return &messageRepository{store: s}
}

func (r *messageRepository) CreateMessage(ctx context.Context, employerID, freelancerID string, msg *models.Message) error {
	return r.store.Set(ctx, store.Join(channelPath(employerID, freelancerID), msg.ID), msg)
}

// GetChannel returns the channel oldest first.
func (r *messageRepository) GetChannel(ctx context.Context, employerID, freelancerID string) ([]models.Message, error) {
	var byID map[string]models.Message
	if _, err := r.store.Get(ctx, channelPath(employerID, freelancerID), &byID); err != nil {
		return nil, err
	}
	msgs := make([]models.Message, 0, len(byID))
	for id, m := range byID {
		m.ID = id
		msgs = append(msgs, m)
	}
	sort.Slice(msgs, func(i, k int) bool {
		if !msgs[i].Timestamp.Equal(msgs[k].Timestamp) {
			return msgs[i].Timestamp.Before(msgs[k].Timestamp)
		}
		return msgs[i].ID < msgs[k].ID
	})
	return msgs, nil
}
