package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/internal/repositories"
	"github.com/anonto42/freelink/backend/pkg/apperrors"
	"github.com/anonto42/freelink/backend/validators"
)

// ChannelKey identifies the message channel between an employer and a
// freelancer, whichever of them wrote first.
func ChannelKey(employerID, freelancerID string) string {
	return employerID + "/" + freelancerID
}

// MessageService sends and lists messages between an employer and a
// freelancer. Sends are gated by the block gate; history is not.
type MessageService struct {
	messages repositories.MessageRepository
	users    repositories.UserRepository
	blocks   *BlockService
	notifier *Notifier
	log      *slog.Logger
	now      func() time.Time
}

func NewMessageService(messages repositories.MessageRepository, users repositories.UserRepository, blocks *BlockService, notifier *Notifier, log *slog.Logger) *MessageService {
	return &MessageService{
		messages: messages,
		users:    users,
		blocks:   blocks,
		notifier: notifier,
		log:      loggerOr(log),
		now:      time.Now,
	}
}

// parties resolves the two users into (employer, freelancer) order.
func (s *MessageService) parties(ctx context.Context, a, b string) (employer, freelancer *models.User, err error) {
	if a == "" {
		return nil, nil, apperrors.Unauthorized("missing caller identity")
	}
	ua, err := s.users.GetUserByID(ctx, a)
	if apperrors.Is(err, apperrors.CodeNotFound) {
		return nil, nil, apperrors.Unauthorized("caller is not registered")
	}
	if err != nil {
		return nil, nil, err
	}
	ub, err := s.users.GetUserByID(ctx, b)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case ua.Role == models.RoleEmployer && ub.Role == models.RoleFreelancer:
		return ua, ub, nil
	case ua.Role == models.RoleFreelancer && ub.Role == models.RoleEmployer:
		return ub, ua, nil
	}
	return nil, nil, apperrors.Validation("messages are exchanged between an employer and a freelancer")
}

// SendMessage appends a message to the channel shared by sender and recipient.
// Nothing is written when either side has blocked the other.
func (s *MessageService) SendMessage(ctx context.Context, senderID, recipientID string, req models.SendMessageRequest) (*models.Message, error) {
	if err := validators.Check(req); err != nil {
		return nil, err
	}
	employer, freelancer, err := s.parties(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.blocks.IsMessagingAllowed(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.Unauthorized("messaging between these users is blocked")
	}

	msg := &models.Message{
		ID:        newID(),
		SenderID:  senderID,
		Text:      req.Text,
		Timestamp: s.now().UTC(),
	}
	if err := s.messages.CreateMessage(ctx, employer.ID, freelancer.ID, msg); err != nil {
		return nil, err
	}

	senderName := employer.Name
	if senderID == freelancer.ID {
		senderName = freelancer.Name
	}
	if err := s.notifier.Notify(ctx, recipientID, models.Notification{
		Type:        models.NotifNewMessage,
		Message:     fmt.Sprintf("New message from %s", senderName),
		RedirectURL: "/messages/" + senderID,
	}); err != nil {
		s.log.Warn("notification not delivered", "recipient_id", recipientID, "type", models.NotifNewMessage, "error", err)
	}
	return msg, nil
}

// ListMessages returns the channel between userID and otherID, oldest first.
func (s *MessageService) ListMessages(ctx context.Context, userID, otherID string) ([]models.Message, error) {
	employer, freelancer, err := s.parties(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	return s.messages.GetChannel(ctx, employer.ID, freelancer.ID)
}
