package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/internal/repositories"
	"github.com/anonto42/freelink/backend/pkg/apperrors"
	"golang.org/x/sync/errgroup"
)

// NotifierConfig bounds fan-out work.
type NotifierConfig struct {
	Concurrency int
	BatchSize   int
	// Attempts is the number of writes tried per recipient before the
	// notification goes to the dead-letter repository.
	Attempts int
	Backoff  time.Duration
}

func (c NotifierConfig) withDefaults() NotifierConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 16
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.Backoff < 0 {
		c.Backoff = 0
	}
	return c
}

// BroadcastReport counts the outcome of one broadcast.
type BroadcastReport struct {
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

// RetryReport counts the outcome of one dead-letter drain.
type RetryReport struct {
	Retried   int `json:"retried"`
	Delivered int `json:"delivered"`
	Remaining int `json:"remaining"`
}

// Notifier delivers notifications. Each recipient write is independent:
// a failure for one recipient never stops delivery to another and never
// rolls back the transition that triggered it.
type Notifier struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	deliveries    repositories.DeliveryRepository
	cfg           NotifierConfig
	log           *slog.Logger
	now           func() time.Time
}

func NewNotifier(notifications repositories.NotificationRepository, users repositories.UserRepository, deliveries repositories.DeliveryRepository, cfg NotifierConfig, log *slog.Logger) *Notifier {
	return &Notifier{
		notifications: notifications,
		users:         users,
		deliveries:    deliveries,
		cfg:           cfg.withDefaults(),
		log:           loggerOr(log),
		now:           time.Now,
	}
}

// Notify writes one notification for recipientID built from tmpl.
func (n *Notifier) Notify(ctx context.Context, recipientID string, tmpl models.Notification) error {
	if recipientID == "" {
		return apperrors.Validation("recipient is required")
	}
	_, err := n.deliver(ctx, recipientID, tmpl)
	return err
}

// Broadcast writes tmpl to every recipient in batches, with at most
// Concurrency writes in flight.
func (n *Notifier) Broadcast(ctx context.Context, recipients []string, tmpl models.Notification) BroadcastReport {
	report := BroadcastReport{Recipients: len(recipients)}
	var sent, failed atomic.Int64

	for start := 0; start < len(recipients); start += n.cfg.BatchSize {
		end := min(start+n.cfg.BatchSize, len(recipients))
		if err := ctx.Err(); err != nil {
			failed.Add(int64(len(recipients) - start))
			n.log.Warn("broadcast interrupted", "type", tmpl.Type, "remaining", len(recipients)-start, "error", err)
			break
		}

		var g errgroup.Group
		g.SetLimit(n.cfg.Concurrency)
		for _, rid := range recipients[start:end] {
			g.Go(func() error {
				if _, err := n.deliver(ctx, rid, tmpl); err != nil {
					failed.Add(1)
					return nil
				}
				sent.Add(1)
				return nil
			})
		}
		_ = g.Wait()
	}

	report.Sent = int(sent.Load())
	report.Failed = int(failed.Load())
	n.log.Info("broadcast delivered", "type", tmpl.Type, "recipients", report.Recipients, "sent", report.Sent, "failed", report.Failed)
	return report
}

// BroadcastToFreelancers enumerates every freelancer and broadcasts to the
// ones keep accepts. A nil keep accepts everyone.
func (n *Notifier) BroadcastToFreelancers(ctx context.Context, tmpl models.Notification, keep func(models.User) bool) (BroadcastReport, error) {
	freelancers, err := n.users.GetUsersByRole(ctx, models.RoleFreelancer)
	if err != nil {
		return BroadcastReport{}, err
	}
	recipients := make([]string, 0, len(freelancers))
	for _, u := range freelancers {
		if keep == nil || keep(u) {
			recipients = append(recipients, u.ID)
		}
	}
	return n.Broadcast(ctx, recipients, tmpl), nil
}

// deliver stamps tmpl for one recipient and writes it with retries. After
// the last failed attempt the notification is dead-lettered.
func (n *Notifier) deliver(ctx context.Context, recipientID string, tmpl models.Notification) (*models.Notification, error) {
	note := tmpl
	note.ID = newID()
	note.RecipientID = recipientID
	note.Timestamp = n.now().UTC()

	attempts, err := n.write(ctx, &note)
	if err == nil {
		return &note, nil
	}

	n.log.Warn("notification delivery failed", "recipient_id", recipientID, "type", note.Type, "attempts", attempts, "error", err)
	dead := &models.FailedDelivery{
		ID:           note.ID,
		RecipientID:  recipientID,
		Notification: note,
		Attempts:     attempts,
		LastError:    err.Error(),
		CreatedAt:    note.Timestamp,
	}
	if dlErr := n.deliveries.SaveFailed(context.WithoutCancel(ctx), dead); dlErr != nil {
		n.log.Error("dead letter write failed", "recipient_id", recipientID, "notification_id", note.ID, "error", dlErr)
	}
	return nil, err
}

func (n *Notifier) write(ctx context.Context, note *models.Notification) (int, error) {
	var err error
	for attempt := 1; attempt <= n.cfg.Attempts; attempt++ {
		err = n.notifications.CreateNotification(ctx, note)
		if err == nil {
			return attempt, nil
		}
		if !apperrors.Retryable(err) || attempt == n.cfg.Attempts {
			return attempt, err
		}
		if waitErr := sleepCtx(ctx, n.cfg.Backoff<<(attempt-1)); waitErr != nil {
			return attempt, err
		}
	}
	return n.cfg.Attempts, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Dismiss removes one notification. Dismissing twice is harmless.
func (n *Notifier) Dismiss(ctx context.Context, recipientID, notificationID string) error {
	if notificationID == "" {
		return apperrors.Validation("notification id is required")
	}
	return n.notifications.DeleteNotification(ctx, recipientID, notificationID)
}

// List returns the recipient's notifications newest first.
func (n *Notifier) List(ctx context.Context, recipientID string) ([]models.Notification, error) {
	return n.notifications.GetByRecipientID(ctx, recipientID)
}

// Watch streams the recipient's notification list whenever it changes.
// Slow readers only see the latest list. The channel closes when ctx ends.
func (n *Notifier) Watch(ctx context.Context, recipientID string) (<-chan []models.Notification, error) {
	ch := make(chan []models.Notification, 1)
	var (
		mu     sync.Mutex
		closed bool
	)
	cancel, err := n.notifications.Watch(ctx, recipientID, func(list []models.Notification) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case <-ch:
		default:
		}
		ch <- list
	})
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		cancel()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()
	return ch, nil
}

// RetryFailed re-attempts up to limit dead-lettered notifications once each.
func (n *Notifier) RetryFailed(ctx context.Context, limit int) (RetryReport, error) {
	failed, err := n.deliveries.ListFailed(ctx, limit)
	if err != nil {
		return RetryReport{}, err
	}

	var report RetryReport
	var errs []error
	for i := range failed {
		d := failed[i]
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Retried++
		d.Notification.RecipientID = d.RecipientID
		if err := n.notifications.CreateNotification(ctx, &d.Notification); err != nil {
			d.Attempts++
			d.LastError = err.Error()
			if saveErr := n.deliveries.SaveFailed(ctx, &d); saveErr != nil {
				errs = append(errs, saveErr)
			}
			report.Remaining++
			continue
		}
		if err := n.deliveries.DeleteFailed(ctx, d.ID); err != nil {
			errs = append(errs, err)
		}
		report.Delivered++
	}
	if report.Retried > 0 {
		n.log.Info("dead letters retried", "retried", report.Retried, "delivered", report.Delivered, "remaining", report.Remaining)
	}
	return report, errors.Join(errs...)
}

// RunRetry drains the dead-letter repository every interval until ctx ends.
func (n *Notifier) RunRetry(ctx context.Context, interval time.Duration, limit int) {
	runEvery(ctx, n.log, "delivery-retry", interval, nil, func(ctx context.Context) error {
		_, err := n.RetryFailed(ctx, limit)
		return err
	})
}
