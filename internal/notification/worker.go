package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"asset-tracker-backend/internal/metrics"
	"asset-tracker-backend/internal/model"
	"asset-tracker-backend/internal/store"
)

// ErrPoolStopped is returned by Dispatch after the pool context is cancelled.
var ErrPoolStopped = errors.New("worker pool stopped")

// ErrQueueFull is returned by Dispatch when every queue slot is taken.
var ErrQueueFull = errors.New("push queue full")

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// pushPayload is what the service worker receives.
type pushPayload struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Message     string `json:"message"`
	RelatedID   string `json:"relatedId,omitempty"`
	RelatedType string `json:"relatedType,omitempty"`
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan model.Notification
	quit    <-chan struct{}
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan model.Notification, size*16),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log,
	}
}

// Start launches the worker goroutines. It must be called before Dispatch.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.quit = ctx.Done()
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("Push worker started", zap.Int("worker", id))
	for {
		select {
		case n := <-wp.jobs:
			wp.sendToRecipient(ctx, n)
		case <-ctx.Done():
			wp.log.Debug("Push worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues a persisted notification for web push without waiting.
// A full queue drops the push; the row stays in the recipient's inbox.
func (wp *WorkerPool) Dispatch(ctx context.Context, n model.Notification) error {
	select {
	case <-wp.quit:
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case wp.jobs <- n:
		return nil
	default:
		metrics.WebPushSends.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// sendToRecipient pushes n to every subscription of its recipient.
func (wp *WorkerPool) sendToRecipient(ctx context.Context, n model.Notification) {
	subscriptions, err := wp.store.SubscriptionsForUser(ctx, n.RecipientID)
	if err != nil {
		wp.log.Error("Failed to load push subscriptions", zap.String("recipient_id", n.RecipientID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(pushPayload{
		ID:          n.ID,
		Type:        string(n.Type),
		Message:     n.Message,
		RelatedID:   n.RelatedID,
		RelatedType: n.RelatedType,
	})
	if err != nil {
		wp.log.Error("Failed to encode push payload", zap.Error(err))
		return
	}

	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		metrics.WebPushSends.WithLabelValues("error").Inc()
		wp.log.Warn("Error sending web push", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		metrics.WebPushSends.WithLabelValues("expired").Inc()
		wp.log.Info("Subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error("Failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
		return
	}
	metrics.WebPushSends.WithLabelValues("sent").Inc()
}
