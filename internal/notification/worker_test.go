package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"asset-tracker-backend/internal/model"
	"asset-tracker-backend/internal/store"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func emptyResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString("")),
	}
}

func subscriptionRows(endpoint string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "user_id", "created_at"}).
		AddRow(endpoint, "test_p256dh", "test_auth", "U2", time.Now())
}

func TestWorkerPool_Dispatch(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, store.NewGormStore(db), &webpush.Options{}, zap.NewNop())

	require.NoError(t, wp.Dispatch(context.Background(), model.Notification{ID: 123}))

	select {
	case job := <-wp.jobs:
		assert.Equal(t, int64(123), job.ID)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_DispatchAfterStop(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(0, store.NewGormStore(db), &webpush.Options{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	wp.Start(ctx)
	cancel()

	err := wp.Dispatch(context.Background(), model.Notification{ID: 1})
	assert.ErrorIs(t, err, ErrPoolStopped)
}

func TestWorkerPool_DispatchQueueFull(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, store.NewGormStore(db), &webpush.Options{}, zap.NewNop())

	for i := 0; i < cap(wp.jobs); i++ {
		require.NoError(t, wp.Dispatch(context.Background(), model.Notification{ID: int64(i)}))
	}

	done := make(chan error, 1)
	go func() { done <- wp.Dispatch(context.Background(), model.Notification{ID: 99}) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrQueueFull)
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	gormDB, mock := newTestDB(t)
	wp := NewWorkerPool(1, store.NewGormStore(gormDB), &webpush.Options{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	t.Run("pushes the notification to the recipient's subscription", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				defer wg.Done()
				assert.Equal(t, "https://example.com/push", sub.Endpoint)

				var got pushPayload
				assert.NoError(t, json.Unmarshal(payload, &got))
				assert.Equal(t, int64(101), got.ID)
				assert.Equal(t, "Item Lathe was updated", got.Message)
				return emptyResponse(http.StatusCreated), nil
			},
		}

		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions" WHERE user_id = \$1`).
			WithArgs("U2").
			WillReturnRows(subscriptionRows("https://example.com/push"))

		require.NoError(t, wp.Dispatch(ctx, model.Notification{
			ID: 101, RecipientID: "U2", Type: model.NotificationInfo, Message: "Item Lathe was updated",
		}))
		wg.Wait()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return emptyResponse(http.StatusGone), nil
			},
		}

		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions" WHERE user_id = \$1`).
			WithArgs("U2").
			WillReturnRows(subscriptionRows("https://example.com/expired"))

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE "push_subscriptions"."endpoint" = \$1`).
			WithArgs("https://example.com/expired").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		require.NoError(t, wp.Dispatch(ctx, model.Notification{ID: 102, RecipientID: "U2", Type: model.NotificationWarning}))

		assert.Eventually(t, func() bool {
			return mock.ExpectationsWereMet() == nil
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("send errors are swallowed", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				wg.Done()
				return nil, errors.New("push service unreachable")
			},
		}

		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions" WHERE user_id = \$1`).
			WithArgs("U2").
			WillReturnRows(subscriptionRows("https://example.com/down"))

		require.NoError(t, wp.Dispatch(ctx, model.Notification{ID: 103, RecipientID: "U2", Type: model.NotificationInfo}))
		wg.Wait()
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
