package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"asset-tracker-backend/internal/db/dbtest"
	"asset-tracker-backend/internal/model"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func newTestStore(t *testing.T) Store {
	return NewGormStore(dbtest.OpenTest(t))
}

func seedItem(t *testing.T, s Store, id, name string) {
	t.Helper()
	require.NoError(t, s.CreateItem(context.Background(), &model.Item{ID: id, Name: name, Floor: 1}))
}

func strPtr(s string) *string { return &s }

func TestReplaceMaintenance_IsTotal(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedItem(t, s, "I1", "Lathe")
	seedItem(t, s, "I2", "Drill")

	for i := 0; i < 4; i++ {
		require.NoError(t, s.AddMaintenance(ctx, &model.MaintenanceRecord{ItemID: "I1", Cause: "wear"}))
	}
	require.NoError(t, s.AddMaintenance(ctx, &model.MaintenanceRecord{ItemID: "I2", Cause: "other item"}))

	replacement := []model.MaintenanceRecord{
		{ID: 99, ItemID: "I2", Cause: "belt snapped", Technician: "Budi"},
		{Cause: "oil leak", Photos: []string{"/uploads/leak.jpg"}},
	}
	require.NoError(t, s.ReplaceMaintenance(ctx, "I1", replacement))

	item, err := s.GetItem(ctx, "I1")
	require.NoError(t, err)
	require.Len(t, item.MaintenanceRecords, 2)
	for _, rec := range item.MaintenanceRecords {
		assert.Equal(t, "I1", rec.ItemID)
		assert.NotEqual(t, int64(99), rec.ID, "client supplied ids are discarded")
	}
	assert.Equal(t, "belt snapped", item.MaintenanceRecords[0].Cause)
	assert.Equal(t, []string{"/uploads/leak.jpg"}, []string(item.MaintenanceRecords[1].Photos))

	other, err := s.GetItem(ctx, "I2")
	require.NoError(t, err)
	assert.Len(t, other.MaintenanceRecords, 1, "other items keep their history")
}

func TestReplaceMaintenance_EmptyClears(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedItem(t, s, "I1", "Lathe")
	require.NoError(t, s.AddMaintenance(ctx, &model.MaintenanceRecord{ItemID: "I1"}))
	require.NoError(t, s.AddMaintenance(ctx, &model.MaintenanceRecord{ItemID: "I1"}))

	require.NoError(t, s.ReplaceMaintenance(ctx, "I1", []model.MaintenanceRecord{}))

	item, err := s.GetItem(ctx, "I1")
	require.NoError(t, err)
	assert.Empty(t, item.MaintenanceRecords)
	assert.NotNil(t, item.MaintenanceRecords)
}

func TestReplaceLoans_RecordsReturn(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedItem(t, s, "I1", "Projector")
	seedItem(t, s, "I2", "Camera")

	original := &model.LoanRecord{ItemID: "I1", BorrowerName: "A", BorrowDate: "2023-12-20"}
	require.NoError(t, s.AddLoan(ctx, original))
	require.NoError(t, s.AddLoan(ctx, &model.LoanRecord{ItemID: "I2", BorrowerName: "B"}))
	assert.True(t, original.OnLoan())

	err := s.ReplaceLoans(ctx, "I1", []model.LoanRecord{
		{ID: original.ID, BorrowerName: "A", BorrowDate: "2023-12-20", ReturnDate: strPtr("2024-01-01")},
	})
	require.NoError(t, err)

	item, err := s.GetItem(ctx, "I1")
	require.NoError(t, err)
	require.Len(t, item.LoanRecords, 1)
	loan := item.LoanRecords[0]
	require.NotNil(t, loan.ReturnDate)
	assert.Equal(t, "2024-01-01", *loan.ReturnDate)
	assert.False(t, loan.OnLoan())
	assert.NotEqual(t, original.ID, loan.ID, "a new id is assigned")
}

func TestReplace_UnknownItem(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.ReplaceLoans(ctx, "missing", []model.LoanRecord{{BorrowerName: "A"}})
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.ReplaceMaintenance(ctx, "missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.AddLoan(ctx, &model.LoanRecord{ItemID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddRecord_RequiresItemID(t *testing.T) {
	s := newTestStore(t)

	err := s.AddMaintenance(context.Background(), &model.MaintenanceRecord{})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	err = s.AddLoan(context.Background(), &model.LoanRecord{})
	assert.True(t, errors.As(err, &verr))
}

func TestUpdateAndDeleteItem(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedItem(t, s, "I1", "Lathe")
	require.NoError(t, s.AddLoan(ctx, &model.LoanRecord{ItemID: "I1", BorrowerName: "A"}))

	lat := -6.2
	require.NoError(t, s.UpdateItemFields(ctx, "I1", map[string]any{
		"machine_status": model.StatusBroken,
		"latitude":       &lat,
		"photos":         datatypes.JSONSlice[string]{"/uploads/x.jpg"},
	}))

	item, err := s.GetItem(ctx, "I1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusBroken, item.MachineStatus)
	require.NotNil(t, item.Latitude)
	assert.InDelta(t, -6.2, *item.Latitude, 1e-9)
	assert.Equal(t, []string{"/uploads/x.jpg"}, []string(item.Photos))

	assert.ErrorIs(t, s.UpdateItemFields(ctx, "missing", map[string]any{"name": "x"}), ErrNotFound)

	require.NoError(t, s.DeleteItem(ctx, "I1"))
	_, err = s.GetItem(ctx, "I1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteItem(ctx, "I1"), ErrNotFound)
}

func TestListItems_Filters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.CreateItem(ctx, &model.Item{ID: "a", Name: "Generator", Category: "power", MachineStatus: model.StatusNormal, Floor: 1}))
	require.NoError(t, s.CreateItem(ctx, &model.Item{ID: "b", Name: "Welder", Category: "workshop", MachineStatus: model.StatusBroken, Floor: 2}))

	items, err := s.ListItems(ctx, ItemFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.NotNil(t, items[0].LoanRecords)

	items, err = s.ListItems(ctx, ItemFilter{MachineStatus: model.StatusBroken})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)

	items, err = s.ListItems(ctx, ItemFilter{Query: "Gen"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ID)
}

func TestNotifications_ReadState(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.CreateUser(ctx, &model.User{ID: "U1", Name: "Ayu"}))
	require.NoError(t, s.CreateUser(ctx, &model.User{ID: "U2", Name: "Bima"}))

	rows := []model.Notification{
		{RecipientID: "U1", SenderID: strPtr("U2"), Type: model.NotificationInfo, Message: "one"},
		{RecipientID: "U1", Type: model.NotificationWarning, Message: "two"},
		{RecipientID: "U2", SenderID: strPtr("U1"), Type: model.NotificationInfo, Message: "three"},
	}
	require.NoError(t, s.CreateNotifications(ctx, rows))
	for _, r := range rows {
		assert.NotZero(t, r.ID)
	}

	t.Run("list joins sender name newest first", func(t *testing.T) {
		list, err := s.ListNotifications(ctx, "U1", 0)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "two", list[0].Message)
		assert.Nil(t, list[0].SenderName)
		require.NotNil(t, list[1].SenderName)
		assert.Equal(t, "Bima", *list[1].SenderName)
	})

	t.Run("cross user mark read is a silent no-op", func(t *testing.T) {
		changed, err := s.MarkRead(ctx, rows[0].ID, "U2")
		require.NoError(t, err)
		assert.Zero(t, changed)

		unread, err := s.CountUnread(ctx, "U1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), unread)
	})

	t.Run("mark read is idempotent", func(t *testing.T) {
		changed, err := s.MarkRead(ctx, rows[0].ID, "U1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), changed)

		changed, err = s.MarkRead(ctx, rows[0].ID, "U1")
		require.NoError(t, err)
		assert.Zero(t, changed)
	})

	t.Run("mark all read twice", func(t *testing.T) {
		changed, err := s.MarkAllRead(ctx, "U1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), changed)

		changed, err = s.MarkAllRead(ctx, "U1")
		require.NoError(t, err)
		assert.Zero(t, changed)

		list, err := s.ListNotifications(ctx, "U1", 0)
		require.NoError(t, err)
		for _, n := range list {
			assert.True(t, n.IsRead)
		}

		unread, err := s.CountUnread(ctx, "U2")
		require.NoError(t, err)
		assert.Equal(t, int64(1), unread, "other recipients are untouched")
	})
}

func TestListNotifications_Limit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rows := make([]model.Notification, NotificationLimit+5)
	for i := range rows {
		rows[i] = model.Notification{RecipientID: "U1", Type: model.NotificationInfo, Message: "m"}
	}
	require.NoError(t, s.CreateNotifications(ctx, rows))

	list, err := s.ListNotifications(ctx, "U1", 0)
	require.NoError(t, err)
	assert.Len(t, list, NotificationLimit)
}

func TestCreateNotifications_RejectsMissingRecipient(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateNotifications(context.Background(), []model.Notification{{Message: "x"}})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestListUserIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, id := range []string{"U2", "U1", "U3"} {
		require.NoError(t, s.CreateUser(ctx, &model.User{ID: id, Name: id}))
	}
	ids, err := s.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"U1", "U2", "U3"}, ids)
}

func TestSubscriptions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sub := &model.PushSubscription{Endpoint: "https://push.example/1", P256DH: "k", Auth: "a", UserID: "U1"}
	require.NoError(t, s.SaveSubscription(ctx, sub))
	sub.UserID = "U2"
	require.NoError(t, s.SaveSubscription(ctx, sub))

	got, err := s.GetSubscription(ctx, sub.Endpoint)
	require.NoError(t, err)
	assert.Equal(t, "U2", got.UserID)

	subs, err := s.SubscriptionsForUser(ctx, "U2")
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	require.NoError(t, s.DeleteSubscription(ctx, sub.Endpoint))
	_, err = s.GetSubscription(ctx, sub.Endpoint)
	assert.ErrorIs(t, err, ErrNotFound)
}

// A failed insert must roll back the delete so the item keeps its history.
func TestReplaceMaintenance_RollsBackOnInsertFailure(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "items" WHERE id = $1`)).
		WithArgs("I1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "maintenance_records" WHERE item_id = $1`)).
		WithArgs("I1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "maintenance_records"`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.ReplaceMaintenance(context.Background(), "I1", []model.MaintenanceRecord{{Cause: "x"}})

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceLoans_UnknownItemRollsBack(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "items" WHERE id = $1`)).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	err := s.ReplaceLoans(context.Background(), "gone", nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}

func TestMarkAllRead_SingleStatement(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "notifications" SET "is_read"=$1 WHERE recipient_id = $2 AND is_read = $3`)).
		WithArgs(true, "U1", Any{}).
		WillReturnResult(sqlmock.NewResult(0, 7))
	mock.ExpectCommit()

	changed, err := s.MarkAllRead(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
