package notification_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/notification"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
	"github.com/your-org/storefront-backend/internal/testutil"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu   sync.Mutex
	sent []*notification.Notification
}

func (r *recordingPublisher) Publish(_ uint, n *notification.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func TestCreatePublishesOutsideTransaction(t *testing.T) {
	db := testutil.NewDB(t)
	pub := &recordingPublisher{}
	svc := notification.NewService(db, pub)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "ada@example.com")

	_, err := svc.Create(ctx, nil, u.ID, "Welcome", "Hello", notification.TypeAccount)
	require.NoError(t, err)
	assert.Len(t, pub.sent, 1)

	// Inside a transaction delivery waits for the caller
	var pending *notification.Notification
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		pending, err = svc.Create(ctx, tx, u.ID, "Order placed", "ORD-1", notification.TypeOrderPlaced)
		return err
	}))
	assert.Len(t, pub.sent, 1)
	svc.Deliver(pending)
	assert.Len(t, pub.sent, 2)
}

func TestReadState(t *testing.T) {
	db := testutil.NewDB(t)
	svc := notification.NewService(db, nil)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "ada@example.com")
	other := testutil.CreateUser(t, db, "bob@example.com")

	first, err := svc.Create(ctx, nil, u.ID, "one", "1", notification.TypeAccount)
	require.NoError(t, err)
	_, err = svc.Create(ctx, nil, u.ID, "two", "2", notification.TypeAccount)
	require.NoError(t, err)
	_, err = svc.Create(ctx, nil, u.ID, "three", "3", notification.TypeAccount)
	require.NoError(t, err)

	count, err := svc.UnreadCount(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	read, err := svc.MarkRead(ctx, u.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	assert.NotNil(t, read.ReadAt)

	_, err = svc.MarkRead(ctx, other.ID, first.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	count, err = svc.UnreadCount(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	updated, err := svc.MarkAllRead(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	count, err = svc.UnreadCount(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestListNewestFirstAndDelete(t *testing.T) {
	db := testutil.NewDB(t)
	svc := notification.NewService(db, nil)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "ada@example.com")

	for _, title := range []string{"a", "b", "c"} {
		_, err := svc.Create(ctx, nil, u.ID, title, title, notification.TypeAccount)
		require.NoError(t, err)
	}

	page, err := svc.ListForUser(ctx, u.ID, pagination.New(1, 2))
	require.NoError(t, err)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, "c", page.Notifications[0].Title)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.True(t, page.Pagination.HasNext)

	require.NoError(t, svc.Delete(ctx, u.ID, page.Notifications[0].ID))
	assert.True(t, apperror.Is(svc.Delete(ctx, u.ID, page.Notifications[0].ID), apperror.KindNotFound))
}
