package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canteen/pkg/domain/model"
	"canteen/pkg/domain/service"
)

type notification struct {
	orderID      uuid.UUID
	customerName string
}

type mockNotifier struct {
	notifications []notification
}

func (m *mockNotifier) NewPendingOrder(orderID uuid.UUID, customerName string) {
	m.notifications = append(m.notifications, notification{orderID: orderID, customerName: customerName})
}

func (m *mockNotifier) Reset() {
	m.notifications = nil
}

func setupBoard(t *testing.T) (*service.OrderBoard, *mockOrderRepository, *mockNotifier) {
	repo := newMockOrderRepository()
	notifier := &mockNotifier{}
	board := service.NewOrderBoard(repo, notifier, time.Millisecond, 0)
	return board, repo, notifier
}

func pendingOrder(name string) *model.Order {
	return &model.Order{ID: uuid.New(), UserID: uuid.New(), CustomerName: name, Status: model.StatusPending, Version: 1}
}

func TestBoardPartition(t *testing.T) {
	board, repo, _ := setupBoard(t)
	repo.put(pendingOrder("Asha"))
	repo.put(&model.Order{ID: uuid.New(), UserID: uuid.New(), Status: model.StatusAccepted, Version: 1})
	repo.put(&model.Order{ID: uuid.New(), UserID: uuid.New(), Status: model.StatusCompleted, Version: 1})
	repo.put(&model.Order{ID: uuid.New(), UserID: uuid.New(), Status: model.StatusCancelled, Version: 1})
	// record missing its identity is discarded
	repo.put(&model.Order{Status: model.StatusPending, Version: 1})

	require.NoError(t, board.Reload(context.Background()))

	snap := board.Snapshot()
	assert.Len(t, snap.Pending, 1)
	assert.Len(t, snap.Accepted, 1)
	assert.Len(t, snap.Completed, 1)
	assert.Len(t, snap.Cancelled, 1)
	assert.NoError(t, snap.Err)
}

func TestBoardPendingDiff(t *testing.T) {
	board, repo, notifier := setupBoard(t)

	o1 := repo.put(pendingOrder("Asha"))
	repo.put(&model.Order{ID: uuid.New(), UserID: uuid.New(), CustomerName: "Ravi", Status: model.StatusAccepted, Version: 1})

	require.NoError(t, board.Reload(context.Background()))
	assert.Empty(t, notifier.notifications, "initial load renders, it does not notify")

	// o1 leaves pending, o3 arrives
	repo.store[o1.ID].Status = model.StatusAccepted
	o3 := repo.put(pendingOrder("Meera"))

	require.NoError(t, board.Reload(context.Background()))

	snap := board.Snapshot()
	require.Len(t, snap.Pending, 1)
	assert.Equal(t, o3.ID, snap.Pending[0].ID)
	assert.Len(t, snap.Accepted, 2)

	require.Len(t, notifier.notifications, 1)
	assert.Equal(t, o3.ID, notifier.notifications[0].orderID)
	assert.Equal(t, "Meera", notifier.notifications[0].customerName)
}

func TestBoardCollapsesRapidInserts(t *testing.T) {
	board, repo, notifier := setupBoard(t)
	require.NoError(t, board.Reload(context.Background()))

	// several inserts land between two reloads; one diff, one event each
	repo.put(pendingOrder("Asha"))
	repo.put(pendingOrder("Ravi"))
	require.NoError(t, board.Reload(context.Background()))
	assert.Len(t, notifier.notifications, 2)

	// an unchanged pending set fires nothing
	notifier.Reset()
	require.NoError(t, board.Reload(context.Background()))
	assert.Empty(t, notifier.notifications)
}

func TestBoardKeepsStaleOnError(t *testing.T) {
	board, repo, _ := setupBoard(t)
	repo.put(pendingOrder("Asha"))
	require.NoError(t, board.Reload(context.Background()))

	repo.listErr = errors.New("store unreachable")
	require.Error(t, board.Reload(context.Background()))

	snap := board.Snapshot()
	assert.Len(t, snap.Pending, 1, "previous buckets survive a failed load")
	assert.Error(t, snap.Err)

	repo.listErr = nil
	require.NoError(t, board.Reload(context.Background()))
	assert.NoError(t, board.Snapshot().Err)
}

func TestBoardDeleteRetry(t *testing.T) {
	board, repo, _ := setupBoard(t)
	o1 := repo.put(pendingOrder("Asha"))
	require.NoError(t, board.Reload(context.Background()))

	// the store keeps returning the row after the delete was issued
	repo.keepDeleted = true
	require.NoError(t, repo.Delete(context.Background(), o1.ID))
	board.TrackDelete(o1.ID)

	require.NoError(t, board.Reload(context.Background()))
	assert.Equal(t, 2, repo.deleteCalls[o1.ID], "one retry after the row is still visible")

	require.NoError(t, board.Reload(context.Background()))
	assert.Equal(t, 2, repo.deleteCalls[o1.ID], "the retry happens exactly once")
}

func TestBoardDeleteSettles(t *testing.T) {
	board, repo, _ := setupBoard(t)
	o1 := repo.put(pendingOrder("Asha"))
	require.NoError(t, board.Reload(context.Background()))

	require.NoError(t, repo.Delete(context.Background(), o1.ID))
	board.TrackDelete(o1.ID)

	require.NoError(t, board.Reload(context.Background()))
	assert.Equal(t, 1, repo.deleteCalls[o1.ID], "no retry once the row is gone")
}

func TestBoardWatch(t *testing.T) {
	board, repo, _ := setupBoard(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan struct{}, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = board.Watch(ctx, changes)
	}()

	repo.put(pendingOrder("Asha"))
	changes <- struct{}{}

	require.Eventually(t, func() bool {
		return len(board.Snapshot().Pending) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
