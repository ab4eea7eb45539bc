package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
	fail     bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	f.messages = append(f.messages, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) received() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.messages...)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		hub.Wait()
	})
	return hub, cancel
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hub, _ := startHub(t)
	a, b := &fakeConn{}, &fakeConn{}
	hub.Register(&Client{ID: "a", Conn: a})
	hub.Register(&Client{ID: "b", Conn: b})
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	event := models.OrderEvent{Type: models.EventOrderCreated, OrderID: 9, OrderRef: "K3M9Q2X7PA", Total: decimal.RequireFromString("20.00")}
	require.NoError(t, hub.PublishOrderEvent(context.Background(), event))

	require.Eventually(t, func() bool { return len(a.received()) == 1 && len(b.received()) == 1 }, time.Second, 5*time.Millisecond)

	var got models.OrderEvent
	require.NoError(t, json.Unmarshal(a.received()[0], &got))
	assert.Equal(t, models.EventOrderCreated, got.Type)
	assert.Equal(t, uint(9), got.OrderID)
}

func TestHub_DropsFailingClients(t *testing.T) {
	hub, _ := startHub(t)
	broken := &fakeConn{fail: true}
	hub.Register(&Client{ID: "broken", Conn: broken})
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Broadcast(context.Background(), models.OrderEvent{Type: models.EventOrderCancelled}))

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, broken.isClosed())
}

func TestHub_Unregister(t *testing.T) {
	hub, _ := startHub(t)
	client := &Client{ID: "a", Conn: &fakeConn{}}
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	conn := &fakeConn{}
	hub.Register(&Client{ID: "a", Conn: conn})
	cancel()
	hub.Wait()

	assert.True(t, conn.isClosed())
	assert.ErrorIs(t, hub.Broadcast(context.Background(), models.OrderEvent{}), ErrHubClosed)
}
