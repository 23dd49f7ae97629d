package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/tour-booking/internal/booking"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	hub := NewHub(logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	r := mux.NewRouter()
	r.HandleFunc("/bookings/tour/{tour_id}/ws", hub.ServeTour)
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, tourID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/bookings/tour/" + tourID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_DeliversEventsPerTour(t *testing.T) {
	hub, srv := startHub(t)

	watcher := dial(t, srv, "5")
	other := dial(t, srv, "6")

	require.Eventually(t, func() bool {
		return hub.ClientCount(5) == 1 && hub.ClientCount(6) == 1
	}, time.Second, 10*time.Millisecond)

	b := &booking.Booking{TourID: 5, Status: booking.StatusConfirmed}
	hub.Publish(booking.NewEvent(booking.EventConfirmed, b, time.Now()))

	watcher.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := watcher.ReadMessage()
	require.NoError(t, err)

	var event booking.Event
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, booking.EventConfirmed, event.Type)
	assert.Equal(t, int64(5), event.TourID)
	require.NotNil(t, event.Booking)
	assert.Equal(t, booking.StatusConfirmed, event.Booking.Status)

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err, "tour 6 watcher must not see tour 5 events")
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, srv := startHub(t)

	conn := dial(t, srv, "7")
	require.Eventually(t, func() bool { return hub.ClientCount(7) == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount(7) == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_RejectsBadTourID(t *testing.T) {
	_, srv := startHub(t)

	resp, err := http.Get(srv.URL + "/bookings/tour/abc/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	logger, hook := test.NewNullLogger()
	hub := NewHub(logger)

	// no Run loop: the queue fills up and further events are dropped
	for i := 0; i < broadcastBuffer+10; i++ {
		hub.Publish(booking.Event{Type: booking.EventCreated, TourID: 1})
	}
	assert.NotEmpty(t, hook.AllEntries())
}
