package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hackgods/clinic-queue/internal/clinic"
)

type fakeSource struct {
	snapshots []clinic.Snapshot
	err       error
}

func (f fakeSource) Snapshots(ctx context.Context) ([]clinic.Snapshot, error) {
	return f.snapshots, f.err
}

type wireEnvelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sentAt"`
}

func startHub(t *testing.T, src SnapshotSource, origins []string) (*Hub, string) {
	t.Helper()
	hub := NewHub(nil, origins)
	if src != nil {
		hub.SetSnapshotSource(src)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) wireEnvelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return env
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubGreetsWithSnapshotsThenStreams(t *testing.T) {
	src := fakeSource{snapshots: []clinic.Snapshot{
		{Topic: clinic.TopicQueueUpdate, Payload: []string{"0001"}},
		{Topic: clinic.TopicRoomUpdate, Payload: []string{"Room 1"}},
	}}
	hub, url := startHub(t, src, nil)
	conn := dial(t, url)

	hello := readEnvelope(t, conn)
	if hello.Topic != clinic.TopicConnected {
		t.Fatalf("first topic = %q", hello.Topic)
	}
	var greeting struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(hello.Payload, &greeting); err != nil || greeting.ID == "" {
		t.Errorf("greeting payload = %s", hello.Payload)
	}

	for _, want := range []string{clinic.TopicQueueUpdate, clinic.TopicRoomUpdate} {
		if got := readEnvelope(t, conn).Topic; got != want {
			t.Errorf("snapshot topic = %q, want %q", got, want)
		}
	}

	waitForClients(t, hub, 1)
	hub.Publish(clinic.TopicNewPatient, map[string]string{"queue_number": "0002"})

	live := readEnvelope(t, conn)
	if live.Topic != clinic.TopicNewPatient || !strings.Contains(string(live.Payload), "0002") {
		t.Errorf("live event = %s %s", live.Topic, live.Payload)
	}
	if live.SentAt.IsZero() {
		t.Error("sentAt not set")
	}
}

// gatedSource blocks Snapshots until release is closed.
type gatedSource struct {
	entered chan struct{}
	release chan struct{}
}

func (g gatedSource) Snapshots(ctx context.Context) ([]clinic.Snapshot, error) {
	close(g.entered)
	<-g.release
	return []clinic.Snapshot{{Topic: clinic.TopicQueueUpdate, Payload: []string{"0001"}}}, nil
}

func TestHubDeliversEventsPublishedWhileSnapshotsLoad(t *testing.T) {
	src := gatedSource{entered: make(chan struct{}), release: make(chan struct{})}
	hub, url := startHub(t, src, nil)
	conn := dial(t, url)

	if got := readEnvelope(t, conn).Topic; got != clinic.TopicConnected {
		t.Fatalf("first topic = %q", got)
	}
	select {
	case <-src.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("snapshots never requested")
	}
	waitForClients(t, hub, 1)
	hub.Publish(clinic.TopicNewPatient, map[string]string{"queue_number": "0002"})

	if got := readEnvelope(t, conn).Topic; got != clinic.TopicNewPatient {
		t.Fatalf("topic = %q, want the event published during the snapshot load", got)
	}
	close(src.release)
	if got := readEnvelope(t, conn).Topic; got != clinic.TopicQueueUpdate {
		t.Errorf("topic = %q, want the snapshot", got)
	}
}

func TestHubSkipsSnapshotsOnSourceError(t *testing.T) {
	hub, url := startHub(t, fakeSource{err: errors.New("db down")}, nil)
	conn := dial(t, url)

	if got := readEnvelope(t, conn).Topic; got != clinic.TopicConnected {
		t.Fatalf("first topic = %q", got)
	}
	waitForClients(t, hub, 1)
	hub.Publish(clinic.TopicPaymentUpdate, []int{})
	if got := readEnvelope(t, conn).Topic; got != clinic.TopicPaymentUpdate {
		t.Errorf("topic = %q", got)
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, url := startHub(t, nil, nil)
	a := dial(t, url)
	dial(t, url)
	waitForClients(t, hub, 2)

	_ = a.Close()
	waitForClients(t, hub, 1)
}

func TestHubRejectsUnknownOrigin(t *testing.T) {
	_, url := startHub(t, nil, []string{"https://display.clinic.local"})

	header := http.Header{"Origin": {"https://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatal("expected handshake to fail for foreign origin")
	}

	header["Origin"] = []string{"https://display.clinic.local"}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("allowed origin: %v", err)
	}
	_ = conn.Close()
}

func TestMultiAndRecorder(t *testing.T) {
	var a, b Recorder
	m := Multi{&a, Discard{}, &b}

	m.Publish(clinic.TopicQueueUpdate, 1)
	m.Publish(clinic.TopicRoomUpdate, 2)
	m.Publish(clinic.TopicQueueUpdate, 3)

	for name, r := range map[string]*Recorder{"a": &a, "b": &b} {
		topics := r.Topics()
		if len(topics) != 3 || topics[0] != clinic.TopicQueueUpdate || topics[1] != clinic.TopicRoomUpdate {
			t.Errorf("%s topics = %v", name, topics)
		}
		if last, ok := r.Last(clinic.TopicQueueUpdate); !ok || last != 3 {
			t.Errorf("%s last queue payload = %v, %v", name, last, ok)
		}
	}

	if _, ok := a.Last(clinic.TopicPharmacyUpdate); ok {
		t.Error("unexpected pharmacy event")
	}
	a.Reset()
	if len(a.Events()) != 0 {
		t.Error("reset kept events")
	}
}
