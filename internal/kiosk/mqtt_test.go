package kiosk

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue/internal/clinic"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type fakeRecorder struct {
	calls []clinic.HeartbeatInput
	err   error
}

func (r *fakeRecorder) RecordHeartbeat(ctx context.Context, in clinic.HeartbeatInput) (*clinic.SensorLog, error) {
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("handler context has no deadline")
	}
	r.calls = append(r.calls, in)
	if r.err != nil {
		return nil, r.err
	}
	return &clinic.SensorLog{PiIdentifier: in.PiIdentifier, Status: in.Status}, nil
}

func TestMessageHandler(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		calls   int
		wantPi  string
	}{
		{name: "full payload", payload: `{"piIdentifier":"kiosk-2","status":"online","temp":"36.6","spo2":98}`, calls: 1, wantPi: "kiosk-2"},
		{name: "empty payload", payload: "", calls: 1},
		{name: "invalid json", payload: `{"piIdentifier":`, calls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			handler := NewMessageHandler(rec, zap.NewNop())

			handler(nil, fakeMessage{topic: "clinic/kiosk/heartbeat", payload: []byte(tt.payload)})

			if len(rec.calls) != tt.calls {
				t.Fatalf("calls = %d, want %d", len(rec.calls), tt.calls)
			}
			if tt.calls == 0 {
				return
			}
			got := rec.calls[0]
			if got.PiIdentifier != tt.wantPi {
				t.Errorf("pi = %q, want %q", got.PiIdentifier, tt.wantPi)
			}
			if tt.wantPi != "" && (got.Temp != "36.6" || got.SpO2 != "98") {
				t.Errorf("vitals = %+v", got.VitalsInput)
			}
		})
	}
}

func TestMessageHandlerSurvivesRecorderError(t *testing.T) {
	rec := &fakeRecorder{err: clinic.ValidationError("temp must be a number")}
	handler := NewMessageHandler(rec, zap.NewNop())

	handler(nil, fakeMessage{topic: "t", payload: []byte(`{"temp":"hot"}`)})

	if len(rec.calls) != 1 {
		t.Fatalf("calls = %d", len(rec.calls))
	}
}
