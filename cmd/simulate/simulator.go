package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var complaints = []string{"Fever", "Cough", "Headache", "Sprained ankle", "Rash", "Check-up"}

type Simulator struct {
	config  SimConfig
	client  *http.Client
	logger  *zap.Logger
	token   string
	metrics metrics

	mu       sync.Mutex
	occupied []int64 // rooms the simulator has filled
	booked   []int64 // appointments waiting for their kiosk check-in
	events   map[string]int
}

func newSimulator(cfg SimConfig, logger *zap.Logger) *Simulator {
	return &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.Named("sim"),
		events: make(map[string]int),
	}
}

func (s *Simulator) login(ctx context.Context) error {
	status, body, err := s.send(ctx, http.MethodPost, "/api/admin/login", map[string]string{
		"username": s.config.AdminUser,
		"password": s.config.AdminPassword,
	})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("login returned %d: %s", status, body)
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	s.token = resp.Token
	return nil
}

// Run starts the displays and workers and blocks until the configured
// duration elapses.
func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var displays sync.WaitGroup
	for i := 0; i < s.config.Displays; i++ {
		displays.Add(1)
		go func(id int) {
			defer displays.Done()
			s.display(ctx, id)
		}(i)
	}

	var workers sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		workers.Add(1)
		go func(id int) {
			defer workers.Done()
			s.worker(ctx, id)
		}(i)
	}

	workers.Wait()
	displays.Wait()
	s.logger.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	faker := gofakeit.New(0)

	checkIn := s.config.CheckInRatio
	appointment := checkIn + s.config.AppointmentRatio
	operator := appointment + s.config.OperatorRatio

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < checkIn:
			s.doCheckIn(ctx, faker)
		case r < appointment:
			if rng.Intn(2) == 0 {
				s.doBook(ctx, faker)
			} else {
				s.doAppointmentCheckIn(ctx, faker)
			}
		case r < operator:
			switch rng.Intn(3) {
			case 0:
				s.doAutoAssign(ctx)
			case 1:
				s.doFinish(ctx)
			default:
				s.doCallNext(ctx, rng)
			}
		default:
			if rng.Intn(2) == 0 {
				s.doRead(ctx, "/api/queue/current", &s.metrics.readQueue)
			} else {
				s.doRead(ctx, "/api/waittime/estimate", &s.metrics.readEta)
			}
		}
	}
}

func vitals(faker *gofakeit.Faker) map[string]any {
	return map[string]any{
		"temp": fmt.Sprintf("%.1f", faker.Float64Range(36.1, 38.5)),
		"spo2": faker.Number(92, 100),
		"hr":   faker.Number(55, 110),
	}
}

func (s *Simulator) doCheckIn(ctx context.Context, faker *gofakeit.Faker) {
	body := vitals(faker)
	body["firstName"] = faker.FirstName()
	body["lastName"] = faker.LastName()
	body["phone"] = faker.Phone()
	body["symptoms"] = faker.RandomString(complaints)

	s.timed(ctx, &s.metrics.checkIn, http.MethodPost, "/api/checkin", body, http.StatusCreated)
}

func (s *Simulator) doBook(ctx context.Context, faker *gofakeit.Faker) {
	at := time.Now().Add(time.Duration(faker.Number(5, 240)) * time.Minute)
	status, resp := s.timed(ctx, &s.metrics.book, http.MethodPost, "/api/appointments/book", map[string]any{
		"firstName":       faker.FirstName(),
		"lastName":        faker.LastName(),
		"phone":           faker.Phone(),
		"appointmentTime": at.Format(time.RFC3339),
	}, http.StatusCreated)
	if status != http.StatusCreated {
		return
	}

	var appt struct {
		ID int64 `json:"id"`
	}
	if json.Unmarshal(resp, &appt) == nil && appt.ID != 0 {
		s.mu.Lock()
		s.booked = append(s.booked, appt.ID)
		s.mu.Unlock()
	}
}

func (s *Simulator) doAppointmentCheckIn(ctx context.Context, faker *gofakeit.Faker) {
	id, ok := pop(&s.mu, &s.booked)
	if !ok {
		return
	}
	s.timed(ctx, &s.metrics.appointmentIn, http.MethodPost, fmt.Sprintf("/api/appointments/%d/checkin", id), vitals(faker), http.StatusCreated)
}

func (s *Simulator) doAutoAssign(ctx context.Context) {
	status, body := s.timed(ctx, &s.metrics.autoAssign, http.MethodPost, "/api/rooms/auto-assign", nil, http.StatusOK)
	if status != http.StatusOK {
		return
	}

	var resp struct {
		Room struct {
			ID int64 `json:"id"`
		} `json:"room"`
	}
	if json.Unmarshal(body, &resp) == nil && resp.Room.ID != 0 {
		s.mu.Lock()
		s.occupied = append(s.occupied, resp.Room.ID)
		s.mu.Unlock()
	}
}

func (s *Simulator) doFinish(ctx context.Context) {
	roomID, ok := pop(&s.mu, &s.occupied)
	if !ok {
		return
	}
	s.timed(ctx, &s.metrics.finish, http.MethodPost, "/api/rooms/finish", map[string]int64{"roomId": roomID}, http.StatusOK)
}

func (s *Simulator) doCallNext(ctx context.Context, rng *rand.Rand) {
	stage := "payment"
	if rng.Intn(2) == 0 {
		stage = "pharmacy"
	}

	status, body := s.timed(ctx, &s.metrics.callNext, http.MethodPost, "/api/"+stage+"/call-next", nil, http.StatusOK)
	if status != http.StatusOK {
		return
	}

	var entry struct {
		ID int64 `json:"id"`
	}
	if json.Unmarshal(body, &entry) == nil && entry.ID != 0 {
		_, _, _ = s.send(ctx, http.MethodPost, "/api/"+stage+"/complete", map[string]int64{"id": entry.ID})
	}
}

func (s *Simulator) doRead(ctx context.Context, path string, stats *opStats) {
	s.timed(ctx, stats, http.MethodGet, path, nil, http.StatusOK)
}

// timed sends one request and records it unless the run ended mid-flight.
func (s *Simulator) timed(ctx context.Context, stats *opStats, method, path string, payload any, want int) (int, []byte) {
	start := time.Now()
	status, body, err := s.send(ctx, method, path, payload)
	if ctx.Err() != nil {
		return status, body
	}
	stats.record(time.Since(start), status, classify(status, err, want))
	return status, body
}

func (s *Simulator) send(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody, err
}

// display connects like a waiting-room screen and counts what it is sent.
func (s *Simulator) display(ctx context.Context, id int) {
	url := "ws" + strings.TrimPrefix(s.config.APIBaseURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		s.logger.Warn("display connect failed", zap.Int("display", id), zap.Error(err))
		return
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env struct {
			Topic string `json:"topic"`
		}
		if json.Unmarshal(data, &env) != nil {
			continue
		}
		s.mu.Lock()
		s.events[env.Topic]++
		s.mu.Unlock()
	}
}

func (s *Simulator) eventCounts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.events))
	for k, v := range s.events {
		out[k] = v
	}
	return out
}

func pop(mu *sync.Mutex, ids *[]int64) (int64, bool) {
	mu.Lock()
	defer mu.Unlock()
	if len(*ids) == 0 {
		return 0, false
	}
	id := (*ids)[0]
	*ids = (*ids)[1:]
	return id, true
}
