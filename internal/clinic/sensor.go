package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	defaultPiIdentifier = "pi-main"
	defaultPiStatus     = "online"
)

// RecordHeartbeat appends a kiosk heartbeat and pushes it to displays.
func (s *Service) RecordHeartbeat(ctx context.Context, in HeartbeatInput) (*SensorLog, error) {
	vitals, err := in.VitalsInput.parse()
	if err != nil {
		return nil, err
	}

	pi := strings.TrimSpace(in.PiIdentifier)
	if pi == "" {
		pi = defaultPiIdentifier
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = defaultPiStatus
	}

	log, err := s.repo.InsertSensorLog(ctx, pi, status, vitals)
	if err != nil {
		return nil, fmt.Errorf("insert sensor log: %w", err)
	}

	s.publisher.Publish(TopicPiStatus, log)
	return log, nil
}

func (s *Service) LatestHeartbeat(ctx context.Context, piIdentifier string) (*SensorLog, error) {
	pi := strings.TrimSpace(piIdentifier)
	if pi == "" {
		pi = defaultPiIdentifier
	}

	log, err := s.repo.LatestSensorLog(ctx, pi)
	if err != nil {
		if errors.Is(err, ErrSensorLogNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load latest heartbeat: %w", err)
	}
	return log, nil
}
