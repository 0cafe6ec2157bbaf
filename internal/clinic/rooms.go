package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

func (s *Service) ListRooms(ctx context.Context) ([]Room, error) {
	rooms, err := s.repo.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	if rooms == nil {
		rooms = []Room{}
	}
	return rooms, nil
}

func (s *Service) CreateRoom(ctx context.Context, name string) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ValidationError("room name is required")
	}

	room, err := s.repo.CreateRoom(ctx, name)
	if err != nil {
		if errors.Is(err, ErrRoomNameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create room: %w", err)
	}

	s.broadcastRooms(ctx)
	return room, nil
}

func (s *Service) RenameRoom(ctx context.Context, id int64, name string) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ValidationError("room name is required")
	}

	room, err := s.repo.RenameRoom(ctx, id, name)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrRoomNameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("rename room: %w", err)
	}

	s.broadcastRooms(ctx)
	return room, nil
}

// DeleteRoom removes an idle room. Occupied rooms are refused.
func (s *Service) DeleteRoom(ctx context.Context, id int64) error {
	if err := s.repo.DeleteRoom(ctx, id); err != nil {
		if errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrRoomOccupied) {
			return err
		}
		return fmt.Errorf("delete room: %w", err)
	}

	s.broadcastRooms(ctx)
	return nil
}
