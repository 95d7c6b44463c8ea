package facility

import (
	"context"
	"log"

	"campus-facility-backend/internal/model"
)

// AssignRoom houses a subject, moving them out of any previous room.
func (s *Service) AssignRoom(ctx context.Context, subjectID, roomID string) (model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.violations.CheckActive(subjectID); err != nil {
		return model.Room{}, err
	}
	return s.allocator.Assign(ctx, subjectID, roomID)
}

// ReleaseRoom removes a subject from their room.
func (s *Service) ReleaseRoom(ctx context.Context, subjectID string) (model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.subjects.Get(subjectID); err != nil {
		return model.Room{}, err
	}
	return s.allocator.Release(ctx, subjectID)
}

// SetRoomMaintenance empties a room and returns the evicted subjects.
// Evicted subjects are not re-housed.
func (s *Service) SetRoomMaintenance(ctx context.Context, roomID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted, err := s.allocator.SetMaintenance(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if len(evicted) > 0 {
		log.Printf("Room %s set to maintenance; evicted %v", roomID, evicted)
	}
	return evicted, nil
}

// ClearRoomMaintenance returns a room to service.
func (s *Service) ClearRoomMaintenance(ctx context.Context, roomID string) (model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.allocator.ClearMaintenance(ctx, roomID)
}
