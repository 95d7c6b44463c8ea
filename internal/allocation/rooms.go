package allocation

import (
	"context"
	"sort"

	"campus-facility-backend/internal/apperr"
	"campus-facility-backend/internal/model"
	"campus-facility-backend/internal/store"
)

// DeriveStatus maps occupancy to a room status. Maintenance is an override
// and never derived.
func DeriveStatus(occupants, capacity int) model.RoomStatus {
	switch {
	case occupants <= 0:
		return model.RoomVacant
	case occupants < capacity:
		return model.RoomPartial
	default:
		return model.RoomFull
	}
}

// BlockSummary aggregates the rooms of one block.
type BlockSummary struct {
	model.Block
	TotalRooms  int `json:"total_rooms"`
	Capacity    int `json:"capacity"`
	Occupied    int `json:"occupied"`
	Maintenance int `json:"maintenance"`
	MaxFloor    int `json:"max_floor"`
}

// Assign houses subjectID in roomID, moving them out of any previous room.
// The target is fully validated before anything changes.
func (a *Allocator) Assign(ctx context.Context, subjectID, roomID string) (model.Room, error) {
	a.mu.Lock()
	changed := false
	defer a.unlockAndPublish(&changed)

	target := a.roomIndexLocked(roomID)
	if target < 0 {
		return model.Room{}, apperr.NotFound(apperr.CodeRoomNotFound, "room %s not found", roomID)
	}
	room := a.rooms[target]
	if room.Status == model.RoomMaintenance {
		return model.Room{}, apperr.Unavailable(apperr.CodeRoomUnderMaintenance, "room %s is under maintenance", roomID)
	}
	if room.HasOccupant(subjectID) {
		return room, nil
	}
	if len(room.Occupants) >= room.Capacity {
		return model.Room{}, apperr.CapacityExceeded(apperr.CodeRoomFull, "room %s is full (%d/%d)", roomID, len(room.Occupants), room.Capacity)
	}

	next := cloneRooms(a.rooms)
	if prev := roomIndexOf(next, subjectID); prev >= 0 {
		removeOccupant(&next[prev], subjectID)
	}
	next[target].Occupants = append(next[target].Occupants, subjectID)
	next[target].Status = DeriveStatus(len(next[target].Occupants), next[target].Capacity)

	if err := a.saveLocked(ctx, map[string]any{store.KeyRooms: next}); err != nil {
		return model.Room{}, err
	}
	a.rooms = next
	changed = true
	return next[target], nil
}

// Release removes subjectID from their room.
func (a *Allocator) Release(ctx context.Context, subjectID string) (model.Room, error) {
	a.mu.Lock()
	changed := false
	defer a.unlockAndPublish(&changed)

	idx := roomIndexOf(a.rooms, subjectID)
	if idx < 0 {
		return model.Room{}, apperr.NotFound(apperr.CodeNotAssigned, "subject %s is not assigned to any room", subjectID)
	}

	next := cloneRooms(a.rooms)
	removeOccupant(&next[idx], subjectID)
	if err := a.saveLocked(ctx, map[string]any{store.KeyRooms: next}); err != nil {
		return model.Room{}, err
	}
	a.rooms = next
	changed = true
	return next[idx], nil
}

// SetMaintenance empties the room and blocks allocation. The evicted
// subjects are returned so the caller can follow up with them.
func (a *Allocator) SetMaintenance(ctx context.Context, roomID string) ([]string, error) {
	a.mu.Lock()
	changed := false
	defer a.unlockAndPublish(&changed)

	idx := a.roomIndexLocked(roomID)
	if idx < 0 {
		return nil, apperr.NotFound(apperr.CodeRoomNotFound, "room %s not found", roomID)
	}

	next := cloneRooms(a.rooms)
	evicted := next[idx].Occupants
	next[idx].Occupants = []string{}
	next[idx].Status = model.RoomMaintenance
	if err := a.saveLocked(ctx, map[string]any{store.KeyRooms: next}); err != nil {
		return nil, err
	}
	a.rooms = next
	changed = true
	return evicted, nil
}

// ClearMaintenance returns a room to service, vacant.
func (a *Allocator) ClearMaintenance(ctx context.Context, roomID string) (model.Room, error) {
	a.mu.Lock()
	changed := false
	defer a.unlockAndPublish(&changed)

	idx := a.roomIndexLocked(roomID)
	if idx < 0 {
		return model.Room{}, apperr.NotFound(apperr.CodeRoomNotFound, "room %s not found", roomID)
	}
	if a.rooms[idx].Status != model.RoomMaintenance {
		return model.Room{}, apperr.InvalidState(apperr.CodeRoomNotInMaintenance, "room %s is not under maintenance", roomID)
	}

	next := cloneRooms(a.rooms)
	next[idx].Status = DeriveStatus(0, next[idx].Capacity)
	if err := a.saveLocked(ctx, map[string]any{store.KeyRooms: next}); err != nil {
		return model.Room{}, err
	}
	a.rooms = next
	changed = true
	return next[idx], nil
}

// Room returns a copy of the room.
func (a *Allocator) Room(roomID string) (model.Room, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	idx := a.roomIndexLocked(roomID)
	if idx < 0 {
		return model.Room{}, apperr.NotFound(apperr.CodeRoomNotFound, "room %s not found", roomID)
	}
	return cloneRooms(a.rooms[idx : idx+1])[0], nil
}

// RoomOf returns the room subjectID occupies.
func (a *Allocator) RoomOf(subjectID string) (model.Room, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	idx := roomIndexOf(a.rooms, subjectID)
	if idx < 0 {
		return model.Room{}, false
	}
	return cloneRooms(a.rooms[idx : idx+1])[0], true
}

// Rooms lists the rooms of a block ordered by floor and sequence.
// An empty blockID lists every room.
func (a *Allocator) Rooms(blockID string) []model.Room {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []model.Room
	for _, r := range a.rooms {
		if blockID == "" || r.BlockID == blockID {
			out = append(out, r)
		}
	}
	out = cloneRooms(out)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BlockID != out[j].BlockID {
			return out[i].BlockID < out[j].BlockID
		}
		if out[i].Floor != out[j].Floor {
			return out[i].Floor < out[j].Floor
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

// Blocks summarizes every block in configured order.
func (a *Allocator) Blocks() []BlockSummary {
	a.mu.RLock()
	defer a.mu.RUnlock()

	byBlock := make(map[string]*BlockSummary, len(a.blocks))
	out := make([]BlockSummary, len(a.blocks))
	for i, b := range a.blocks {
		out[i] = BlockSummary{Block: b}
		byBlock[b.ID] = &out[i]
	}
	for _, r := range a.rooms {
		s, ok := byBlock[r.BlockID]
		if !ok {
			continue
		}
		s.TotalRooms++
		s.Capacity += r.Capacity
		s.Occupied += len(r.Occupants)
		if r.Status == model.RoomMaintenance {
			s.Maintenance++
		}
		if r.Floor > s.MaxFloor {
			s.MaxFloor = r.Floor
		}
	}
	return out
}

func (a *Allocator) roomIndexLocked(roomID string) int {
	for i, r := range a.rooms {
		if r.ID == roomID {
			return i
		}
	}
	return -1
}

func roomIndexOf(rooms []model.Room, subjectID string) int {
	for i, r := range rooms {
		if r.HasOccupant(subjectID) {
			return i
		}
	}
	return -1
}

func removeOccupant(r *model.Room, subjectID string) {
	kept := make([]string, 0, len(r.Occupants))
	for _, o := range r.Occupants {
		if o != subjectID {
			kept = append(kept, o)
		}
	}
	r.Occupants = kept
	if r.Status != model.RoomMaintenance {
		r.Status = DeriveStatus(len(kept), r.Capacity)
	}
}
