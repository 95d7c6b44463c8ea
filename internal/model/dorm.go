package model

// RoomStatus is derived from occupancy, except for the maintenance override.
type RoomStatus string

const (
	RoomVacant      RoomStatus = "vacant"
	RoomPartial     RoomStatus = "partial"
	RoomFull        RoomStatus = "full"
	RoomMaintenance RoomStatus = "maintenance"
)

// Block represents a dormitory building.
type Block struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Floors        int    `json:"floors" yaml:"floors"`
	RoomsPerFloor int    `json:"rooms_per_floor" yaml:"rooms_per_floor"`
	Manager       string `json:"manager,omitempty" yaml:"manager"`
}

// Room is a capacity-bounded allocation target.
type Room struct {
	ID        string     `json:"id"`
	BlockID   string     `json:"block_id"`
	Number    string     `json:"number"`
	Floor     int        `json:"floor"`
	Seq       int        `json:"seq"`
	Capacity  int        `json:"capacity"`
	Occupants []string   `json:"occupants"`
	Status    RoomStatus `json:"status"`
}

// HasOccupant reports whether subjectID is housed in the room.
func (r Room) HasOccupant(subjectID string) bool {
	for _, o := range r.Occupants {
		if o == subjectID {
			return true
		}
	}
	return false
}
