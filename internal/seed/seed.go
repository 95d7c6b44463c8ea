package seed

import (
	"context"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"campus-facility-backend/internal/facility"
	"campus-facility-backend/internal/model"
	"campus-facility-backend/internal/parse"
)

// DefaultRoomCapacity applies to generated rooms and rooms without a capacity.
const DefaultRoomCapacity = 2

// Fixture is the deterministic starting data set.
type Fixture struct {
	Subjects []SubjectFixture `yaml:"subjects"`
	Blocks   []BlockFixture   `yaml:"blocks"`
	Items    []model.Item     `yaml:"items"`
}

// SubjectFixture is one subject to register.
type SubjectFixture struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

// BlockFixture describes a block. When Rooms is empty, Floors x RoomsPerFloor
// rooms of RoomCapacity are generated.
type BlockFixture struct {
	model.Block  `yaml:",inline"`
	RoomCapacity int           `yaml:"room_capacity"`
	Rooms        []RoomFixture `yaml:"rooms"`
}

// RoomFixture is an explicitly listed room.
type RoomFixture struct {
	Number      string   `yaml:"number"`
	Capacity    int      `yaml:"capacity"`
	Maintenance bool     `yaml:"maintenance"`
	Occupants   []string `yaml:"occupants"`
}

// Load reads a fixture from a YAML file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML fixture.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode seed fixture: %w", err)
	}
	return &f, nil
}

// Rooms expands the block definitions into rooms.
func (f *Fixture) Rooms() ([]model.Block, []model.Room, error) {
	blocks := make([]model.Block, 0, len(f.Blocks))
	var rooms []model.Room

	for _, b := range f.Blocks {
		if b.ID == "" {
			return nil, nil, fmt.Errorf("block %q has no id", b.Name)
		}
		capacity := b.RoomCapacity
		if capacity <= 0 {
			capacity = DefaultRoomCapacity
		}

		if len(b.Rooms) == 0 {
			for floor := 1; floor <= b.Floors; floor++ {
				for seq := 1; seq <= b.RoomsPerFloor; seq++ {
					rooms = append(rooms, model.Room{
						ID:        parse.RoomID(b.ID, floor, seq),
						BlockID:   b.ID,
						Number:    parse.RoomNumber(floor, seq),
						Floor:     floor,
						Seq:       seq,
						Capacity:  capacity,
						Occupants: []string{},
					})
				}
			}
		}

		maxFloor := b.Floors
		for _, rf := range b.Rooms {
			parsed, err := parse.ParseRoom(rf.Number)
			if err != nil {
				return nil, nil, fmt.Errorf("block %s: %w", b.ID, err)
			}
			c := rf.Capacity
			if c <= 0 {
				c = capacity
			}
			r := model.Room{
				ID:        parse.RoomID(b.ID, parsed.Floor, parsed.Seq),
				BlockID:   b.ID,
				Number:    parsed.Number,
				Floor:     parsed.Floor,
				Seq:       parsed.Seq,
				Capacity:  c,
				Occupants: append([]string{}, rf.Occupants...),
			}
			if rf.Maintenance {
				r.Status = model.RoomMaintenance
			}
			if parsed.Floor > maxFloor {
				maxFloor = parsed.Floor
			}
			rooms = append(rooms, r)
		}

		block := b.Block
		block.Floors = maxFloor
		blocks = append(blocks, block)
	}
	return blocks, rooms, nil
}

// Apply registers the fixture's subjects and installs its inventory. Unless
// force is set, a store that already holds subjects or inventory is left alone.
func Apply(ctx context.Context, svc *facility.Service, f *Fixture, force bool) (bool, error) {
	if !force && (svc.Subjects().Len() > 0 || !svc.Allocator().Empty()) {
		log.Println("Store already holds data; skipping seed.")
		return false, nil
	}

	blocks, rooms, err := f.Rooms()
	if err != nil {
		return false, err
	}

	for _, s := range f.Subjects {
		sub := model.Subject{ID: s.ID, Name: s.Name, Email: s.Email, Role: s.Role}
		if _, err := svc.RegisterSubject(ctx, sub, "seed"); err != nil {
			return false, fmt.Errorf("seed subject %s: %w", s.ID, err)
		}
	}
	for _, r := range rooms {
		for _, o := range r.Occupants {
			if !svc.Subjects().Exists(o) {
				return false, fmt.Errorf("room %s: occupant %s is not a known subject", r.ID, o)
			}
		}
	}

	if err := svc.Allocator().ReplaceInventory(ctx, blocks, rooms, f.Items); err != nil {
		return false, fmt.Errorf("seed inventory: %w", err)
	}
	log.Printf("Seeded %d subjects, %d blocks, %d rooms, %d items.", len(f.Subjects), len(blocks), len(rooms), len(f.Items))
	return true, nil
}
