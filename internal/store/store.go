package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campus-facility-backend/internal/model"
)

// Keys of the aggregates the engine persists.
const (
	KeySubjects   = "campus/subjects"
	KeyActions    = "campus/actions"
	KeySessions   = "campus/sessions"
	KeyViolations = "campus/violations"
	KeyBlocks     = "campus/blocks"
	KeyRooms      = "campus/rooms"
	KeyItems      = "campus/items"
	KeyLoans      = "campus/loans"

	KeyComplaints          = "campus/complaints"
	KeyDisciplinaryActions = "campus/disciplinary_actions"
	KeyPersonalItems       = "campus/personal_items"
)

// Entry is one key/value pair of a batch write.
type Entry struct {
	Key   string
	Value []byte
}

// Store is the persistence port: serialized aggregates keyed by namespace.
type Store interface {
	// Load returns nil, nil when the key has never been saved.
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	// SaveBatch writes all entries or none of them.
	SaveBatch(ctx context.Context, entries []Entry) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Load(ctx context.Context, key string) ([]byte, error) {
	var entry model.KVEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", key, err)
	}
	return []byte(entry.Value), nil
}

func (s *gormStore) Save(ctx context.Context, key string, value []byte) error {
	return s.SaveBatch(ctx, []Entry{{Key: key, Value: value}})
}

// SaveBatch upserts every entry inside one transaction.
func (s *gormStore) SaveBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]model.KVEntry, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, model.KVEntry{Key: e.Key, Value: datatypes.JSON(e.Value), UpdatedAt: now})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&rows).Error; err != nil {
			return fmt.Errorf("batch upsert of %d entries failed: %w", len(rows), err)
		}
		return nil
	})
}

// LoadJSON decodes the aggregate at key into v. found is false when the key is absent.
func LoadJSON(ctx context.Context, s Store, key string, v any) (found bool, err error) {
	raw, err := s.Load(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return true, nil
}

// JSONEntry encodes v as a batch entry.
func JSONEntry(key string, v any) (Entry, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to encode %q: %w", key, err)
	}
	return Entry{Key: key, Value: b}, nil
}

// SaveJSON encodes and saves v under key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	e, err := JSONEntry(key, v)
	if err != nil {
		return err
	}
	return s.Save(ctx, e.Key, e.Value)
}

// Change is a prepared mutation of one aggregate: the entries to write and
// the in-memory swap to run once they are saved.
type Change struct {
	Entries []Entry
	Apply   func()
}

// Commit saves the entries of every change in one batch and then applies the
// changes in order. Nothing is applied when the batch fails.
func Commit(ctx context.Context, s Store, changes ...Change) error {
	var entries []Entry
	for _, c := range changes {
		entries = append(entries, c.Entries...)
	}
	if err := s.SaveBatch(ctx, entries); err != nil {
		return err
	}
	for _, c := range changes {
		if c.Apply != nil {
			c.Apply()
		}
	}
	return nil
}
