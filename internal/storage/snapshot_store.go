package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/careslot/careslot/internal/booking"
	"gorm.io/gorm"
)

var ErrNoSnapshot = errors.New("no engine snapshot stored")

// SnapshotRecord is one persisted engine snapshot. The engine state is kept
// as a JSON document rather than normalized rows: snapshots are written
// whole and read whole, never queried into.
type SnapshotRecord struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	State     []byte    `gorm:"column:state;type:jsonb;not null"`
}

func (SnapshotRecord) TableName() string {
	return "booking.engine_snapshots"
}

type SnapshotStore struct {
	db *gorm.DB
}

func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Save persists the snapshot as a new row and prunes rows older than the
// newest few, so a corrupted write never destroys the previous good state.
func (s *SnapshotStore) Save(ctx context.Context, snap booking.Snapshot) error {
	state, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&SnapshotRecord{State: state}).Error; err != nil {
			return fmt.Errorf("storing snapshot: %w", err)
		}
		return tx.Exec(`DELETE FROM booking.engine_snapshots
			WHERE id NOT IN (SELECT id FROM booking.engine_snapshots ORDER BY id DESC LIMIT 5)`).Error
	})
}

// LoadLatest returns the most recent snapshot, or ErrNoSnapshot when none
// has ever been saved.
func (s *SnapshotStore) LoadLatest(ctx context.Context) (booking.Snapshot, error) {
	var rec SnapshotRecord
	err := s.db.WithContext(ctx).Order("id DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return booking.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return booking.Snapshot{}, fmt.Errorf("loading snapshot: %w", err)
	}

	var snap booking.Snapshot
	if err := json.Unmarshal(rec.State, &snap); err != nil {
		return booking.Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}
