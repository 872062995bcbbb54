package record

import (
	"time"

	"github.com/google/uuid"
)

// EntryType distinguishes the two kinds of clinical entry a provider can
// append to a patient's record.
type EntryType string

const (
	TypeDiagnosis EntryType = "diagnosis"
	TypeTreatment EntryType = "treatment"
)

func (t EntryType) IsValid() bool {
	return t == TypeDiagnosis || t == TypeTreatment
}

// Entry is a single append-only line in a patient's medical record. Entries
// are never edited or deleted; corrections go through addenda.
type Entry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`

	PatientID     uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	ProviderID    uuid.UUID `gorm:"column:provider_id;type:uuid;not null;index"`
	ReservationID *uint64   `gorm:"column:reservation_id;index"`

	Type    EntryType `gorm:"column:type;type:varchar(20);not null;index"`
	Content string    `gorm:"column:content;type:text;not null"`

	// Addenda: corrections appended without modifying the original entry.
	Addenda []Addendum `gorm:"foreignKey:EntryID"`
}

func (Entry) TableName() string {
	return "clinical.record_entries"
}

// Addendum is an append-only correction to an existing record entry.
type Addendum struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	EntryID   uuid.UUID `gorm:"column:entry_id;type:uuid;not null;index"`
	Content   string    `gorm:"column:content;type:text;not null"`
	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Addendum) TableName() string {
	return "clinical.record_addenda"
}

type AppendEntryCommand struct {
	PatientID     uuid.UUID
	ProviderID    uuid.UUID
	ReservationID *uint64
	Type          EntryType
	Content       string
}

type AddAddendumCommand struct {
	EntryID   uuid.UUID
	Content   string
	CreatedBy uuid.UUID
}
