package provider

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provider is the supply side of a reservation: the practitioner whose
// calendar the booking engine manages. Availability itself lives inside the
// engine; this record carries identity and specialty for lookups.
type Provider struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	FirstName string `gorm:"column:first_name;type:varchar(100);not null"`
	LastName  string `gorm:"column:last_name;type:varchar(100);not null"`
	Specialty string `gorm:"column:specialty;type:varchar(100);not null;index"`

	Email string `gorm:"column:email;type:varchar(255);index"`

	IsActive bool `gorm:"column:is_active;default:true;index"`
}

func (Provider) TableName() string {
	return "clinical.providers"
}

func (p *Provider) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type CreateProviderCommand struct {
	FirstName string
	LastName  string
	Specialty string
	Email     string
}
