package model

import (
	"time"

	"github.com/google/uuid"
)

// Constituency is one electoral district presented on the dashboard map.
type Constituency struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Code             string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`
	Name             string    `gorm:"type:varchar(128);not null" json:"name"`
	Region           string    `gorm:"type:varchar(128);index" json:"region"`
	RegisteredVoters int       `gorm:"not null;default:0" json:"registered_voters"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Constituency) TableName() string { return "constituencies" }

// Result is one party's outcome in a constituency for an election year.
// VoteShare is a percentage in [0, 100].
type Result struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ConstituencyCode string    `gorm:"type:varchar(32);not null;index:idx_results_lookup,priority:1" json:"constituency_code"`
	Year             int       `gorm:"not null;index:idx_results_lookup,priority:2" json:"year"`
	Party            string    `gorm:"type:varchar(64);not null" json:"party"`
	Candidate        string    `gorm:"type:varchar(128)" json:"candidate"`
	Votes            int       `gorm:"not null;default:0" json:"votes"`
	VoteShare        float64   `gorm:"not null;default:0" json:"vote_share"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Result) TableName() string { return "results" }

// Contact is a directory entry for a constituency office.
type Contact struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ConstituencyCode string    `gorm:"type:varchar(32);not null;index" json:"constituency_code"`
	Office           string    `gorm:"type:varchar(128);not null" json:"office"`
	Name             string    `gorm:"type:varchar(128);not null" json:"name"`
	Phone            string    `gorm:"type:varchar(32)" json:"phone"`
	Email            string    `gorm:"type:varchar(256)" json:"email"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Contact) TableName() string { return "contacts" }
