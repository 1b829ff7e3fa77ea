package model

import (
	"time"

	"github.com/google/uuid"
)

// Analysis is the analyzer's verdict for one notice.
type Analysis struct {
	Category   string   `json:"category"`
	Importance string   `json:"importance"`
	Tags       []string `json:"tags"`
}

type Notice struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Title          string     `db:"title" json:"title"`
	Content        string     `db:"content" json:"content"`
	IsEvent        bool       `db:"is_event" json:"is_event"`
	Category       string     `db:"category" json:"category"`
	Importance     string     `db:"importance" json:"importance"`
	Tags           []string   `db:"tags" json:"tags"`
	CreatedBy      uuid.UUID  `db:"created_by" json:"created_by"`
	CreatedByEmail string     `db:"created_by_email" json:"created_by_email"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	Timestamp      *time.Time `db:"timestamp" json:"timestamp"`
}

// NoticeDraft is everything the author supplies. The author identity and the
// timestamps are filled in by the store.
type NoticeDraft struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	IsEvent    bool     `json:"is_event"`
	Category   string   `json:"category"`
	Importance string   `json:"importance"`
	Tags       []string `json:"tags"`
}

func (d NoticeDraft) Analysis() Analysis {
	return Analysis{Category: d.Category, Importance: d.Importance, Tags: d.Tags}
}
