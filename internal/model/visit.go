package model

import (
	"fmt"
	"time"
)

// VisitRecord is a user's record of going to a venue. It is the only entity
// that survives restarts, so CandidateID may point at a venue that is no
// longer in the current discovery set.
type VisitRecord struct {
	ID                string     `json:"id"`
	CandidateID       string     `json:"candidate_id"`
	CandidateName     string     `json:"candidate_name,omitempty"`
	VisitedAt         time.Time  `json:"visited_at"`
	UserRating        int        `json:"user_rating"` // 0 = unrated, else 1-5
	Notes             string     `json:"notes"`
	DiningTypeAtVisit DiningType `json:"dining_type_at_visit"`
}

// MaxUserRating is the highest star rating a visit can carry.
const MaxUserRating = 5

// Rated reports whether the user has rated the visit.
func (v VisitRecord) Rated() bool { return v.UserRating > 0 }

// RelativeLabel renders VisitedAt relative to now: "Today", "Yesterday",
// "N days ago" inside a week, else a short calendar date.
func (v VisitRecord) RelativeLabel(now time.Time) string {
	diff := now.Sub(v.VisitedAt)
	if diff < 0 {
		diff = -diff
	}
	days := int(diff / (24 * time.Hour))

	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case v.VisitedAt.Year() != now.Year():
		return v.VisitedAt.Format("Jan 2, 2006")
	default:
		return v.VisitedAt.Format("Jan 2")
	}
}

// History is the durable slice of state: the visit log, most recent first.
type History struct {
	Version int           `json:"version"`
	Visits  []VisitRecord `json:"visits"`
}

// HistoryVersion is the current persisted History schema version.
const HistoryVersion = 1
