package domain

import (
	"regexp"
	"strconv"
	"time"
)

// EntryType distinguishes movies from TV shows.
type EntryType string

const (
	TypeMovie  EntryType = "MOVIE"
	TypeTVShow EntryType = "TV_SHOW"
)

// Status is the moderation state of an entry.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Valid reports whether s is one of the known moderation states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Entry is a catalog record for a movie or TV show.
type Entry struct {
	ID          int64
	Title       string
	Type        EntryType
	Director    *string
	Budget      *string
	Location    *string
	Duration    *string
	YearTime    *string
	Year        *int
	Description *string
	PosterURL   *string
	ThumbURL    *string
	CreatedByID int64
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Approved is derived from Status; it is never stored.
func (e Entry) Approved() bool {
	return e.Status == StatusApproved
}

// Deleted reports whether the entry has been soft-deleted.
func (e Entry) Deleted() bool {
	return e.DeletedAt != nil
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// ExtractYear returns the first run of four digits in yearTime, if any.
func ExtractYear(yearTime *string) *int {
	if yearTime == nil {
		return nil
	}
	match := yearPattern.FindString(*yearTime)
	if match == "" {
		return nil
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}
	return &year
}
