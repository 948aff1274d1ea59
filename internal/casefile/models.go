package casefile

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested case does not exist.
var ErrNotFound = errors.New("case not found")

// Case is one fraud-alert case. SecurityIdentifier is the unique key used
// for updates; UserName is a display/search field and is not assumed unique.
type Case struct {
	ID                 int64
	UserName           string
	SecurityIdentifier string
	SecurityQuestion   string
	SecurityAnswer     string
	CardEnding         string
	Status             string
	TransactionAmount  string
	TransactionName    string
	TransactionTime    string
	TransactionCategory string
	TransactionSource  string
	TransactionLocation string
	Outcome            string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Case statuses.
const (
	StatusPendingReview = "pending_review"
	StatusResolved      = "resolved"
	StatusEscalated     = "escalated"
)
