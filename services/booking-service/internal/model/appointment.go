package model

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by stores when a shop, appointment or blocked slot does not exist.
var ErrNotFound = errors.New("not found")

const (
	StatusConfirmed       = "confirmed"
	StatusCancelled       = "cancelled"
	StatusCancelledByShop = "cancelled_by_shop"
	StatusCompleted       = "completed"
)

type Appointment struct {
	ID            int64
	ShopID        int64
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	Time          time.Time
	Status        string
	Token         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsCancelled reports whether status is one of the cancelled variants.
func IsCancelled(status string) bool {
	return strings.HasPrefix(status, StatusCancelled)
}

func ValidStatus(status string) bool {
	switch status {
	case StatusConfirmed, StatusCancelled, StatusCancelledByShop, StatusCompleted:
		return true
	}
	return false
}
