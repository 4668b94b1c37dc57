package model

import (
	"errors"
	"time"
)

// BlockedSlot is an owner-declared unavailable interval [Start, End).
type BlockedSlot struct {
	ID     int64
	ShopID int64
	Start  time.Time
	End    time.Time
	Reason string
}

func (b BlockedSlot) Validate() error {
	if b.Start.IsZero() || b.End.IsZero() {
		return errors.New("start_time and end_time are required")
	}
	if !b.Start.Before(b.End) {
		return errors.New("start_time must be before end_time")
	}
	return nil
}
