package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusActive    BookingStatus = "ACTIVE"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Blocking reports whether a booking in this status occupies its date range
// in the interval index.
func (s BookingStatus) Blocking() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusActive:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed out of this status.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// DateRange is a half-open time interval [Start, End).
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether the range is non-empty.
func (r DateRange) Valid() bool {
	return r.Start.Before(r.End)
}

// Overlaps reports whether two ranges intersect under half-open semantics:
// a range ending exactly when another begins does not overlap.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Contains reports whether r fully covers o.
func (r DateRange) Contains(o DateRange) bool {
	return !r.Start.After(o.Start) && !r.End.Before(o.End)
}

// Clip returns the intersection of r with [from, to) and whether it is non-empty.
func (r DateRange) Clip(from, to time.Time) (DateRange, bool) {
	c := r
	if c.Start.Before(from) {
		c.Start = from
	}
	if c.End.After(to) {
		c.End = to
	}
	if !c.Valid() {
		return DateRange{}, false
	}
	return c, true
}

type Booking struct {
	ID        string        `json:"id"`
	VehicleID string        `json:"vehicle_id"`
	RenterID  string        `json:"renter_id"`
	// OwnerID is snapshotted from the vehicle at reservation time so report
	// counterparty checks never depend on later ownership changes.
	OwnerID   string        `json:"owner_id"`
	Range     DateRange     `json:"range"`
	Status    BookingStatus `json:"status"`
	CreatedOn time.Time     `json:"created_on"`
	UpdatedOn time.Time     `json:"updated_on"`
}

// Party reports whether userID is the renter or the owner of the booking.
func (b *Booking) Party(userID string) bool {
	return userID == b.RenterID || userID == b.OwnerID
}

// Counterparty returns the booking participant opposite to userID.
func (b *Booking) Counterparty(userID string) string {
	if userID == b.RenterID {
		return b.OwnerID
	}
	return b.RenterID
}
