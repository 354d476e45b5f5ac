// Package interval maintains the per-vehicle index of currently-blocking date
// ranges. The index is the authority concurrency checks run against; callers
// mutating it for a vehicle must hold that vehicle's reservation lock so the
// overlap check and the insert execute as one atomic unit.
package interval

import (
	"sort"
	"sync"
	"time"

	"wheelshare-backend/internal/domain"
)

type Entry struct {
	BookingID string
	Range     domain.DateRange
}

// Index holds blocking ranges per vehicle, each slice ordered by start time.
// An entry exists iff a booking with that vehicle/range is in a blocking
// status (PENDING, CONFIRMED or ACTIVE).
type Index struct {
	mu        sync.RWMutex
	byVehicle map[string][]Entry
}

func NewIndex() *Index {
	return &Index{byVehicle: make(map[string][]Entry)}
}

// Load seeds the index from persisted bookings, typically at startup.
func (ix *Index) Load(entries map[string][]Entry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for vehicleID, es := range entries {
		sorted := make([]Entry, len(es))
		copy(sorted, es)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Range.Start.Before(sorted[j].Range.Start)
		})
		ix.byVehicle[vehicleID] = sorted
	}
}

// Overlaps reports whether any stored range for the vehicle intersects r
// under half-open semantics. Adjacent ranges do not overlap.
func (ix *Index) Overlaps(vehicleID string, r domain.DateRange) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	for _, e := range ix.byVehicle[vehicleID] {
		if e.Range.Overlaps(r) {
			return true
		}
	}
	return false
}

// Conflicts returns the stored ranges intersecting r, in start order. Only
// ranges are returned; booking identities stay private to the index.
func (ix *Index) Conflicts(vehicleID string, r domain.DateRange) []domain.DateRange {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []domain.DateRange
	for _, e := range ix.byVehicle[vehicleID] {
		if e.Range.Overlaps(r) {
			out = append(out, e.Range)
		}
	}
	return out
}

// Insert adds a blocking range for the vehicle. The caller must have verified
// absence of overlap under the vehicle's reservation lock; Insert itself does
// not re-check.
func (ix *Index) Insert(vehicleID, bookingID string, r domain.DateRange) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	es := ix.byVehicle[vehicleID]
	i := sort.Search(len(es), func(i int) bool {
		return !es[i].Range.Start.Before(r.Start)
	})
	es = append(es, Entry{})
	copy(es[i+1:], es[i:])
	es[i] = Entry{BookingID: bookingID, Range: r}
	ix.byVehicle[vehicleID] = es
}

// Remove drops the range associated with bookingID, returning whether an
// entry was found. Called on cancellation and completion.
func (ix *Index) Remove(vehicleID, bookingID string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	es := ix.byVehicle[vehicleID]
	for i, e := range es {
		if e.BookingID == bookingID {
			es = append(es[:i], es[i+1:]...)
			if len(es) == 0 {
				delete(ix.byVehicle, vehicleID)
			} else {
				ix.byVehicle[vehicleID] = es
			}
			return true
		}
	}
	return false
}

// BusyRanges returns the blocking ranges intersecting [from, to), clipped to
// the window and ordered by start. Reads do not take the reservation lock and
// may trail an in-flight mutation by at most one write.
func (ix *Index) BusyRanges(vehicleID string, from, to time.Time) []domain.DateRange {
	window := domain.DateRange{Start: from, End: to}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []domain.DateRange
	for _, e := range ix.byVehicle[vehicleID] {
		if clipped, ok := e.Range.Clip(window.Start, window.End); ok {
			out = append(out, clipped)
		}
	}
	return out
}
