package reconcile

import (
	"context"
	"time"

	"classbridge/models"
)

// BookingFetcher lists every booking currently known to the scheduling provider.
type BookingFetcher interface {
	FetchBookings(ctx context.Context) ([]models.Booking, error)
}

// Detector compares fresh provider listings against the snapshot cache.
type Detector struct {
	cache *SnapshotCache
	now   func() time.Time
}

func NewDetector(cache *SnapshotCache) *Detector {
	return &Detector{cache: cache, now: time.Now}
}

// Reconcile fetches the booking list and detects transitions. A failed fetch
// leaves the cache exactly as it was.
func (d *Detector) Reconcile(ctx context.Context, fetcher BookingFetcher) ([]models.BookingChange, error) {
	bookings, err := fetcher.FetchBookings(ctx)
	if err != nil {
		return nil, newError(CodeFetchFailure, "failed to fetch bookings", err)
	}
	return d.Detect(bookings), nil
}

// Detect updates the cache to the fetched truth and returns status transitions
// in fetched order. First sightings only establish a baseline, and bookings
// missing from the fetch are left untouched.
func (d *Detector) Detect(fetched []models.Booking) []models.BookingChange {
	var changes []models.BookingChange
	detectedAt := d.now()

	for _, b := range fetched {
		if cached, ok := d.cache.Get(b.UID); ok {
			// NewBookingChange refuses same-status pairs.
			if change, err := models.NewBookingChange(b.UID, cached.Status, b.Status, detectedAt); err == nil {
				changes = append(changes, change)
			}
		}
		d.cache.Upsert(b)
	}
	return changes
}
