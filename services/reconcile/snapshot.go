package reconcile

import "classbridge/models"

// SnapshotCache holds the last observed state of each booking.
// It is not safe for concurrent use; the Poller is its only owner.
type SnapshotCache struct {
	bookings map[string]models.Booking
}

func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{bookings: make(map[string]models.Booking)}
}

func (c *SnapshotCache) Get(uid string) (models.Booking, bool) {
	b, ok := c.bookings[uid]
	return b, ok
}

func (c *SnapshotCache) Upsert(b models.Booking) {
	c.bookings[b.UID] = b
}

func (c *SnapshotCache) Len() int {
	return len(c.bookings)
}
