package eco

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
// Generated ids must sort in creation order.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces time-ordered (version 7) UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.Must(uuid.NewV7()).String() }
