// Package venue drives the feed lifecycle for a single prediction market
// venue: instrument discovery, realtime connection, subscription, heartbeat,
// backoff reconnection and scheduled rotation. Vendor specifics live behind
// the Driver interface, implemented once per venue.
package venue

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"crossbook/internal/book"
	"crossbook/internal/venue/orderbook"
)

// Status is the externally visible connectivity state of a venue feed.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// Callbacks receive normalized books and connectivity transitions. They are
// invoked from the connector's internal goroutines and must not call back
// into the connector.
type Callbacks struct {
	OnBook   func(*book.NormalizedBook)
	OnStatus func(book.VenueID, Status)
}

// Instrument is the venue-specific identity of the market currently tracked.
type Instrument struct {
	ID     string
	Expiry time.Time // zero when the venue doesn't report one
}

// Driver adapts one venue's discovery API and wire protocol.
type Driver interface {
	Venue() book.VenueID

	// Discover finds the instrument to subscribe to. Returning (nil, nil)
	// means no instrument is currently active, which is retried on a fixed
	// cadence rather than treated as an error.
	Discover(ctx context.Context) (*Instrument, error)

	// Dial opens the venue's realtime socket.
	Dial(ctx context.Context) (*websocket.Conn, error)

	// Subscribe sends the subscription message for the instrument on a
	// freshly opened socket.
	Subscribe(conn *websocket.Conn, inst *Instrument) error

	// Keepalive reports the application-level heartbeat frame the venue
	// expects while connected. ok is false when none is required.
	Keepalive() (payload []byte, interval time.Duration, ok bool)

	// Handle applies one raw frame to the working book, in "yes" terms.
	// It returns true when the book changed. Frames for other instruments
	// and unparsable payloads return false.
	Handle(raw []byte, inst *Instrument, ob *orderbook.Book) bool
}

// Config holds the lifecycle timing knobs shared by all venues.
type Config struct {
	DiscoveryRetry    time.Duration // after a failed discovery call
	NoInstrumentRetry time.Duration // when discovery finds nothing active
	ReconnectBase     time.Duration
	ReconnectMax      time.Duration
	RotationGrace     time.Duration // added past the instrument's expiry
	RotationMin       time.Duration
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{
		DiscoveryRetry:    10 * time.Second,
		NoInstrumentRetry: 15 * time.Second,
		ReconnectBase:     time.Second,
		ReconnectMax:      30 * time.Second,
		RotationGrace:     5 * time.Second,
		RotationMin:       5 * time.Second,
	}
}
