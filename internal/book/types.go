// Package book holds the canonical order-book shapes shared across venues and
// the pure merge, inversion and summary computations over them.
package book

import "time"

// VenueID identifies an independent market data source.
type VenueID string

const (
	VenuePolymarket VenueID = "polymarket"
	VenueDFlow      VenueID = "dflow"
)

// Tick is the minimum price increment used for aggregation bucketing.
const Tick = 0.01

// NormalizedLevel is available quantity at a price, expressed in "yes" terms.
type NormalizedLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// NormalizedBook is a single venue's book for the currently subscribed
// instrument. Bids are strictly descending by price, asks strictly ascending.
// Owned by the venue's connector; replaced wholesale on snapshot.
type NormalizedBook struct {
	Venue     VenueID           `json:"venueId"`
	Outcome   string            `json:"outcome"`
	Bids      []NormalizedLevel `json:"bids"`
	Asks      []NormalizedLevel `json:"asks"`
	Timestamp time.Time         `json:"timestamp"`
}

// AggregatedLevel is one tick-rounded price bucket across venues.
// TotalSize always equals the sum of the venue contributions.
type AggregatedLevel struct {
	Price          float64             `json:"price"`
	TotalSize      float64             `json:"totalSize"`
	CumulativeSize float64             `json:"cumulativeSize"`
	Venues         map[VenueID]float64 `json:"venues"`
}

// AggregatedBook is the merged cross-venue book. Built fresh on every
// aggregation pass and never mutated afterwards. BestBid/BestAsk are nil when
// the corresponding side is empty.
type AggregatedBook struct {
	Bids     []AggregatedLevel `json:"bids"`
	Asks     []AggregatedLevel `json:"asks"`
	BestBid  *float64          `json:"bestBid"`
	BestAsk  *float64          `json:"bestAsk"`
	Spread   float64           `json:"spread"`
	MidPrice float64           `json:"midPrice"`
}
