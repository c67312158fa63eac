package server

import (
	"crossbook/internal/book"
	"crossbook/internal/venue"
)

// BookMessage is the canonical per-venue book event sent to subscribers.
type BookMessage struct {
	Type      string                 `json:"type"`
	Venue     book.VenueID           `json:"venueId"`
	Outcome   string                 `json:"outcome"`
	Bids      []book.NormalizedLevel `json:"bids"`
	Asks      []book.NormalizedLevel `json:"asks"`
	Timestamp int64                  `json:"timestamp"`
}

// StatusMessage is the canonical connectivity event sent to subscribers.
type StatusMessage struct {
	Type   string       `json:"type"`
	Venue  book.VenueID `json:"venueId"`
	Status venue.Status `json:"status"`
}

// AggregateMessage carries the merged cross-venue book.
type AggregateMessage struct {
	Type string               `json:"type"`
	Book *book.AggregatedBook `json:"book"`
}

func bookMessage(nb *book.NormalizedBook) *BookMessage {
	return &BookMessage{
		Type:      "book",
		Venue:     nb.Venue,
		Outcome:   nb.Outcome,
		Bids:      nb.Bids,
		Asks:      nb.Asks,
		Timestamp: nb.Timestamp.UnixMilli(),
	}
}

func statusMessage(v book.VenueID, s venue.Status) *StatusMessage {
	return &StatusMessage{Type: "status", Venue: v, Status: s}
}

func aggregateMessage(agg *book.AggregatedBook) *AggregateMessage {
	return &AggregateMessage{Type: "aggregate", Book: agg}
}
