// Package store holds the latest normalized book per venue and recomputes
// the cross-venue aggregate on every update.
package store

import (
	"log/slog"
	"sort"
	"sync"

	"crossbook/internal/book"
)

// Store serializes "update venue X's book, then reaggregate" so readers never
// observe a half-updated pair. Writers are per-venue connectors; updates for
// different venues may arrive concurrently.
type Store struct {
	mu          sync.Mutex
	books       map[book.VenueID]*book.NormalizedBook
	agg         *book.AggregatedBook
	onAggregate func(*book.AggregatedBook)
	log         *slog.Logger
}

func New(log *slog.Logger) *Store {
	return &Store{
		books: make(map[book.VenueID]*book.NormalizedBook),
		agg:   book.Aggregate(nil),
		log:   log.With("component", "store"),
	}
}

// OnAggregate registers the listener invoked with every fresh aggregate.
// Calls are serialized in update order. Register before feeds start.
func (s *Store) OnAggregate(fn func(*book.AggregatedBook)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAggregate = fn
}

// UpdateBook replaces a venue's book and reaggregates.
func (s *Store) UpdateBook(nb *book.NormalizedBook) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.books[nb.Venue] = nb
	s.agg = book.Aggregate(s.orderedBooksLocked())
	s.log.Debug("reaggregated",
		"venue", nb.Venue,
		"bids", len(s.agg.Bids),
		"asks", len(s.agg.Asks),
	)
	if s.onAggregate != nil {
		s.onAggregate(s.agg)
	}
}

// Aggregated returns the latest aggregate. The returned book is never
// mutated afterwards and is safe to share.
func (s *Store) Aggregated() *book.AggregatedBook {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agg
}

// VenueBooks returns the latest book per venue in stable venue order.
func (s *Store) VenueBooks() []*book.NormalizedBook {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderedBooksLocked()
}

func (s *Store) orderedBooksLocked() []*book.NormalizedBook {
	venues := make([]book.VenueID, 0, len(s.books))
	for v := range s.books {
		venues = append(venues, v)
	}
	sort.Slice(venues, func(i, j int) bool { return venues[i] < venues[j] })

	books := make([]*book.NormalizedBook, 0, len(venues))
	for _, v := range venues {
		books = append(books, s.books[v])
	}
	return books
}
