// Package orderbook tracks the working bid and ask levels for the currently
// subscribed instrument of one venue.
package orderbook

import (
	"fmt"

	"github.com/google/btree"

	"crossbook/internal/book"
	"crossbook/internal/price"
)

// Tolerance is the near-equality window for matching a diff to an existing
// level (an absolute price difference below 1e-4).
const Tolerance = price.Price(price.Scale / 10_000)

// Level is a raw price level as parsed from a venue message.
type Level struct {
	Price price.Price
	Size  price.Size
}

// lessAsc compares levels by price ascending (for asks: lowest first).
func lessAsc(a, b Level) bool {
	return a.Price < b.Price
}

// lessDesc compares levels by price descending (for bids: highest first).
func lessDesc(a, b Level) bool {
	return a.Price > b.Price
}

// Book maintains sorted bid and ask levels using btrees.
// Bids are sorted descending (highest price first).
// Asks are sorted ascending (lowest price first).
type Book struct {
	bids *btree.BTreeG[Level]
	asks *btree.BTreeG[Level]
}

// New creates a new empty working book.
func New() *Book {
	return &Book{
		bids: btree.NewG(32, lessDesc),
		asks: btree.NewG(32, lessAsc),
	}
}

// Replace discards a side and installs the given levels wholesale.
func (b *Book) Replace(side string, levels []Level) error {
	tree, err := b.getTree(side)
	if err != nil {
		return err
	}

	tree.Clear(false)
	for _, lvl := range levels {
		if lvl.Size <= 0 {
			continue
		}
		tree.ReplaceOrInsert(lvl)
	}
	return nil
}

// Apply upserts a single level from an incremental diff. The level to change
// is located by near-equality on price; size zero removes it.
func (b *Book) Apply(side string, p price.Price, size price.Size) error {
	tree, err := b.getTree(side)
	if err != nil {
		return err
	}

	matched, found := b.match(side, tree, p)
	if size <= 0 {
		if found {
			tree.Delete(Level{Price: matched})
		}
		return nil
	}

	if found && matched != p {
		tree.Delete(Level{Price: matched})
	}
	tree.ReplaceOrInsert(Level{Price: p, Size: size})
	return nil
}

// match finds an existing level whose price is within Tolerance of p. The
// scan walks the full window, so a level sitting exactly on the window edge
// does not shadow a closer one behind it.
func (b *Book) match(side string, tree *btree.BTreeG[Level], p price.Price) (price.Price, bool) {
	pivot := p - Tolerance
	if side == "bids" {
		// The bid tree orders descending, so iteration starts from the
		// highest candidate price.
		pivot = p + Tolerance
	}

	var matched price.Price
	found := false
	tree.AscendGreaterOrEqual(Level{Price: pivot}, func(lvl Level) bool {
		// Normalized so iteration order visits increasing diff.
		diff := lvl.Price - p
		if side == "bids" {
			diff = -diff
		}
		if diff >= Tolerance {
			return false
		}
		if diff > -Tolerance {
			matched = lvl.Price
			found = true
			return false
		}
		return true
	})
	return matched, found
}

// Clear empties both sides. Called on rotation and reconnect so the book is
// rebuilt from the next snapshot.
func (b *Book) Clear() {
	b.bids.Clear(false)
	b.asks.Clear(false)
}

// Levels returns a side converted to the canonical float representation, in
// book order (bids descending, asks ascending).
func (b *Book) Levels(side string) ([]book.NormalizedLevel, error) {
	tree, err := b.getTree(side)
	if err != nil {
		return nil, err
	}

	levels := make([]book.NormalizedLevel, 0, tree.Len())
	tree.Ascend(func(lvl Level) bool {
		levels = append(levels, book.NormalizedLevel{
			Price: lvl.Price.Float64(),
			Size:  lvl.Size.Float64(),
		})
		return true
	})
	return levels, nil
}

// Len returns the number of levels on a side.
func (b *Book) Len(side string) int {
	tree, _ := b.getTree(side)
	if tree == nil {
		return 0
	}
	return tree.Len()
}

func (b *Book) getTree(side string) (*btree.BTreeG[Level], error) {
	switch side {
	case "bids":
		return b.bids, nil
	case "asks":
		return b.asks, nil
	default:
		return nil, fmt.Errorf("invalid side: %s", side)
	}
}
