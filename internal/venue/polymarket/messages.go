package polymarket

import (
	"encoding/json"

	"crossbook/internal/price"
	"crossbook/internal/venue"
	"crossbook/internal/venue/orderbook"
)

const (
	bookEvent        = "book"
	priceChangeEvent = "price_change"
)

type baseMessage struct {
	EventType string `json:"event_type"`
}

type orderSummary struct {
	Price price.Price `json:"price"`
	Size  price.Size  `json:"size"`
}

type bookMessage struct {
	AssetID string         `json:"asset_id"`
	Bids    []orderSummary `json:"bids"`
	Asks    []orderSummary `json:"asks"`
}

type priceChange struct {
	AssetID string      `json:"asset_id"`
	Price   price.Price `json:"price"`
	Size    price.Size  `json:"size"`
	Side    string      `json:"side"`
}

type priceChangeMessage struct {
	PriceChanges []priceChange `json:"price_changes"`
}

// Handle applies one market frame. Frames for other assets, PONG replies and
// unparsable payloads are dropped without touching the book.
func (d *Driver) Handle(raw []byte, inst *venue.Instrument, ob *orderbook.Book) bool {
	if string(raw) == "PONG" {
		return false
	}

	base := baseMessage{}
	if err := json.Unmarshal(raw, &base); err != nil {
		return false
	}

	switch base.EventType {
	case bookEvent:
		return d.applySnapshot(raw, inst, ob)
	case priceChangeEvent:
		return d.applyDiff(raw, inst, ob)
	default:
		return false
	}
}

// applySnapshot replaces the whole book from a full snapshot frame.
func (d *Driver) applySnapshot(raw []byte, inst *venue.Instrument, ob *orderbook.Book) bool {
	msg := bookMessage{}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return false
	}
	if msg.AssetID != "" && msg.AssetID != inst.ID {
		return false
	}

	ob.Replace("bids", toLevels(msg.Bids))
	ob.Replace("asks", toLevels(msg.Asks))
	return true
}

// applyDiff upserts the changed levels; size zero removes a level.
func (d *Driver) applyDiff(raw []byte, inst *venue.Instrument, ob *orderbook.Book) bool {
	msg := priceChangeMessage{}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return false
	}

	changed := false
	for _, change := range msg.PriceChanges {
		if change.AssetID != inst.ID {
			continue
		}
		side := "asks"
		if change.Side == "BUY" {
			side = "bids"
		}
		ob.Apply(side, change.Price, change.Size)
		changed = true
	}
	return changed
}

func toLevels(summaries []orderSummary) []orderbook.Level {
	levels := make([]orderbook.Level, 0, len(summaries))
	for _, s := range summaries {
		levels = append(levels, orderbook.Level{Price: s.Price, Size: s.Size})
	}
	return levels
}
