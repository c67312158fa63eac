// Package polymarket implements the venue driver for Polymarket's CLOB
// market feed: gamma slot discovery, the market websocket subscription, and
// normalization of book snapshots and price_change diffs.
package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"crossbook/internal/book"
	"crossbook/internal/venue"
	"crossbook/internal/venue/polymarket/gamma"
)

const (
	// Markets rotate on 15 minute UTC slots; slugs embed the slot start.
	slotDuration     = 15 * time.Minute
	handshakeTimeout = 30 * time.Second
	pingInterval     = 10 * time.Second
)

type Config struct {
	GammaURL   string
	WSURL      string
	SlugPrefix string
}

type Driver struct {
	cfg   Config
	gamma *gamma.Client
	log   *slog.Logger
	now   func() time.Time
}

var _ venue.Driver = (*Driver)(nil)

func New(cfg Config, log *slog.Logger) *Driver {
	return &Driver{
		cfg:   cfg,
		gamma: gamma.New(cfg.GammaURL),
		log:   log.With("component", "polymarket"),
		now:   time.Now,
	}
}

func (d *Driver) Venue() book.VenueID {
	return book.VenuePolymarket
}

// Discover probes the current, previous and next slot slugs and returns the
// first accepting market's primary token.
func (d *Driver) Discover(ctx context.Context) (*venue.Instrument, error) {
	slot := d.now().UTC().Truncate(slotDuration)

	var lastErr error
	for _, start := range []time.Time{slot, slot.Add(-slotDuration), slot.Add(slotDuration)} {
		slug := fmt.Sprintf("%s-%d", d.cfg.SlugPrefix, start.Unix())
		markets, err := d.gamma.GetMarketsBySlug(slug)
		if err != nil {
			lastErr = fmt.Errorf("couldn't get markets for slug %s: %w", slug, err)
			continue
		}

		for _, m := range markets {
			if !m.AcceptingOrders || len(m.ClobTokenIDs) == 0 {
				continue
			}
			d.log.Info("found market", "question", m.Question, "slug", slug)
			return &venue.Instrument{
				ID:     m.ClobTokenIDs[0],
				Expiry: start.Add(slotDuration),
			}, nil
		}
	}
	return nil, lastErr
}

func (d *Driver) Dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, d.cfg.WSURL, nil)
	if err != nil {
		return nil, fmt.Errorf("couldn't dial market websocket: %w", err)
	}
	return conn, nil
}

type marketSubscription struct {
	AssetsIDs            []string `json:"assets_ids"`
	Type                 string   `json:"type"`
	CustomFeatureEnabled bool     `json:"custom_feature_enabled"`
}

func (d *Driver) Subscribe(conn *websocket.Conn, inst *venue.Instrument) error {
	sub := marketSubscription{
		AssetsIDs:            []string{inst.ID},
		Type:                 "market",
		CustomFeatureEnabled: true,
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("couldn't send subscription: %w", err)
	}
	return nil
}

// Keepalive keeps the market feed alive with an application-level text frame.
func (d *Driver) Keepalive() ([]byte, time.Duration, bool) {
	return []byte("PING"), pingInterval, true
}
