// Package dflow implements the venue driver for DFlow's prediction markets
// feed: series event discovery, the orderbook channel subscription, and
// normalization of yes/no bid snapshots into "yes" terms.
package dflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/gorilla/websocket"

	"crossbook/internal/book"
	"crossbook/internal/price"
	"crossbook/internal/venue"
	"crossbook/internal/venue/dflow/api"
	"crossbook/internal/venue/orderbook"
	"crossbook/pkg/hashset"
)

const handshakeTimeout = 30 * time.Second

// Markets in these states are candidates for subscription.
var activeStatuses = hashset.SetFromSlice([]string{"active", "open"})

type Config struct {
	APIURL string
	WSURL  string
	APIKey string
	Series string
}

type Driver struct {
	cfg Config
	api *api.Client
	log *slog.Logger
	now func() time.Time
}

var _ venue.Driver = (*Driver)(nil)

func New(cfg Config, log *slog.Logger) *Driver {
	return &Driver{
		cfg: cfg,
		api: api.New(cfg.APIURL, cfg.APIKey),
		log: log.With("component", "dflow"),
		now: time.Now,
	}
}

func (d *Driver) Venue() book.VenueID {
	return book.VenueDFlow
}

// Discover picks the active market with the earliest future close time, or
// the first listed active market when none closes in the future.
func (d *Driver) Discover(ctx context.Context) (*venue.Instrument, error) {
	events, err := d.api.GetActiveEvents(d.cfg.Series)
	if err != nil {
		return nil, err
	}

	var markets []*api.Market
	for _, event := range events {
		if event.SeriesTicker != d.cfg.Series {
			continue
		}
		for _, m := range event.Markets {
			if activeStatuses.Has(m.Status) {
				markets = append(markets, m)
			}
		}
	}
	if len(markets) == 0 {
		return nil, nil
	}

	now := d.now().Unix()
	future := make([]*api.Market, 0, len(markets))
	for _, m := range markets {
		if m.CloseTime > now {
			future = append(future, m)
		}
	}
	sort.Slice(future, func(i, j int) bool { return future[i].CloseTime < future[j].CloseTime })

	selected := markets[0]
	if len(future) > 0 {
		selected = future[0]
	}

	d.log.Info("found market", "ticker", selected.Ticker)
	return &venue.Instrument{
		ID:     selected.Ticker,
		Expiry: time.Unix(selected.CloseTime, 0),
	}, nil
}

func (d *Driver) Dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, d.cfg.WSURL, d.api.Header())
	if err != nil {
		return nil, fmt.Errorf("couldn't dial orderbook websocket: %w", err)
	}
	return conn, nil
}

type subscription struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel"`
	Tickers []string `json:"tickers"`
}

func (d *Driver) Subscribe(conn *websocket.Conn, inst *venue.Instrument) error {
	sub := subscription{Type: "subscribe", Channel: "orderbook", Tickers: []string{inst.ID}}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("couldn't send subscription: %w", err)
	}
	return nil
}

// Keepalive is not needed; the feed relies on protocol-level ping/pong.
func (d *Driver) Keepalive() ([]byte, time.Duration, bool) {
	return nil, 0, false
}

type orderbookMessage struct {
	Channel      string                `json:"channel"`
	MarketTicker string                `json:"market_ticker"`
	YesBids      map[string]price.Size `json:"yes_bids"`
	NoBids       map[string]price.Size `json:"no_bids"`
}

// Handle applies an orderbook snapshot. DFlow sends no incremental diffs;
// every frame replaces the whole book. A "no" bid at price p is re-expressed
// as a "yes" ask at 1-p.
func (d *Driver) Handle(raw []byte, inst *venue.Instrument, ob *orderbook.Book) bool {
	msg := orderbookMessage{}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return false
	}
	if msg.Channel != "orderbook" || msg.MarketTicker != inst.ID {
		return false
	}

	one := price.Price(price.Scale)

	bids := make([]orderbook.Level, 0, len(msg.YesBids))
	for p, size := range msg.YesBids {
		bids = append(bids, orderbook.Level{Price: price.Parse(p), Size: size})
	}
	asks := make([]orderbook.Level, 0, len(msg.NoBids))
	for p, size := range msg.NoBids {
		asks = append(asks, orderbook.Level{Price: one - price.Parse(p), Size: size})
	}

	ob.Replace("bids", bids)
	ob.Replace("asks", asks)
	return true
}
