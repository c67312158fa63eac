package dflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crossbook/internal/venue"
	"crossbook/internal/venue/orderbook"
)

func testDriver() *Driver {
	return New(Config{Series: "KXBTC"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandleSnapshot(t *testing.T) {
	d := testDriver()
	ob := orderbook.New()
	inst := &venue.Instrument{ID: "KXBTC-26SEP011230"}

	raw := []byte(`{
		"channel": "orderbook",
		"market_ticker": "KXBTC-26SEP011230",
		"yes_bids": {"0.45": 100, "0.48": 50},
		"no_bids": {"0.40": 80}
	}`)

	if !d.Handle(raw, inst, ob) {
		t.Fatal("snapshot not applied")
	}

	bids, _ := ob.Levels("bids")
	asks, _ := ob.Levels("asks")
	if len(bids) != 2 {
		t.Fatalf("got %d bids, want 2", len(bids))
	}
	if bids[0].Price != 0.48 {
		t.Errorf("best bid = %v, want 0.48", bids[0].Price)
	}
	// A no bid at 0.40 is a yes ask at 0.60.
	if len(asks) != 1 {
		t.Fatalf("got %d asks, want 1", len(asks))
	}
	if math.Abs(asks[0].Price-0.60) > 1e-9 {
		t.Errorf("ask price = %v, want 1-0.40", asks[0].Price)
	}
	if asks[0].Size != 80 {
		t.Errorf("ask size = %v, want 80", asks[0].Size)
	}
}

func TestHandleReplacesPreviousSnapshot(t *testing.T) {
	d := testDriver()
	ob := orderbook.New()
	inst := &venue.Instrument{ID: "T1"}

	d.Handle([]byte(`{"channel":"orderbook","market_ticker":"T1","yes_bids":{"0.40":10},"no_bids":{}}`), inst, ob)
	d.Handle([]byte(`{"channel":"orderbook","market_ticker":"T1","yes_bids":{"0.45":5},"no_bids":{}}`), inst, ob)

	bids, _ := ob.Levels("bids")
	if len(bids) != 1 || bids[0].Price != 0.45 {
		t.Errorf("bids = %+v, want only the latest snapshot", bids)
	}
}

func TestHandleIgnoresOtherTickersAndChannels(t *testing.T) {
	d := testDriver()
	ob := orderbook.New()
	inst := &venue.Instrument{ID: "T1"}

	for _, raw := range []string{
		`{"channel":"orderbook","market_ticker":"T2","yes_bids":{"0.40":10}}`,
		`{"channel":"trades","market_ticker":"T1"}`,
		`not json`,
	} {
		if d.Handle([]byte(raw), inst, ob) {
			t.Errorf("frame %q should be dropped", raw)
		}
	}
	if ob.Len("bids") != 0 {
		t.Error("book touched by dropped frames")
	}
}

func TestDiscoverPicksEarliestFutureClose(t *testing.T) {
	now := time.Now().Unix()
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		fmt.Fprintf(w, `{"events":[{"seriesTicker":"KXBTC","markets":[
			{"ticker":"LATER","closeTime":%d,"status":"active"},
			{"ticker":"SOON","closeTime":%d,"status":"active"},
			{"ticker":"PAST","closeTime":%d,"status":"active"},
			{"ticker":"CLOSED","closeTime":%d,"status":"settled"}
		]}]}`, now+7200, now+900, now-900, now+60)
	}))
	defer srv.Close()

	d := New(Config{APIURL: srv.URL, APIKey: "k-123", Series: "KXBTC"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	inst, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if inst == nil || inst.ID != "SOON" {
		t.Fatalf("instrument = %+v, want the earliest future close", inst)
	}
	if want := time.Unix(now+900, 0); !inst.Expiry.Equal(want) {
		t.Errorf("expiry = %v, want %v", inst.Expiry, want)
	}
	if gotKey != "k-123" {
		t.Errorf("x-api-key = %q, want the configured key", gotKey)
	}
}

func TestDiscoverFallsBackToFirstListed(t *testing.T) {
	now := time.Now().Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"events":[{"seriesTicker":"KXBTC","markets":[
			{"ticker":"OLD-1","closeTime":%d,"status":"active"},
			{"ticker":"OLD-2","closeTime":%d,"status":"open"}
		]}]}`, now-7200, now-900)
	}))
	defer srv.Close()

	d := New(Config{APIURL: srv.URL, Series: "KXBTC"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	inst, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if inst == nil || inst.ID != "OLD-1" {
		t.Errorf("instrument = %+v, want first listed when nothing closes in the future", inst)
	}
}

func TestDiscoverNoActiveMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"events":[{"seriesTicker":"OTHER","markets":[{"ticker":"X","closeTime":99,"status":"active"}]}]}`)
	}))
	defer srv.Close()

	d := New(Config{APIURL: srv.URL, Series: "KXBTC"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	inst, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if inst != nil {
		t.Errorf("got %+v, want nil when the series has no active markets", inst)
	}
}
