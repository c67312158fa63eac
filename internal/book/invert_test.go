package book

import (
	"math"
	"testing"
)

func TestInvertToNoMapsSides(t *testing.T) {
	yes := Aggregate([]*NormalizedBook{
		normBook(VenuePolymarket,
			[]NormalizedLevel{{Price: 0.48, Size: 10}, {Price: 0.45, Size: 5}},
			[]NormalizedLevel{{Price: 0.52, Size: 8}, {Price: 0.56, Size: 3}},
		),
	})

	no := InvertToNo(yes)

	// Yes asks at 0.52/0.56 become no bids at 0.48/0.44.
	if len(no.Bids) != 2 {
		t.Fatalf("got %d no bids, want 2", len(no.Bids))
	}
	if math.Abs(no.Bids[0].Price-0.48) > 1e-9 || math.Abs(no.Bids[1].Price-0.44) > 1e-9 {
		t.Errorf("no bids = %v, %v", no.Bids[0].Price, no.Bids[1].Price)
	}
	if no.Bids[0].TotalSize != 8 || no.Bids[1].TotalSize != 3 {
		t.Errorf("no bid sizes = %v, %v", no.Bids[0].TotalSize, no.Bids[1].TotalSize)
	}

	// Yes bids at 0.48/0.45 become no asks at 0.52/0.55.
	if len(no.Asks) != 2 {
		t.Fatalf("got %d no asks, want 2", len(no.Asks))
	}
	if math.Abs(no.Asks[0].Price-0.52) > 1e-9 || math.Abs(no.Asks[1].Price-0.55) > 1e-9 {
		t.Errorf("no asks = %v, %v", no.Asks[0].Price, no.Asks[1].Price)
	}

	assertBookInvariants(t, no)

	if no.BestBid == nil || math.Abs(*no.BestBid-0.48) > 1e-9 {
		t.Errorf("bestBid = %v, want 0.48", no.BestBid)
	}
	if no.BestAsk == nil || math.Abs(*no.BestAsk-0.52) > 1e-9 {
		t.Errorf("bestAsk = %v, want 0.52", no.BestAsk)
	}
	if math.Abs(no.MidPrice-0.50) > 1e-9 {
		t.Errorf("midPrice = %v, want 0.50", no.MidPrice)
	}
}

func TestInvertToNoRecomputesCumulative(t *testing.T) {
	yes := Aggregate([]*NormalizedBook{
		normBook(VenueDFlow, nil, []NormalizedLevel{
			{Price: 0.52, Size: 8},
			{Price: 0.56, Size: 3},
		}),
	})

	no := InvertToNo(yes)

	if no.Bids[0].CumulativeSize != 8 || no.Bids[1].CumulativeSize != 11 {
		t.Errorf("cumulative = %v, %v, want 8, 11",
			no.Bids[0].CumulativeSize, no.Bids[1].CumulativeSize)
	}
}

func TestInvertToNoRoundTrip(t *testing.T) {
	yes := Aggregate([]*NormalizedBook{
		normBook(VenuePolymarket,
			[]NormalizedLevel{{Price: 0.481, Size: 10}, {Price: 0.45, Size: 5}},
			[]NormalizedLevel{{Price: 0.52, Size: 8}},
		),
		normBook(VenueDFlow,
			[]NormalizedLevel{{Price: 0.479, Size: 2}},
			[]NormalizedLevel{{Price: 0.539, Size: 1}},
		),
	})

	back := InvertToNo(InvertToNo(yes))

	if len(back.Bids) != len(yes.Bids) || len(back.Asks) != len(yes.Asks) {
		t.Fatalf("level counts differ after round trip")
	}
	for i := range yes.Bids {
		if math.Abs(back.Bids[i].Price-yes.Bids[i].Price) > Tick+1e-9 {
			t.Errorf("bid %d price drifted beyond one tick: %v vs %v",
				i, back.Bids[i].Price, yes.Bids[i].Price)
		}
		if back.Bids[i].TotalSize != yes.Bids[i].TotalSize {
			t.Errorf("bid %d size changed", i)
		}
	}
	for i := range yes.Asks {
		if math.Abs(back.Asks[i].Price-yes.Asks[i].Price) > Tick+1e-9 {
			t.Errorf("ask %d price drifted beyond one tick", i)
		}
	}
}

func TestInvertToNoEmptyBookUnchanged(t *testing.T) {
	empty := Aggregate(nil)
	if got := InvertToNo(empty); got != empty {
		t.Errorf("empty book should be returned as is")
	}
}

func TestInvertToNoKeepsVenueContributions(t *testing.T) {
	yes := Aggregate([]*NormalizedBook{
		normBook(VenuePolymarket, nil, []NormalizedLevel{{Price: 0.52, Size: 8}}),
		normBook(VenueDFlow, nil, []NormalizedLevel{{Price: 0.52, Size: 2}}),
	})

	no := InvertToNo(yes)

	if no.Bids[0].Venues[VenuePolymarket] != 8 || no.Bids[0].Venues[VenueDFlow] != 2 {
		t.Errorf("contributions = %v", no.Bids[0].Venues)
	}
}
