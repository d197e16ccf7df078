package common

import (
	"fmt"
	"time"
)

// Trade accounts for the two parties who matched. Party is the taker (the
// order that was being accepted when the fill was emitted); CounterParty
// is the maker (the resting order it crossed against). PartyRemaining and
// CounterPartyRemaining are each side's open quantity immediately after
// this fill, for callers (e.g. a FIX execution report) that need to tell
// a partial fill from a final one.
type Trade struct {
	Party                 *Order
	CounterParty          *Order
	Timestamp             time.Time
	MatchQty              uint64
	Price                 float64
	PartyRemaining        uint64
	CounterPartyRemaining uint64
}

func (t Trade) String() string {
	return fmt.Sprintf(
		`Party: [
%s]
CounterParty:   [
%s]
Timestamp:      %v
MatchQty:       %d
Price:          %f`,
		t.Party.String(),
		t.CounterParty.String(),
		t.Timestamp.Format(time.RFC3339),
		t.MatchQty,
		t.Price,
	)
}
