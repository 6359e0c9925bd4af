package engine

import "errors"

var (
	// ErrNoPendingEvent is returned by Resolve when no event is waiting for a choice.
	ErrNoPendingEvent = errors.New("no pending event")

	// ErrUnknownChoice is returned by Resolve for a choice id the pending event does not offer.
	ErrUnknownChoice = errors.New("unknown choice")

	// ErrUnknownProvince is returned by interventions aimed at a province the ledger does not hold.
	ErrUnknownProvince = errors.New("unknown province")

	// ErrUnknownEvent is returned when an event id is not in the catalog.
	ErrUnknownEvent = errors.New("unknown event")
)
