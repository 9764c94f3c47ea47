// Package identity supplies the exogenous identity claim: a card
// swipe from the Wiegand reader in production, or a manually fed
// identity in card-less debug mode. Both sit behind the same Source
// interface so the main loop never branches on the mode.
package identity

import "time"

// Swipe is one card read (or debug entry) with its capture time.
type Swipe struct {
	CardID string
	At     time.Time
}

// Source is polled once per capture tick. Poll returns the most
// recent swipe no older than maxAge; older swipes read as "no card
// present". A maxAge of zero disables the age check.
type Source interface {
	Poll(maxAge time.Duration) (Swipe, bool)
}

// NoCardSource never reports a card; the gate runs in pure-face mode.
type NoCardSource struct{}

func (NoCardSource) Poll(time.Duration) (Swipe, bool) { return Swipe{}, false }
