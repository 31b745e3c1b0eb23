// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package replica

import (
	"github.com/luxfi/epochbft/types"
	"github.com/luxfi/epochbft/wire"
)

// PeerMessage pairs an inbound envelope with the replica that sent it.
// Identification happens once at connection time per §4.6; Sender is
// then the authenticated origin Commit/Reconstruct handling keys its
// per-dealer bookkeeping on.
type PeerMessage struct {
	Sender   types.Replica
	Envelope wire.Envelope
}

// PeerInbox is the channel boundary a transport delivers inbound
// protocol messages on.
type PeerInbox <-chan PeerMessage

// ClientInbox is the channel boundary a transport delivers inbound
// client transactions on. Framing and fan-out of committed blocks back
// to clients are out of scope (§1/§6); the Reactor only consumes.
type ClientInbox <-chan types.Transaction

// Outbox is the channel boundary the Reactor sends outbound envelopes
// on; a transport task drains it and performs the actual addressed
// delivery, expanding types.Broadcast(n) destinations itself.
type Outbox chan<- wire.Envelope
