// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package replica is the per-replica epoch state machine (§4.5): one
// Reactor per replica, single-threaded, driving itself through Propose
// -> DeliverPropose -> DeliverCommit -> Vote -> Commit -> End on a
// reset-capable deadline timer and two inbound channels. Grounded on
// engine/bft/wrapper.go's Epoch/Config/Comm shape (see DESIGN.md's C6
// entry).
package replica

import (
	"context"
	"fmt"
	"time"

	"github.com/luxfi/log"

	"github.com/luxfi/epochbft/beacon"
	"github.com/luxfi/epochbft/blockstore"
	"github.com/luxfi/epochbft/gatherer"
	"github.com/luxfi/epochbft/keyring"
	"github.com/luxfi/epochbft/types"
	"github.com/luxfi/epochbft/wire"
)

// Phase names one of the six states of an epoch (§4.5).
type Phase int

const (
	PhasePropose Phase = iota
	PhaseDeliverPropose
	PhaseDeliverCommit
	PhaseVote
	PhaseCommit
	PhaseEnd
)

func (p Phase) String() string {
	switch p {
	case PhasePropose:
		return "Propose"
	case PhaseDeliverPropose:
		return "DeliverPropose"
	case PhaseDeliverCommit:
		return "DeliverCommit"
	case PhaseVote:
		return "Vote"
	case PhaseCommit:
		return "Commit"
	case PhaseEnd:
		return "End"
	default:
		return "Unknown"
	}
}

// Reactor owns all consensus state for one replica (§3's "Epoch/phase
// data"). Nothing outside Run ever touches it, so it carries no locks.
type Reactor struct {
	cfg   Config
	kr    *keyring.Keyring
	store *blockstore.Store
	log   log.Logger

	peerInbox   PeerInbox
	clientInbox ClientInbox
	outbox      Outbox

	clock Clock
	timer Timer

	phase        Phase
	epochBeginAt time.Time
	epoch        types.Height

	lastLeader types.Replica

	highestCert   types.Certificate
	highestHeight types.Height

	receivedPropose     *wire.ProposeMsg
	receivedCertificate *types.Certificate
	lastCertificate     types.Certificate

	receivedCommit     *commitVectorPayload
	receivedCommitFrom types.Replica
	receivedCommitAuth types.SignedData

	receivedVote []types.Vote
	receivedAck  []types.Vote

	proposeGatherer  *gatherer.Gatherer
	proposeShareSent bool

	voteCertGatherer  *gatherer.Gatherer
	voteCertShareSent bool

	commitGatherer  *gatherer.Gatherer
	commitShareSent bool

	beacon *beacon.Beacon

	stagedCommits [][]byte
	lastBlock     types.Block
}

// New constructs a Reactor. cfg must already be validated via
// Builder.Build. store should already contain genesis (blockstore.New
// does this).
func New(cfg Config, kr *keyring.Keyring, store *blockstore.Store, peerInbox PeerInbox, clientInbox ClientInbox, outbox Outbox, clock Clock, logger log.Logger) *Reactor {
	if clock == nil {
		clock = SystemClock
	}
	r := &Reactor{
		cfg:              cfg,
		kr:               kr,
		store:            store,
		log:              logger,
		peerInbox:        peerInbox,
		clientInbox:      clientInbox,
		outbox:           outbox,
		clock:            clock,
		phase:            PhaseEnd,
		epoch:            0,
		lastLeader:       0,
		highestCert:      types.Certificate{},
		highestHeight:    types.NoCertificate,
		proposeGatherer:  gatherer.New(),
		voteCertGatherer: gatherer.New(),
		commitGatherer:   gatherer.New(),
		beacon:           beacon.New(cfg.NumNodes, cfg.NumFaults),
	}
	_, r.lastBlock = store.Tip()
	r.epochBeginAt = clock.Now()
	r.timer = clock.NewTimer(cfg.Delta) // warm-up: End fires after one Δ (§4.5)
	return r
}

// isLeader reports whether this replica is the epoch's leader.
func (r *Reactor) isLeader() bool { return r.cfg.ID == r.lastLeader }

// nextLeader returns who leads the epoch after the current one.
func (r *Reactor) nextLeader() types.Replica {
	return types.Replica((uint32(r.lastLeader) + 1) % uint32(r.cfg.NumNodes))
}

func (r *Reactor) logf(level string, msg string, kv ...interface{}) {
	if r.log == nil {
		return
	}
	l := r.log.With("replica", r.cfg.ID, "epoch", r.epoch, "phase", r.phase.String())
	switch level {
	case "debug":
		l.Debug(msg, kv...)
	case "info":
		l.Info(msg, kv...)
	case "warn":
		l.Warn(msg, kv...)
	default:
		l.Error(msg, kv...)
	}
}

// Run is the Reactor's single-threaded event loop (§5): a three-way
// select over the peer inbox, the client inbox, and the deadline
// timer. Exactly one source is serviced per iteration, run to
// completion before the next wait. It returns on ctx cancellation or a
// tier-3 fatal fault (closed channel).
func (r *Reactor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case pm, ok := <-r.peerInbox:
			if !ok {
				return fmt.Errorf("replica: peer inbox closed: %w", types.ErrNotInitialized)
			}
			r.handleMessage(pm)

		case _, ok := <-r.clientInbox:
			if !ok {
				return fmt.Errorf("replica: client inbox closed: %w", types.ErrNotInitialized)
			}
			// Client transaction intake/fan-out is out of scope (§1);
			// the Reactor only drains the channel so callers can wire
			// a real intake layer without the core blocking it.

		case <-r.timer.C():
			r.onDeadline()
		}
	}
}

// send enqueues one outbound envelope. A blocked send under correct
// operation would indicate an undersized transport buffer, a fatal
// transport fault per §5 — callers rely on Outbox being provisioned
// generously enough that this never happens in practice.
func (r *Reactor) send(env wire.Envelope) {
	r.outbox <- env
}

func (r *Reactor) broadcast(env wire.Envelope) {
	env.Destination = types.Broadcast(r.cfg.NumNodes)
	r.send(env)
}

func (r *Reactor) unicast(dest types.Replica, env wire.Envelope) {
	env.Destination = dest
	r.send(env)
}
