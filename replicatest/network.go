// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package replicatest

import (
	"context"
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/luxfi/log"

	"github.com/luxfi/epochbft/blockstore"
	"github.com/luxfi/epochbft/keyring"
	"github.com/luxfi/epochbft/replica"
	"github.com/luxfi/epochbft/types"
	"github.com/luxfi/epochbft/wire"
)

// Network wires N Reactors together in-process: each replica's Outbox
// feeds a router goroutine that expands types.Broadcast destinations
// and redelivers envelopes into the addressed replicas' PeerInbox,
// recording the sender. No network loss or reordering is modeled here;
// scenario tests that need it inject a filter via WithDrop.
type Network struct {
	Clock    *FakeClock
	Reactors []*replica.Reactor
	Stores   []*blockstore.Store

	peerIn  []chan replica.PeerMessage
	out     []chan wire.Envelope
	drop    func(sender, dest types.Replica, env wire.Envelope) bool

	cancel    context.CancelFunc
	reactorWG sync.WaitGroup
	routerWG  sync.WaitGroup
}

// Option configures a Network at construction time.
type Option func(*Network)

// WithDrop installs a predicate consulted before every redelivery;
// returning true discards the envelope, modeling an asynchronous or
// Byzantine link.
func WithDrop(f func(sender, dest types.Replica, env wire.Envelope) bool) Option {
	return func(n *Network) { n.drop = f }
}

// NewNetwork builds n replicas (tolerating f faults) with fresh Ed25519
// keys, each backed by its own genesis blockstore, and starts their
// Reactors and the routing goroutine. Call Advance to move time and
// Stop to tear down.
func NewNetwork(n, f int, opts ...Option) *Network {
	clock := NewFakeClock()
	net := &Network{Clock: clock, drop: func(types.Replica, types.Replica, wire.Envelope) bool { return false }}
	for _, o := range opts {
		o(net)
	}

	pubKeys := make(map[types.Replica][]byte, n)
	secrets := make([][]byte, n)
	for i := 0; i < n; i++ {
		pub, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			panic(err)
		}
		pubKeys[types.Replica(i)] = pub
		secrets[i] = priv
	}

	ctx, cancel := context.WithCancel(context.Background())
	net.cancel = cancel

	for i := 0; i < n; i++ {
		b := replica.NewBuilder().
			WithID(types.Replica(i)).
			WithCommittee(n, f).
			WithDelta(10 * time.Millisecond).
			WithCrypto(keyring.Ed25519, secrets[i])
		for r, pub := range pubKeys {
			b = b.WithPubKey(r, pub)
		}
		cfg, err := b.Build()
		if err != nil {
			panic(err)
		}

		kr, err := keyring.New(keyring.Ed25519, types.Replica(i), secrets[i], pubKeys)
		if err != nil {
			panic(err)
		}

		store := blockstore.New()
		net.Stores = append(net.Stores, store)

		peerIn := make(chan replica.PeerMessage, 4096)
		clientIn := make(chan types.Transaction)
		out := make(chan wire.Envelope, 4096)
		net.peerIn = append(net.peerIn, peerIn)
		net.out = append(net.out, out)

		r := replica.New(cfg, kr, store, peerIn, clientIn, out, clock, log.NewNoOpLogger())
		net.Reactors = append(net.Reactors, r)

		net.reactorWG.Add(1)
		go func(r *replica.Reactor) {
			defer net.reactorWG.Done()
			_ = r.Run(ctx)
		}(r)
	}

	for i := range net.out {
		net.routerWG.Add(1)
		go func(sender types.Replica, out <-chan wire.Envelope) {
			defer net.routerWG.Done()
			net.route(sender, out)
		}(types.Replica(i), net.out[i])
	}

	return net
}

func (n *Network) route(sender types.Replica, out <-chan wire.Envelope) {
	for env := range out {
		if int(env.Destination) == len(n.peerIn) {
			for dest := range n.peerIn {
				if types.Replica(dest) == sender {
					continue
				}
				n.deliver(sender, types.Replica(dest), env)
			}
			continue
		}
		n.deliver(sender, env.Destination, env)
	}
}

func (n *Network) deliver(sender, dest types.Replica, env wire.Envelope) {
	if n.drop(sender, dest, env) {
		return
	}
	if int(dest) >= len(n.peerIn) {
		return
	}
	select {
	case n.peerIn[dest] <- replica.PeerMessage{Sender: sender, Envelope: env}:
	default:
	}
}

// Advance moves every replica's clock forward by d, firing due timers,
// then gives goroutines a brief window to process the resulting
// messages before returning. This is a best-effort convenience for
// tests, not a barrier: tests asserting on terminal state should poll.
func (n *Network) Advance(d time.Duration) {
	n.Clock.Advance(d)
	time.Sleep(2 * time.Millisecond)
}

// Stop cancels every Reactor's context, waits for the reactors to stop
// sending before closing their outboxes (avoiding a send-on-closed-
// channel race), and waits for the router goroutines to drain.
func (n *Network) Stop() {
	n.cancel()
	n.reactorWG.Wait()
	for _, out := range n.out {
		close(out)
	}
	n.routerWG.Wait()
}
