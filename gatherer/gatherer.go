// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package gatherer accumulates erasure-coded shards of one dispersal from
// distinct senders, verifying each against a dispersal-wide authenticator,
// and reassembles the payload once a quorum has been collected. A replica
// runs three of these concurrently: one for the leader's proposal, one for
// the vote certificate, and one for the next epoch's commit vector.
package gatherer

import (
	"github.com/luxfi/epochbft/shardcodec"
	"github.com/luxfi/epochbft/types"
)

// Verify checks a dispersal authenticator's signature and that shard is
// actually the piece target's authenticator commits to; it is supplied
// by the caller (a keyring, consulting the authenticator's per-shard
// commitment) so this package stays free of any concrete signature
// scheme or commitment format.
type Verify func(auth types.SignedData, target types.Replica, shard []byte) bool

// Gatherer is the receiver-side accumulator for one dispersal.
type Gatherer struct {
	shards        map[types.Replica]shardcodec.Shard
	shardNum      int
	authenticator *types.SignedData
}

// New returns an empty Gatherer.
func New() *Gatherer {
	return &Gatherer{shards: make(map[types.Replica]shardcodec.Shard)}
}

// AddShare offers one sender's shard, paired with the dispersal's
// authenticator, to the gatherer. It reports whether the share was
// accepted. Rejections (authenticator mismatch, bad signature,
// double-counting from the same sender) are silent by design: the only
// observable effect of a rejected share is the gatherer never reaching
// threshold, which the Reactor's timer handles by letting the phase lapse.
func (g *Gatherer) AddShare(shard shardcodec.Shard, sender types.Replica, auth types.SignedData, verify Verify) bool {
	if g.authenticator == nil {
		if !verify(auth, sender, shard) {
			return false
		}
		a := auth
		g.authenticator = &a
	} else {
		if !g.authenticator.Equal(auth) {
			return false
		}
		if !verify(auth, sender, shard) {
			return false
		}
	}

	if _, seen := g.shards[sender]; seen {
		return false
	}

	g.shards[sender] = shard
	g.shardNum++
	return true
}

// ShardNum reports how many distinct senders have contributed so far.
func (g *Gatherer) ShardNum() int { return g.shardNum }

// Authenticator returns the dispersal's authenticator once the first share
// has been accepted, or false before that.
func (g *Gatherer) Authenticator() (types.SignedData, bool) {
	if g.authenticator == nil {
		return types.SignedData{}, false
	}
	return *g.authenticator, true
}

// Reconstruct returns the reassembled payload once shard_num reaches the
// N-f quorum for a committee of size n tolerating f faults. It is pure
// over the current shard set and may be called repeatedly.
func (g *Gatherer) Reconstruct(n, f int) ([]byte, bool) {
	if g.shardNum < n-f {
		return nil, false
	}
	ordered := make([]shardcodec.Shard, n)
	for replica, shard := range g.shards {
		if int(replica) < n {
			ordered[replica] = shard
		}
	}
	return shardcodec.Reconstruct(ordered, n, f)
}

// Clear resets the gatherer to empty for the next epoch's dispersal.
func (g *Gatherer) Clear() {
	g.shards = make(map[types.Replica]shardcodec.Shard)
	g.shardNum = 0
	g.authenticator = nil
}
