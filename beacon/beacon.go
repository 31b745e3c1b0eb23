// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package beacon implements the per-epoch verifiable-secret-sharing
// random beacon (§4.4): the next leader deals N independent
// polynomials, one share of each goes to every replica, and once any
// replica has gathered N-f shares of a given polynomial it reconstructs
// that polynomial's secret. The epoch's beacon is the XOR of the
// blake3 hash of each of the N reconstructed secrets, which is
// order-independent (Property 6) because XOR is commutative.
package beacon

import (
	"github.com/zeebo/blake3"

	"github.com/luxfi/epochbft/types"
)

// DealtShare is one replica's own share of one of the N polynomials a
// dealer staged this epoch, tagged with which polynomial (PolyIndex)
// it belongs to so it can be gossiped on via a Reconstruct message and
// later matched up in the receiving side's reconstruct_queue.
type DealtShare struct {
	Share     Share
	PolyIndex int
}

// Beacon holds the per-replica VSS bookkeeping described in §3's
// Epoch/phase data: reconstruct_queue, rand_beacon_queue, and (while
// this replica is the dealer) its own staged polynomials.
type Beacon struct {
	n, f int

	// reconstructQueue[i] collects shares of this epoch's i-th
	// polynomial, gossiped in by Reconstruct messages.
	reconstructQueue []*queue

	// dealtQueue[dealer] is this replica's own FIFO of shares it
	// received (or, if it is the dealer, generated for itself) from
	// the polynomials dealer staged, pending rebroadcast as
	// Reconstruct messages at End.
	dealtQueue map[types.Replica][]DealtShare

	staged []*Poly // set only while this replica is the staging dealer
}

// New returns an empty Beacon for a committee of size n tolerating f
// faults.
func New(n, f int) *Beacon {
	b := &Beacon{
		n:          n,
		f:          f,
		dealtQueue: make(map[types.Replica][]DealtShare),
	}
	b.reconstructQueue = make([]*queue, n)
	for i := range b.reconstructQueue {
		b.reconstructQueue[i] = newQueue()
	}
	return b
}

// quorum is the EVSS reconstruction threshold, N-f shares.
func (b *Beacon) quorum() int { return b.n - b.f }

// StageDispersal implements §4.4 step 1: deal N independent
// polynomials, each shared among all N replicas. It returns the N
// commit vectors (to publish in the next block's body) and, for every
// replica, the N shares (one per polynomial) destined for it.
func (b *Beacon) StageDispersal() (commits [][]byte, perReplicaShares [][]Share, err error) {
	threshold := b.quorum()
	b.staged = make([]*Poly, b.n)
	commits = make([][]byte, b.n)
	perReplicaShares = make([][]Share, b.n)
	for i := range perReplicaShares {
		perReplicaShares[i] = make([]Share, b.n)
	}

	for k := 0; k < b.n; k++ {
		poly := Commit(threshold)
		b.staged[k] = poly

		cb, cerr := poly.CommitBytes()
		if cerr != nil {
			return nil, nil, cerr
		}
		commits[k] = cb

		shares := poly.Shares(b.n)
		for replica := 0; replica < b.n; replica++ {
			perReplicaShares[replica][k] = shares[replica]
		}
	}
	return commits, perReplicaShares, nil
}

// KeepOwnShares stashes the dealer's own N shares (one per polynomial
// staged in StageDispersal) into its dealt queue under its own id, the
// "shards[myid] appended to rand_beacon_queue[myid]" step of §4.4.
func (b *Beacon) KeepOwnShares(self types.Replica, ownShares []Share) {
	b.stashDealt(self, ownShares)
}

// ReceiveCommit implements the Commit message handler (§4.5): a
// non-dealer replica stashes its own shares of dealer's freshly staged
// polynomials under dealer's key, ready to be rebroadcast at End.
func (b *Beacon) ReceiveCommit(dealer types.Replica, ownShares []Share) {
	b.stashDealt(dealer, ownShares)
}

func (b *Beacon) stashDealt(dealer types.Replica, shares []Share) {
	dealt := make([]DealtShare, len(shares))
	for i, s := range shares {
		dealt[i] = DealtShare{Share: s, PolyIndex: i}
	}
	b.dealtQueue[dealer] = append(b.dealtQueue[dealer], dealt...)
}

// PopDealtForRebroadcast implements "rebroadcast one Reconstruct per
// authoring replica from rand_beacon_queue" at End: it drains every
// pending share owed to dealer and returns them for the caller to wrap
// one per PolyIndex into a Reconstruct(share, PolyIndex, nextEpoch)
// broadcast.
func (b *Beacon) PopDealtForRebroadcast(dealer types.Replica) []DealtShare {
	pending := b.dealtQueue[dealer]
	delete(b.dealtQueue, dealer)
	return pending
}

// OnReconstructMessage implements the Reconstruct(shard, i, e) inbound
// handler: append to reconstruct_queue[i] iff e is not older than that
// queue's last entry (monotone per polynomial queue).
func (b *Beacon) OnReconstructMessage(polyIndex int, s Share, epoch types.Height) bool {
	if polyIndex < 0 || polyIndex >= len(b.reconstructQueue) {
		return false
	}
	return b.reconstructQueue[polyIndex].push(encodeShare(s), epoch)
}

// Reconstruct implements the End-phase consumption of §4.4 steps 1-3:
// for each of the N polynomial queues, drain this epoch's entries
// (discarding stale ones left over from an earlier epoch), reconstruct
// any polynomial that reached quorum, and XOR the blake3 hash of each
// recovered secret into a 32-byte accumulator. Polynomials that never
// reach quorum this epoch simply do not contribute — the accumulator
// still yields a value, just not the one a fully-synchronous epoch
// would have produced (tier-2 timing failure, per §7).
func (b *Beacon) Reconstruct(current types.Height) [32]byte {
	var acc [32]byte
	threshold := b.quorum()
	for _, q := range b.reconstructQueue {
		raw := q.drainCurrent(current)
		if len(raw) < threshold {
			continue
		}
		shares := make([]Share, len(raw))
		for j, r := range raw {
			shares[j] = decodeShare(r)
		}
		secret, ok := Reconstruct(shares, threshold, b.n)
		if !ok {
			continue
		}
		h := blake3.Sum256(secret)
		for bpos := range acc {
			acc[bpos] ^= h[bpos]
		}
	}
	return acc
}

// encodeShare/decodeShare let a Share ride inside the generic queue's
// []byte entries without the queue package knowing about EVSS types.
func encodeShare(s Share) []byte {
	buf := make([]byte, 4+len(s.V))
	buf[0] = byte(s.Index >> 24)
	buf[1] = byte(s.Index >> 16)
	buf[2] = byte(s.Index >> 8)
	buf[3] = byte(s.Index)
	copy(buf[4:], s.V)
	return buf
}

func decodeShare(buf []byte) Share {
	if len(buf) < 4 {
		return Share{}
	}
	idx := int(buf[0])<<24 | int(buf[1])<<16 | int(buf[2])<<8 | int(buf[3])
	v := make([]byte, len(buf)-4)
	copy(v, buf[4:])
	return Share{Index: idx, V: v}
}
