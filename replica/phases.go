// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package replica

import (
	"time"

	"github.com/luxfi/epochbft/gatherer"
	"github.com/luxfi/epochbft/types"
	"github.com/luxfi/epochbft/wire"
)

// scheduleAtDelta schedules the timer to fire when elapsed time since
// r.epochBeginAt reaches k deltas, per §4.5's "all measured from the
// epoch's base instant begin" rule. A target already in the past fires
// on the next tick rather than blocking, so a replica that is already
// running behind schedule still makes progress.
func (r *Reactor) scheduleAtDelta(epochBegin time.Time, k int) {
	target := epochBegin.Add(time.Duration(k) * r.cfg.Delta)
	d := target.Sub(r.clock.Now())
	if d <= 0 {
		d = time.Nanosecond
	}
	r.timer.Reset(d)
}

func (r *Reactor) scheduleAfter(d time.Duration) {
	if d <= 0 {
		d = time.Nanosecond
	}
	r.timer.Reset(d)
}

// onDeadline is called whenever the single reset-capable timer fires;
// it dispatches to the handler for the phase the Reactor is currently
// in and arms the timer for whatever phase it transitions into.
func (r *Reactor) onDeadline() {
	switch r.phase {
	case PhasePropose:
		r.doPropose()
	case PhaseDeliverPropose:
		r.doDeliverPropose()
	case PhaseDeliverCommit:
		r.doDeliverCommit()
	case PhaseVote:
		r.doVote()
	case PhaseCommit:
		r.doCommit()
	case PhaseEnd:
		r.doEnd()
	}
}

// doPropose builds and disperses this epoch's proposal (leader only,
// §4.5 Propose).
func (r *Reactor) doPropose() {
	// With no certificate adopted yet, the proposal extends genesis:
	// prev is the all-zero genesis hash and the new height is 1.
	prev := types.Hash{}
	parentHeight := types.GenesisHeight
	if !r.highestCert.Empty() {
		prev = r.highestCert.Msg()
		parentHeight = r.highestHeight
	}

	body := types.BlockBody{
		Commits: r.stagedCommits,
		Acks:    r.receivedAck,
	}
	header := types.BlockHeader{
		Prev:   prev,
		Author: r.cfg.ID,
		Height: parentHeight + 1,
	}
	block := types.Block{Header: header, Body: body}
	block.UpdateHash()

	propose := types.Propose{NewBlock: block, Certificate: r.highestCert, Epoch: r.epoch}
	payload := encodeProposeForDispersal(propose)
	if shards, auth, err := r.splitAndAuthenticate(payload, types.DispersalPropose, block.Hash); err == nil {
		r.broadcast(wire.Envelope{Kind: wire.KindPropose, Propose: &wire.ProposeMsg{Propose: propose, Auth: auth}})

		r.receivedPropose = &wire.ProposeMsg{Propose: propose, Auth: auth}
		r.disperseOwnShard(r.proposeGatherer, &r.proposeShareSent, shards, auth, wire.KindDeliverPropose)
	}

	r.receivedAck = nil
	r.phase = PhaseDeliverCommit
	r.scheduleAtDelta(r.epochBeginAt, 8)
}

// doDeliverPropose disperses the proposal shards (non-leader) once a
// propose has arrived, §4.5 DeliverPropose.
func (r *Reactor) doDeliverPropose() {
	if r.receivedPropose != nil {
		payload := encodeProposeForDispersal(r.receivedPropose.Propose)
		if shards, err := toShards(payload, r.cfg.NumNodes, r.cfg.NumFaults); err == nil {
			r.disperseOwnShard(r.proposeGatherer, &r.proposeShareSent, shards, r.receivedPropose.Auth, wire.KindDeliverPropose)
		}
	}
	r.phase = PhaseDeliverCommit
	r.scheduleAtDelta(r.epochBeginAt, 8)
}

// doDeliverCommit disperses the staged commit-vector shards (both
// leader and non-leader, §4.5 DeliverCommit), then branches: the
// leader skips Vote and goes straight to End, everyone else votes.
func (r *Reactor) doDeliverCommit() {
	if r.receivedCommit != nil {
		payload := encodeCommitForDispersal(*r.receivedCommit)
		if shards, err := toShards(payload, r.cfg.NumNodes, r.cfg.NumFaults); err == nil {
			r.disperseOwnShard(r.commitGatherer, &r.commitShareSent, shards, r.receivedCommitAuth, wire.KindDeliverCommit)
		}
	}

	if r.isLeader() {
		r.phase = PhaseEnd
		r.scheduleAtDelta(r.epochBeginAt, 11)
		return
	}
	r.phase = PhaseVote
	r.scheduleAfter(r.cfg.Delta)
}

// doVote reconstructs the proposal and signs a vote over its hash,
// §4.5 Vote.
func (r *Reactor) doVote() {
	if payload, ok := r.proposeGatherer.Reconstruct(r.cfg.NumNodes, r.cfg.NumFaults); ok {
		if block, decodeOK := decodeProposeFromDispersal(payload); decodeOK && block.Header.Author == r.lastLeader {
			vote := r.kr.SignVote(block.Hash)
			r.unicast(r.lastLeader, wire.Envelope{Kind: wire.KindVote, Vote: &wire.VoteMsg{Vote: vote}})
		}
	}
	r.phase = PhaseEnd
	r.scheduleAtDelta(r.epochBeginAt, 11)
}

// doCommit reconstructs the proposal and commits it, §4.5 Commit. This
// fires on the now+2Δ deadline armed when a VoteCert arrived.
func (r *Reactor) doCommit() {
	if payload, ok := r.proposeGatherer.Reconstruct(r.cfg.NumNodes, r.cfg.NumFaults); ok {
		if block, decodeOK := decodeProposeFromDispersal(payload); decodeOK && block.Header.Author == r.lastLeader {
			r.store.Commit(block)
			r.lastBlock = block
		}
	}
	r.receivedPropose = nil
	r.receivedCertificate = nil
	r.phase = PhaseEnd
	r.scheduleAtDelta(r.epochBeginAt, 11)
}

// doEnd runs the beacon, rotates the leader, and decides the next
// epoch's opening phase, §4.5 End.
func (r *Reactor) doEnd() {
	_ = r.beacon.Reconstruct(r.epoch) // downstream leader-election input; consumption out of scope here

	r.lastLeader = r.nextLeader()
	r.epoch++
	r.proposeGatherer.Clear()
	r.voteCertGatherer.Clear()
	r.commitGatherer.Clear()
	r.receivedVote = nil
	r.proposeShareSent = false
	r.voteCertShareSent = false
	r.commitShareSent = false
	r.receivedPropose = nil
	r.receivedCertificate = nil
	r.receivedCommit = nil
	r.stagedCommits = nil

	r.epochBeginAt = r.clock.Now()

	if r.cfg.ID != r.lastLeader {
		r.unicast(r.lastLeader, wire.Envelope{Kind: wire.KindCertificate, Certificate: &wire.CertificateMsg{Certificate: r.lastCertificate}})
		r.phase = PhaseDeliverPropose
		r.scheduleAtDelta(r.epochBeginAt, 7)
	} else {
		r.phase = PhasePropose
		r.scheduleAfter(2 * r.cfg.Delta)
	}

	if r.cfg.ID == r.nextLeader() {
		commits, perReplica, err := r.beacon.StageDispersal()
		if err == nil {
			r.stagedCommits = commits
			r.beacon.KeepOwnShares(r.cfg.ID, perReplica[r.cfg.ID])

			payload := commitVectorPayload{Commits: commits}
			digest := types.HashBlock(types.BlockHeader{}, types.BlockBody{Commits: commits})
			if _, auth, aerr := r.splitAndAuthenticate(encodeCommitForDispersal(payload), types.DispersalCommit, digest); aerr == nil {
				r.receivedCommit = &payload
				r.receivedCommitFrom = r.cfg.ID
				r.receivedCommitAuth = auth
				for i := 0; i < r.cfg.NumNodes; i++ {
					if types.Replica(i) == r.cfg.ID {
						continue
					}
					r.unicast(types.Replica(i), wire.Envelope{Kind: wire.KindCommit, Commit: &wire.CommitMsg{
						Shares:  shareSliceToBytes(perReplica[i]),
						Commits: commits,
						Auth:    auth,
					}})
				}
			}
		}
	}

	for _, dealt := range r.beacon.PopDealtForRebroadcast(r.lastLeader) {
		r.broadcast(wire.Envelope{Kind: wire.KindReconstruct, Reconstruct: &wire.ReconstructMsg{
			Share:     dealt.Share.V,
			PolyIndex: dealt.PolyIndex,
			Epoch:     r.epoch + 1,
		}})
	}
}

// disperseOwnShard implements the idempotent "disperse via DeliverX"
// step shared by Propose/DeliverPropose/DeliverCommit: prime this
// replica's own gatherer with its own already-split shard, and
// broadcast that shard exactly once per dispersal (Property 7, gated
// by *sent).
func (r *Reactor) disperseOwnShard(g *gatherer.Gatherer, sent *bool, shards [][]byte, auth types.SignedData, kind wire.Kind) {
	g.AddShare(shards[r.cfg.ID], r.cfg.ID, auth, func(types.SignedData, types.Replica, []byte) bool { return true })
	if !*sent {
		r.broadcast(wire.NewDeliverEnvelope(kind, types.Broadcast(r.cfg.NumNodes), shards[r.cfg.ID], r.cfg.ID, auth))
		*sent = true
	}
}
