// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package replica

import (
	"github.com/luxfi/epochbft/beacon"
	"github.com/luxfi/epochbft/gatherer"
	"github.com/luxfi/epochbft/types"
	"github.com/luxfi/epochbft/wire"
)

// handleMessage dispatches one inbound envelope to the phase-sensitive
// handler for its kind, per §4.5's "Inbound message handling" table.
// Every handler here follows the tier-1 error policy (§7): malformed
// or unverifiable input is dropped silently, never returned as an
// error.
func (r *Reactor) handleMessage(pm PeerMessage) {
	env := pm.Envelope
	switch env.Kind {
	case wire.KindCertificate:
		if env.Certificate != nil {
			r.onCertificate(env.Certificate.Certificate)
		}
	case wire.KindPropose:
		if env.Propose != nil {
			r.onPropose(*env.Propose)
		}
	case wire.KindVote:
		if env.Vote != nil {
			r.onVote(env.Vote.Vote)
		}
	case wire.KindVoteCert:
		if env.VoteCert != nil {
			r.onVoteCert(*env.VoteCert)
		}
	case wire.KindDeliverPropose:
		if env.DeliverShard != nil {
			r.onDeliverShard(r.proposeGatherer, &r.proposeShareSent, wire.KindDeliverPropose, *env.DeliverShard, r.verifyAuthor(r.lastLeader))
		}
	case wire.KindDeliverVoteCert:
		if env.DeliverShard != nil {
			r.onDeliverShard(r.voteCertGatherer, &r.voteCertShareSent, wire.KindDeliverVoteCert, *env.DeliverShard, r.verifyAuthor(r.lastLeader))
		}
	case wire.KindDeliverCommit:
		if env.DeliverShard != nil {
			r.onDeliverCommitShard(*env.DeliverShard)
		}
	case wire.KindReconstruct:
		if env.Reconstruct != nil {
			share := beacon.Share{Index: int(pm.Sender), V: env.Reconstruct.Share}
			r.beacon.OnReconstructMessage(env.Reconstruct.PolyIndex, share, env.Reconstruct.Epoch)
		}
	case wire.KindCommit:
		if env.Commit != nil {
			r.onCommit(pm.Sender, *env.Commit)
		}
	case wire.KindAck:
		if env.Ack != nil {
			r.receivedAck = append(r.receivedAck, env.Ack.Ack)
		}
	}
}

// onCertificate implements the Certificate(c) handler: only meaningful
// while this replica is leader in Propose, but harmless to process
// otherwise since adoption is gated on the referenced block actually
// being in the store.
func (r *Reactor) onCertificate(c types.Certificate) {
	if c.Empty() {
		return
	}
	if !c.Valid(r.kr.VerifyVote) {
		return
	}
	block, ok := r.store.ByHash(c.Msg())
	if !ok {
		return
	}
	if block.Header.Height > r.highestHeight {
		r.highestCert = c
		r.highestHeight = block.Header.Height
	}
}

// onPropose implements the Propose(p, z) handler: store it for the
// current epoch's DeliverPropose step to disperse.
func (r *Reactor) onPropose(p wire.ProposeMsg) {
	r.receivedPropose = &p
}

// onVote implements the Vote(v) handler: only the leader accumulates
// votes; at f+1 it forms and broadcasts a certificate.
func (r *Reactor) onVote(v types.Vote) {
	if !r.isLeader() {
		return
	}
	r.receivedVote = append(r.receivedVote, v)
	if len(r.receivedVote) < r.cfg.CertThreshold() {
		return
	}
	cert := types.Certificate{Votes: r.receivedVote}
	shards, auth, err := r.splitAndAuthenticate(encodeCertForDispersal(cert), types.DispersalVoteCert, cert.Msg())
	if err != nil {
		return
	}
	r.broadcast(wire.Envelope{Kind: wire.KindVoteCert, VoteCert: &wire.VoteCertMsg{Certificate: cert, Auth: auth}})
	r.recordAndDisperseVoteCert(cert, shards, auth)
	r.jumpToCommit()
}

// onVoteCert implements the VoteCert(c, z) handler: record, disperse,
// and jump to Commit, same as reaching f+1 votes locally.
func (r *Reactor) onVoteCert(msg wire.VoteCertMsg) {
	if !msg.Certificate.Valid(r.kr.VerifyVote) {
		return
	}
	shards, err := toShards(encodeCertForDispersal(msg.Certificate), r.cfg.NumNodes, r.cfg.NumFaults)
	if err != nil {
		return
	}
	r.recordAndDisperseVoteCert(msg.Certificate, shards, msg.Auth)
	r.jumpToCommit()
}

func (r *Reactor) recordAndDisperseVoteCert(cert types.Certificate, shards [][]byte, auth types.SignedData) {
	r.receivedCertificate = &cert
	r.lastCertificate = cert
	r.disperseOwnShard(r.voteCertGatherer, &r.voteCertShareSent, shards, auth, wire.KindDeliverVoteCert)
}

// jumpToCommit implements "jump to phase Commit with deadline now+2Δ",
// the one phase transition not driven by the regular deadline ladder.
func (r *Reactor) jumpToCommit() {
	r.phase = PhaseCommit
	r.scheduleAfter(2 * r.cfg.Delta)
}

// onDeliverShard is the shared body of DeliverPropose/DeliverVoteCert:
// add the share to the gatherer, and if we are the addressed target
// and have not yet broadcast our own shard for this dispersal, do so
// now (Property 7 gates repeats via *sent).
func (r *Reactor) onDeliverShard(g *gatherer.Gatherer, sent *bool, kind wire.Kind, msg wire.DeliverShardMsg, verify gatherer.Verify) {
	g.AddShare(msg.Shard, msg.Target, msg.Auth, verify)
	if msg.Target == r.cfg.ID && !*sent {
		r.broadcast(wire.NewDeliverEnvelope(kind, types.Broadcast(r.cfg.NumNodes), msg.Shard, msg.Target, msg.Auth))
		*sent = true
	}
}

// onDeliverCommitShard implements DeliverCommit(...): symmetric to
// onDeliverShard for commit_gatherer, under next_leader's keys, and on
// reaching threshold builds and sends an Ack.
func (r *Reactor) onDeliverCommitShard(msg wire.DeliverShardMsg) {
	next := r.nextLeader()
	r.onDeliverShard(r.commitGatherer, &r.commitShareSent, wire.KindDeliverCommit, msg, r.verifyAuthor(next))

	payload, ok := r.commitGatherer.Reconstruct(r.cfg.NumNodes, r.cfg.NumFaults)
	if !ok {
		return
	}
	cv, ok := decodeCommitFromDispersal(payload)
	if !ok {
		return
	}
	hash := types.HashBlock(types.BlockHeader{}, types.BlockBody{Commits: cv.Commits})
	ack := r.kr.SignVote(hash)
	if r.cfg.ID != next {
		r.unicast(next, wire.Envelope{Kind: wire.KindAck, Ack: &wire.AckMsg{Ack: ack}})
	}
}

// onCommit implements the Commit(shares, commits, z) handler: append
// our own beacon shares to the dealer's queue and stash the staged
// commit vector for this epoch's DeliverCommit dispersal.
func (r *Reactor) onCommit(sender types.Replica, msg wire.CommitMsg) {
	shares, err := bytesToShareSlice(msg.Shares)
	if err != nil {
		return
	}
	r.beacon.ReceiveCommit(sender, shares)
	r.receivedCommit = &commitVectorPayload{Commits: msg.Commits}
	r.receivedCommitFrom = sender
	r.receivedCommitAuth = msg.Auth
}

// verifyAuthor pins a dispersal to a specific expected author and
// checks the offered shard against that author's per-shard commitment:
// propose_gatherer under last_leader's keys (only the rotating leader
// may ever source a proposal dispersal, per §4.5's "Propose (leader
// only)"), vote_cert_gatherer also under last_leader's keys, and
// commit_gatherer under next_leader's keys.
func (r *Reactor) verifyAuthor(expect types.Replica) gatherer.Verify {
	return func(auth types.SignedData, target types.Replica, shard []byte) bool {
		if auth.Author != expect {
			return false
		}
		if !r.kr.VerifyDispersal(auth) {
			return false
		}
		return verifyShardDigest(auth, target, shard)
	}
}

// verifyShardDigest checks that shard is exactly the bytes auth's
// per-shard commitment names for target, so a validly signed
// authenticator can never be paired with arbitrary garbage as the
// accompanying shard (§3 "Dispersal authenticator").
func verifyShardDigest(auth types.SignedData, target types.Replica, shard []byte) bool {
	idx := int(target)
	if idx < 0 || idx >= len(auth.ShardDigests) {
		return false
	}
	return auth.ShardDigests[idx] == types.HashShard(shard)
}
