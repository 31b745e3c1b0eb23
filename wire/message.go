// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package wire is the tagged union of protocol messages carried
// between replicas (§4.6), plus the one-shot Identify handshake frame
// a transport sends before any ProtocolMsg traffic
// (original_source/net/src/peer.rs, see SPEC_FULL.md's "Supplemented
// features"). Encoding uses encoding/gob: see DESIGN.md for why gob was
// chosen over protobuf codegen in this exercise.
package wire

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/luxfi/epochbft/types"
)

// Kind tags which protocol message an Envelope carries.
type Kind uint8

const (
	KindIdentify Kind = iota
	KindCertificate
	KindPropose
	KindVote
	KindVoteCert
	KindDeliverPropose
	KindDeliverVoteCert
	KindReconstruct
	KindCommit
	KindDeliverCommit
	KindAck
)

func (k Kind) String() string {
	switch k {
	case KindIdentify:
		return "Identify"
	case KindCertificate:
		return "Certificate"
	case KindPropose:
		return "Propose"
	case KindVote:
		return "Vote"
	case KindVoteCert:
		return "VoteCert"
	case KindDeliverPropose:
		return "DeliverPropose"
	case KindDeliverVoteCert:
		return "DeliverVoteCert"
	case KindReconstruct:
		return "Reconstruct"
	case KindCommit:
		return "Commit"
	case KindDeliverCommit:
		return "DeliverCommit"
	case KindAck:
		return "Ack"
	default:
		return "Unknown"
	}
}

// Identify is the one-shot frame a transport sends on connect so the
// receiving side learns which replica is on the other end of the link.
type Identify struct {
	Replica types.Replica
}

// CertificateMsg carries a certificate the sender believes extends the
// chain further than the recipient (leader) currently knows.
type CertificateMsg struct {
	Certificate types.Certificate
}

// ProposeMsg is the leader's proposal, paired with the dispersal
// authenticator for the propose_gatherer.
type ProposeMsg struct {
	Propose types.Propose
	Auth    types.SignedData
}

// VoteMsg is a single signed vote sent to the current leader.
type VoteMsg struct {
	Vote types.Vote
}

// VoteCertMsg is the leader's formed certificate, broadcast once f+1
// votes are in.
type VoteCertMsg struct {
	Certificate types.Certificate
	Auth        types.SignedData
}

// DeliverShardMsg is the common shape of the three DeliverX dispersal
// messages (DeliverPropose, DeliverVoteCert, DeliverCommit): one shard
// addressed at target, under auth.
type DeliverShardMsg struct {
	Shard  []byte
	Target types.Replica
	Auth   types.SignedData
}

// ReconstructMsg gossips one of this replica's own beacon shares for
// polynomial PolyIndex, staged in epoch Epoch.
type ReconstructMsg struct {
	Share     []byte
	PolyIndex int
	Epoch     types.Height
}

// CommitMsg is the dealer's per-recipient beacon dispersal: one share
// of each of the N staged polynomials plus the N commit vectors, signed
// by the dealer so recipients can authenticate the commit_gatherer
// dispersal that follows.
type CommitMsg struct {
	Shares  [][]byte
	Commits [][]byte
	Auth    types.SignedData
}

// AckMsg acknowledges a reconstructed commit vector, carried into the
// next leader's proposal body as received_ack.
type AckMsg struct {
	Ack types.Vote
}

// Envelope is the single wire type a transport reads and writes: the
// tagged union plus, for outbound messages, the destination (with
// types.Broadcast(n) meaning "every other replica").
type Envelope struct {
	Kind        Kind
	Destination types.Replica

	Identify     *Identify
	Certificate  *CertificateMsg
	Propose      *ProposeMsg
	Vote         *VoteMsg
	VoteCert     *VoteCertMsg
	DeliverShard *DeliverShardMsg
	Reconstruct  *ReconstructMsg
	Commit       *CommitMsg
	Ack          *AckMsg
}

// Marshal encodes an Envelope to its canonical bytes.
func Marshal(e Envelope) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, fmt.Errorf("wire: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes an Envelope previously produced by Marshal. It is a
// tier-3 fatal fault (§7) for callers if it fails: a decode failure
// means the transport or the peer is no longer trustworthy.
func Unmarshal(data []byte) (Envelope, error) {
	var e Envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&e); err != nil {
		return Envelope{}, fmt.Errorf("wire: decode: %w", err)
	}
	return e, nil
}

// NewDeliverEnvelope builds one of the three DeliverX kinds addressed
// at dest (usually types.Broadcast(n), per §4.5's dispersal steps).
func NewDeliverEnvelope(kind Kind, dest types.Replica, shard []byte, target types.Replica, auth types.SignedData) Envelope {
	return Envelope{
		Kind:        kind,
		Destination: dest,
		DeliverShard: &DeliverShardMsg{
			Shard:  shard,
			Target: target,
			Auth:   auth,
		},
	}
}
