// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package types holds the data model shared by every component of the
// epoch state machine: replica identifiers, heights, blocks, votes and
// certificates. None of these types know how to transmit or persist
// themselves; that is left to the wire and blockstore packages.
package types

import (
	"encoding/binary"

	"github.com/luxfi/ids"
	"github.com/zeebo/blake3"
)

// Replica identifies one member of the committee. Values in [0, N) name
// an actual committee member; the value N itself (the committee size) is
// the broadcast sentinel and is never a valid origin.
type Replica uint32

// Hash is a 32-byte content hash, reused for block hashes and vote
// messages alike.
type Hash = ids.ID

// Height orders the committed chain. NoCertificate is the sentinel
// "no certificate known yet" used before any block has been voted on.
type Height int64

// NoCertificate is the height carried by the ambient pre-genesis
// certificate.
const NoCertificate Height = -1

// GenesisHeight is the height of the fixed genesis block.
const GenesisHeight Height = 0

// IsBroadcast reports whether dest names "every other replica" under a
// committee of the given size.
func (r Replica) IsBroadcast(numNodes int) bool {
	return int(r) == numNodes
}

// Broadcast returns the sentinel destination for a committee of size n.
func Broadcast(numNodes int) Replica {
	return Replica(numNodes)
}

// BlockHeader is the part of a block that determines its identity and
// position in the chain.
type BlockHeader struct {
	Prev   Hash    `json:"prev"`
	Author Replica `json:"author"`
	Height Height  `json:"height"`
}

// BlockBody carries the payload a leader attaches to a proposal: the
// commitment vector staged for the next epoch's random beacon, and the
// Ack votes gathered during the commit-phase dispersal of the epoch
// that produced this block.
type BlockBody struct {
	Commits [][]byte `json:"commits"`
	Acks    []Vote   `json:"acks"`
}

// Block is a single entry in the committed chain. Hash is cached
// alongside Header/Body and must be kept in sync via UpdateHash.
type Block struct {
	Header BlockHeader `json:"header"`
	Body   BlockBody   `json:"body"`
	Hash   Hash        `json:"hash"`
}

// UpdateHash recomputes Hash from the canonical encoding of Header and
// Body and stores it on the block.
func (b *Block) UpdateHash() {
	b.Hash = HashBlock(b.Header, b.Body)
}

// HashBlock computes the canonical hash of a header+body pair without
// mutating a Block. Canonical here means a fixed field order and
// fixed-width integers, so that two replicas computing the hash of
// byte-identical header/body values always agree.
func HashBlock(h BlockHeader, body BlockBody) Hash {
	buf := make([]byte, 0, 64+len(body.Commits)*8+len(body.Acks)*48)
	buf = append(buf, h.Prev[:]...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(h.Author))
	buf = binary.BigEndian.AppendUint64(buf, uint64(h.Height))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(body.Commits)))
	for _, c := range body.Commits {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(c)))
		buf = append(buf, c...)
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(body.Acks)))
	for _, v := range body.Acks {
		buf = append(buf, v.Msg[:]...)
		buf = binary.BigEndian.AppendUint32(buf, uint32(v.Origin))
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(v.Auth)))
		buf = append(buf, v.Auth...)
	}
	sum := blake3.Sum256(buf)
	id, _ := ids.ToID(sum[:])
	return id
}

// HashShard returns the commitment digest for one erasure-coded
// dispersal shard. A dispersal authenticator binds one of these per
// shard (SignedData.ShardDigests) so a receiver can check the specific
// bytes it was handed against the signed commitment, not merely that
// the authenticator's own signature is self-consistent.
func HashShard(shard []byte) Hash {
	sum := blake3.Sum256(shard)
	id, _ := ids.ToID(sum[:])
	return id
}

// GenesisBlock is the fixed constant every replica's block store is
// seeded with at boot: an all-zero header at height 0 whose Hash is
// fixed to the all-zero id H0 rather than computed by HashBlock.
func GenesisBlock() Block {
	return Block{
		Header: BlockHeader{Height: GenesisHeight},
		Hash:   Hash{},
	}
}

// Vote is one replica's signature over a message, almost always a block
// hash.
type Vote struct {
	Msg    Hash    `json:"msg"`
	Origin Replica `json:"origin"`
	Auth   []byte  `json:"auth"`
}

// Certificate bundles the votes that justify extending the chain with
// the block whose hash the votes carry. The empty certificate (no
// votes) is the ambient "pre-genesis" certificate every replica starts
// with.
type Certificate struct {
	Votes []Vote `json:"votes"`
}

// Empty reports whether this is the ambient pre-genesis certificate.
func (c Certificate) Empty() bool {
	return len(c.Votes) == 0
}

// Msg returns the hash this certificate's votes attest to. Callers must
// not call Msg on an empty certificate.
func (c Certificate) Msg() Hash {
	return c.Votes[0].Msg
}

// Valid reports whether every vote verifies under its origin's known
// public key and all votes carry the same message. verify is supplied
// by the caller (the keyring) so this package stays free of any
// concrete signature scheme.
func (c Certificate) Valid(verify func(origin Replica, msg Hash, sig []byte) bool) bool {
	if len(c.Votes) == 0 {
		return true
	}
	msg := c.Votes[0].Msg
	for _, v := range c.Votes {
		if v.Msg != msg {
			return false
		}
		if !verify(v.Origin, v.Msg, v.Auth) {
			return false
		}
	}
	return true
}

// Propose is the leader's proposal for an epoch, paired on the wire
// with a dispersal authenticator.
type Propose struct {
	NewBlock    Block       `json:"new_block"`
	Certificate Certificate `json:"certificate"`
	Epoch       Height      `json:"epoch"`
}

// Transaction is the unit a client submits for inclusion in a future
// block. The core only ever observes these arriving on its client
// inbox; intake and framing are out of scope here.
type Transaction struct {
	Data    []byte `json:"data"`
	Request uint64 `json:"request"`
}
