// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package types

// DispersalKind names which of a replica's three concurrent erasure-coded
// dispersals a shard belongs to. Binding it into SignedData is what lets a
// Gatherer refuse shards spliced in from a different dispersal.
type DispersalKind uint8

const (
	DispersalPropose DispersalKind = iota
	DispersalVoteCert
	DispersalCommit
)

// SignedData is the dispersal authenticator: an author's signature over a
// dispersal's identity (who authored it, for which epoch, of which kind,
// over which payload digest) and, critically, over the per-shard
// commitment ShardDigests binds (§3 "Dispersal authenticator"). Any
// receiver holding the author's public key can check that a shard
// presented alongside this authenticator is actually the piece of
// erasure-coded data ShardDigests[target] commits to, not just that the
// authenticator's own signature is self-consistent, and that two shards
// carrying equal authenticators belong to the same dispersal.
type SignedData struct {
	Author       Replica       `json:"author"`
	Epoch        Height        `json:"epoch"`
	Kind         DispersalKind `json:"kind"`
	Digest       Hash          `json:"digest"`
	ShardDigests []Hash        `json:"shard_digests"`
	Sig          []byte        `json:"sig"`
}

// Equal reports whether two authenticators describe the same dispersal.
// Sig is intentionally excluded: two honestly-produced authenticators for
// the same dispersal carry identical signatures anyway, and comparing only
// the bound identity is what Gatherer.AddShare needs.
func (s SignedData) Equal(o SignedData) bool {
	if s.Author != o.Author || s.Epoch != o.Epoch || s.Kind != o.Kind || s.Digest != o.Digest {
		return false
	}
	if len(s.ShardDigests) != len(o.ShardDigests) {
		return false
	}
	for i := range s.ShardDigests {
		if s.ShardDigests[i] != o.ShardDigests[i] {
			return false
		}
	}
	return true
}

// signingBytes returns the canonical bytes a SignedData's Sig is computed
// over: everything except the signature itself.
func (s SignedData) signingBytes() []byte {
	buf := make([]byte, 0, 4+8+1+32+4+len(s.ShardDigests)*32)
	buf = appendUint32(buf, uint32(s.Author))
	buf = appendUint64(buf, uint64(s.Epoch))
	buf = append(buf, byte(s.Kind))
	buf = append(buf, s.Digest[:]...)
	buf = appendUint32(buf, uint32(len(s.ShardDigests)))
	for _, d := range s.ShardDigests {
		buf = append(buf, d[:]...)
	}
	return buf
}

// SigningBytes exposes the canonical preimage so a keyring can sign or
// verify a dispersal authenticator without this package knowing about any
// concrete signature scheme.
func (s SignedData) SigningBytes() []byte { return s.signingBytes() }

func appendUint32(buf []byte, v uint32) []byte {
	return append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func appendUint64(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
