// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package replica

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/luxfi/epochbft/beacon"
	"github.com/luxfi/epochbft/shardcodec"
	"github.com/luxfi/epochbft/types"
)

// toShards is the C3 shard codec entry point used by the dispersal
// helpers below.
func toShards(payload []byte, n, f int) ([][]byte, error) {
	return shardcodec.ToShards(payload, n, f)
}

// shardDigests computes the per-shard commitment a dispersal's
// authenticator binds (§3 "Dispersal authenticator"): one digest per
// shard, so a receiver can check the specific shard it was handed
// against the signed commitment rather than only the signature's own
// self-consistency.
func shardDigests(shards [][]byte) []types.Hash {
	digests := make([]types.Hash, len(shards))
	for i, s := range shards {
		digests[i] = types.HashShard(s)
	}
	return digests
}

// splitAndAuthenticate splits payload into this committee's shards and
// signs a dispersal authenticator binding digest (the dispersal's
// logical identity, e.g. a block hash) to the commitment over those
// shards, so propose/vote-cert/commit dispersals are all authenticated
// the same way.
func (r *Reactor) splitAndAuthenticate(payload []byte, kind types.DispersalKind, digest types.Hash) ([][]byte, types.SignedData, error) {
	shards, err := toShards(payload, r.cfg.NumNodes, r.cfg.NumFaults)
	if err != nil {
		return nil, types.SignedData{}, err
	}
	auth := r.kr.SignDispersal(types.SignedData{
		Author:       r.cfg.ID,
		Epoch:        r.epoch,
		Kind:         kind,
		Digest:       digest,
		ShardDigests: shardDigests(shards),
	})
	return shards, auth, nil
}

// encodeProposeForDispersal serializes a Propose into the bytes that
// get split into propose_gatherer's shards.
func encodeProposeForDispersal(p types.Propose) []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(p)
	return buf.Bytes()
}

// decodeProposeFromDispersal reverses encodeProposeForDispersal and
// recomputes the block's hash to confirm it matches what was carried,
// per §4.5's "recompute its hash" step.
func decodeProposeFromDispersal(payload []byte) (types.Block, bool) {
	var p types.Propose
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&p); err != nil {
		return types.Block{}, false
	}
	want := types.HashBlock(p.NewBlock.Header, p.NewBlock.Body)
	if want != p.NewBlock.Hash {
		return types.Block{}, false
	}
	return p.NewBlock, true
}

// encodeCertForDispersal serializes a Certificate into the bytes split
// into vote_cert_gatherer's shards.
func encodeCertForDispersal(c types.Certificate) []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(c)
	return buf.Bytes()
}

// commitVectorPayload is what the commit_gatherer's dispersal carries:
// the staged commit vector for the next epoch's beacon.
type commitVectorPayload struct {
	Commits [][]byte
}

func encodeCommitForDispersal(msg commitVectorPayload) []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(msg)
	return buf.Bytes()
}

func decodeCommitFromDispersal(payload []byte) (commitVectorPayload, bool) {
	var msg commitVectorPayload
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&msg); err != nil {
		return commitVectorPayload{}, false
	}
	return msg, true
}

// shareSliceToBytes serializes each EVSS share so it can travel inside
// a wire.CommitMsg, whose Shares field is [][]byte to keep wire free
// of any dependency on the beacon package's concrete Share type.
func shareSliceToBytes(shares []beacon.Share) [][]byte {
	out := make([][]byte, len(shares))
	for i, s := range shares {
		var buf bytes.Buffer
		_ = gob.NewEncoder(&buf).Encode(s)
		out[i] = buf.Bytes()
	}
	return out
}

func bytesToShareSlice(raw [][]byte) ([]beacon.Share, error) {
	out := make([]beacon.Share, len(raw))
	for i, b := range raw {
		var s beacon.Share
		if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&s); err != nil {
			return nil, fmt.Errorf("replica: decode share %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}
