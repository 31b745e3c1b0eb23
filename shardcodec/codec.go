// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package shardcodec splits a payload into N erasure-coded shards, any
// N-f of which reconstruct the original bytes. The Reed-Solomon math
// itself is an external primitive (spec's §1 Out-of-scope list); this
// package only adapts github.com/klauspost/reedsolomon to the spec's
// to_shards/reconstruct contract, the same erasure-coding family the
// pack's data-availability-sampling code (wyf-ACCEPT-eth2030/pkg/das)
// builds on top of, but via a maintained library instead of a
// hand-rolled GF(2^8) implementation.
package shardcodec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/reedsolomon"
)

const lengthPrefixSize = 8

// Shard is one slot of a dispersal: shards[i] is the piece destined for
// replica i.
type Shard = []byte

// ToShards splits data into n shards such that any n-f of them
// reconstruct data exactly. It is deterministic: the same (data, n, f)
// always produces bytewise-identical shards.
func ToShards(data []byte, n, f int) ([]Shard, error) {
	dataShards, err := quorumSize(n, f)
	if err != nil {
		return nil, err
	}

	enc, err := reedsolomon.New(dataShards, f)
	if err != nil {
		return nil, fmt.Errorf("shardcodec: new encoder: %w", err)
	}

	prefixed := make([]byte, lengthPrefixSize+len(data))
	binary.BigEndian.PutUint64(prefixed, uint64(len(data)))
	copy(prefixed[lengthPrefixSize:], data)

	split, err := enc.Split(prefixed)
	if err != nil {
		return nil, fmt.Errorf("shardcodec: split: %w", err)
	}

	shards := make([]Shard, n)
	copy(shards, split)
	for i := dataShards; i < n; i++ {
		shards[i] = make([]byte, len(split[0]))
	}
	if err := enc.Encode(shards); err != nil {
		return nil, fmt.Errorf("shardcodec: encode parity: %w", err)
	}
	return shards, nil
}

// Reconstruct recovers the original payload from shards, a slice of
// length n in which any unknown positions are nil. It returns false if
// fewer than n-f shards are present.
func Reconstruct(shards []Shard, n, f int) ([]byte, bool) {
	dataShards, err := quorumSize(n, f)
	if err != nil {
		return nil, false
	}
	if len(shards) != n {
		return nil, false
	}

	present := 0
	shardSize := 0
	for _, s := range shards {
		if s != nil {
			present++
			shardSize = len(s)
		}
	}
	if present < dataShards {
		return nil, false
	}

	enc, err := reedsolomon.New(dataShards, f)
	if err != nil {
		return nil, false
	}

	work := make([]Shard, n)
	copy(work, shards)
	if err := enc.Reconstruct(work); err != nil {
		return nil, false
	}

	var out bytes.Buffer
	if err := enc.Join(&out, work, dataShards*shardSize); err != nil {
		return nil, false
	}
	all := out.Bytes()
	if len(all) < lengthPrefixSize {
		return nil, false
	}
	length := binary.BigEndian.Uint64(all[:lengthPrefixSize])
	if lengthPrefixSize+length > uint64(len(all)) {
		return nil, false
	}
	return all[lengthPrefixSize : lengthPrefixSize+length], true
}

func quorumSize(n, f int) (int, error) {
	if f < 0 || n <= f {
		return 0, fmt.Errorf("shardcodec: invalid n=%d f=%d", n, f)
	}
	return n - f, nil
}
