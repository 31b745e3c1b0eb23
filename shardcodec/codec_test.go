// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package shardcodec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripExactQuorum(t *testing.T) {
	const n, f = 7, 2
	data := []byte("the quick brown fox jumps over the lazy dog, repeated enough to span a few shards")

	shards, err := ToShards(data, n, f)
	require.NoError(t, err)
	require.Len(t, shards, n)

	dataShards := n - f
	present := make([]Shard, n)
	copy(present, shards[:dataShards])

	got, ok := Reconstruct(present, n, f)
	require.True(t, ok)
	require.True(t, bytes.Equal(data, got))
}

func TestRoundTripAnyQuorumSubset(t *testing.T) {
	const n, f = 7, 2
	data := []byte("randpiper epoch beacon dispersal payload")

	shards, err := ToShards(data, n, f)
	require.NoError(t, err)

	// drop replicas 0 and 1, keep the rest: still n-f available.
	present := make([]Shard, n)
	copy(present, shards)
	present[0] = nil
	present[1] = nil

	got, ok := Reconstruct(present, n, f)
	require.True(t, ok)
	require.True(t, bytes.Equal(data, got))
}

func TestReconstructFailsBelowQuorum(t *testing.T) {
	const n, f = 7, 2
	data := []byte("insufficient shards should not reconstruct")

	shards, err := ToShards(data, n, f)
	require.NoError(t, err)

	present := make([]Shard, n)
	dataShards := n - f
	copy(present[:dataShards-1], shards[:dataShards-1])

	_, ok := Reconstruct(present, n, f)
	require.False(t, ok)
}

func TestDeterministicEncoding(t *testing.T) {
	const n, f = 5, 1
	data := []byte("deterministic dispersal")

	a, err := ToShards(data, n, f)
	require.NoError(t, err)
	b, err := ToShards(data, n, f)
	require.NoError(t, err)

	for i := range a {
		require.True(t, bytes.Equal(a[i], b[i]))
	}
}

func TestInvalidParameters(t *testing.T) {
	_, err := ToShards([]byte("x"), 3, 3)
	require.Error(t, err)

	_, err = ToShards([]byte("x"), 3, -1)
	require.Error(t, err)
}

func TestEmptyPayload(t *testing.T) {
	const n, f = 4, 1
	shards, err := ToShards(nil, n, f)
	require.NoError(t, err)

	present := make([]Shard, n)
	copy(present, shards[:n-f])

	got, ok := Reconstruct(present, n, f)
	require.True(t, ok)
	require.Len(t, got, 0)
}
