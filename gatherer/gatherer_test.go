// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package gatherer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/epochbft/shardcodec"
	"github.com/luxfi/epochbft/types"
)

const (
	n = 7
	f = 2
)

func acceptAll(types.SignedData, types.Replica, []byte) bool { return true }

// shardDigests mirrors what a real dispersal authenticator binds: one
// commitment digest per shard, in replica order.
func shardDigests(shards [][]byte) []types.Hash {
	out := make([]types.Hash, len(shards))
	for i, s := range shards {
		out[i] = types.HashShard(s)
	}
	return out
}

func mkAuth(author types.Replica, epoch types.Height, shards [][]byte) types.SignedData {
	return types.SignedData{Author: author, Epoch: epoch, Kind: types.DispersalPropose, ShardDigests: shardDigests(shards)}
}

// verifyCommitment is the shape a real keyring-backed Verify takes: it
// checks that shard is exactly what auth.ShardDigests commits to for
// target, the §4.3 "verify shard under (params, author_pk, auth)" step.
func verifyCommitment(auth types.SignedData, target types.Replica, shard []byte) bool {
	idx := int(target)
	if idx < 0 || idx >= len(auth.ShardDigests) {
		return false
	}
	return auth.ShardDigests[idx] == types.HashShard(shard)
}

func TestGathererConvergesOnQuorum(t *testing.T) {
	payload := []byte("proposal body for epoch 5, long enough to span several shards of data")
	shards, err := shardcodec.ToShards(payload, n, f)
	require.NoError(t, err)

	g := New()
	auth := mkAuth(0, 5, shards)
	for i := 0; i < n-f; i++ {
		ok := g.AddShare(shards[i], types.Replica(i), auth, verifyCommitment)
		require.True(t, ok)
	}

	got, ok := g.Reconstruct(n, f)
	require.True(t, ok)
	require.True(t, bytes.Equal(payload, got))
}

func TestGathererExtraValidSharesKeepPayload(t *testing.T) {
	payload := []byte("more shards than needed should not change the outcome")
	shards, err := shardcodec.ToShards(payload, n, f)
	require.NoError(t, err)

	g := New()
	auth := mkAuth(1, 2, shards)
	for i := 0; i < n; i++ {
		g.AddShare(shards[i], types.Replica(i), auth, verifyCommitment)
	}

	got, ok := g.Reconstruct(n, f)
	require.True(t, ok)
	require.True(t, bytes.Equal(payload, got))
}

func TestGathererRejectsCrossDispersalShards(t *testing.T) {
	payloadA := []byte("dispersal A payload")
	payloadB := []byte("dispersal B payload, a different author entirely")
	shardsA, err := shardcodec.ToShards(payloadA, n, f)
	require.NoError(t, err)
	shardsB, err := shardcodec.ToShards(payloadB, n, f)
	require.NoError(t, err)

	g := New()
	authA := mkAuth(0, 1, shardsA)
	authB := mkAuth(1, 1, shardsB)

	require.True(t, g.AddShare(shardsA[0], 0, authA, verifyCommitment))
	// A share carrying a different authenticator must be rejected, even
	// though it comes from a sender the gatherer has not yet seen.
	require.False(t, g.AddShare(shardsB[1], 1, authB, verifyCommitment))

	for i := 1; i < n-f; i++ {
		require.True(t, g.AddShare(shardsA[i], types.Replica(i), authA, verifyCommitment))
	}
	got, ok := g.Reconstruct(n, f)
	require.True(t, ok)
	require.True(t, bytes.Equal(payloadA, got))
}

func TestGathererRejectsDoubleCounting(t *testing.T) {
	payload := []byte("double counting must not inflate shard_num")
	shards, err := shardcodec.ToShards(payload, n, f)
	require.NoError(t, err)

	g := New()
	auth := mkAuth(2, 9, shards)
	require.True(t, g.AddShare(shards[0], 0, auth, verifyCommitment))
	require.False(t, g.AddShare(shards[0], 0, auth, verifyCommitment))
	require.Equal(t, 1, g.ShardNum())
}

func TestGathererRejectsUnverifiedAuthenticator(t *testing.T) {
	payload := []byte("bad signature on the authenticator")
	shards, err := shardcodec.ToShards(payload, n, f)
	require.NoError(t, err)

	g := New()
	auth := mkAuth(0, 1, shards)
	reject := func(types.SignedData, types.Replica, []byte) bool { return false }
	require.False(t, g.AddShare(shards[0], 0, auth, reject))
	require.Equal(t, 0, g.ShardNum())
}

// TestGathererRejectsShardNotMatchingCommitment covers §8 Property 2's
// "fed any number of invalid shards... still yields the same payload":
// a shard that does not match its sender's committed digest must be
// dropped rather than silently corrupting the reconstruction.
func TestGathererRejectsShardNotMatchingCommitment(t *testing.T) {
	payload := []byte("the real proposal bytes everyone should agree on")
	shards, err := shardcodec.ToShards(payload, n, f)
	require.NoError(t, err)

	forged := []byte("garbage bytes paired with a legitimately signed authenticator")

	g := New()
	auth := mkAuth(0, 3, shards)

	// A forged shard for replica 0, presented alongside a validly formed
	// authenticator, must be rejected: it does not match ShardDigests[0].
	require.False(t, g.AddShare(forged, 0, auth, verifyCommitment))
	require.Equal(t, 0, g.ShardNum())

	// The real shard for the same slot is accepted.
	require.True(t, g.AddShare(shards[0], 0, auth, verifyCommitment))

	// Once the authenticator is pinned, a later sender offering a
	// mismatched shard under the same authenticator is rejected too.
	require.False(t, g.AddShare(forged, 1, auth, verifyCommitment))
	require.Equal(t, 1, g.ShardNum())

	for i := 1; i < n-f; i++ {
		require.True(t, g.AddShare(shards[i], types.Replica(i), auth, verifyCommitment))
	}
	got, ok := g.Reconstruct(n, f)
	require.True(t, ok)
	require.True(t, bytes.Equal(payload, got))
}

func TestGathererBelowThresholdYieldsNothing(t *testing.T) {
	payload := []byte("not enough shards yet")
	shards, err := shardcodec.ToShards(payload, n, f)
	require.NoError(t, err)

	g := New()
	auth := mkAuth(3, 4, shards)
	for i := 0; i < n-f-1; i++ {
		g.AddShare(shards[i], types.Replica(i), auth, verifyCommitment)
	}
	_, ok := g.Reconstruct(n, f)
	require.False(t, ok)
}

func TestGathererClear(t *testing.T) {
	payload := []byte("clear resets everything")
	shards, err := shardcodec.ToShards(payload, n, f)
	require.NoError(t, err)

	g := New()
	auth := mkAuth(0, 1, shards)
	for i := 0; i < n-f; i++ {
		g.AddShare(shards[i], types.Replica(i), auth, verifyCommitment)
	}
	g.Clear()
	require.Equal(t, 0, g.ShardNum())
	_, ok := g.Authenticator()
	require.False(t, ok)
	_, ok = g.Reconstruct(n, f)
	require.False(t, ok)
}
