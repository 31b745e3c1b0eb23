// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashBlockDeterministic(t *testing.T) {
	h := BlockHeader{Prev: Hash{1}, Author: 2, Height: 3}
	body := BlockBody{Commits: [][]byte{[]byte("a"), []byte("b")}, Acks: []Vote{{Msg: Hash{4}, Origin: 5, Auth: []byte("sig")}}}

	a := HashBlock(h, body)
	b := HashBlock(h, body)
	require.Equal(t, a, b)

	body2 := body
	body2.Commits = [][]byte{[]byte("a"), []byte("c")}
	require.NotEqual(t, a, HashBlock(h, body2))
}

func TestCertificateEmptyIsValid(t *testing.T) {
	var c Certificate
	require.True(t, c.Empty())
	require.True(t, c.Valid(func(Replica, Hash, []byte) bool { return false }))
}

func TestCertificateValidRequiresSameMessage(t *testing.T) {
	c := Certificate{Votes: []Vote{
		{Msg: Hash{1}, Origin: 0, Auth: []byte("a")},
		{Msg: Hash{2}, Origin: 1, Auth: []byte("b")},
	}}
	require.False(t, c.Valid(func(Replica, Hash, []byte) bool { return true }))
}

func TestCertificateValidChecksEverySignature(t *testing.T) {
	c := Certificate{Votes: []Vote{
		{Msg: Hash{1}, Origin: 0, Auth: []byte("a")},
		{Msg: Hash{1}, Origin: 1, Auth: []byte("b")},
	}}
	calls := 0
	ok := c.Valid(func(origin Replica, msg Hash, sig []byte) bool {
		calls++
		return origin != 1
	})
	require.False(t, ok)
	require.Greater(t, calls, 0)
}

func TestSignedDataEqualIgnoresSig(t *testing.T) {
	a := SignedData{Author: 1, Epoch: 2, Kind: DispersalPropose, Digest: Hash{3}, Sig: []byte("x")}
	b := a
	b.Sig = []byte("different")
	require.True(t, a.Equal(b))

	c := a
	c.Epoch = 9
	require.False(t, a.Equal(c))
}

func TestBroadcastSentinel(t *testing.T) {
	require.True(t, Broadcast(4).IsBroadcast(4))
	require.False(t, Replica(2).IsBroadcast(4))
}
