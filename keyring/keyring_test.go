// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package keyring

import (
	"crypto/ed25519"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/epochbft/types"
)

func TestEd25519SignVerifyRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	kr, err := New(Ed25519, 0, priv, map[types.Replica][]byte{0: pub})
	require.NoError(t, err)

	msg := []byte("epoch 5 proposal digest")
	sig := kr.Sign(msg)
	require.True(t, kr.Verify(0, msg, sig))
	require.False(t, kr.Verify(0, []byte("tampered"), sig))
}

func TestSecp256k1SignVerifyRoundTrip(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	pub := priv.PubKey().SerializeCompressed()

	kr, err := New(Secp256k1, 1, priv.Serialize(), map[types.Replica][]byte{1: pub})
	require.NoError(t, err)

	msg := []byte("vote cert digest")
	sig := kr.Sign(msg)
	require.True(t, kr.Verify(1, msg, sig))
}

func TestVerifyRejectsUnknownOrigin(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	kr, err := New(Ed25519, 0, priv, map[types.Replica][]byte{0: pub})
	require.NoError(t, err)

	require.False(t, kr.Verify(7, []byte("msg"), kr.Sign([]byte("msg"))))
}

func TestSignDispersalVerifyDispersal(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	kr, err := New(Ed25519, 2, priv, map[types.Replica][]byte{2: pub})
	require.NoError(t, err)

	auth := types.SignedData{Author: 2, Epoch: 3, Kind: types.DispersalCommit, Digest: types.Hash{1, 2, 3}}
	signed := kr.SignDispersal(auth)
	require.True(t, kr.VerifyDispersal(signed))

	signed.Epoch = 4 // mutating a signed field after the fact invalidates it
	require.False(t, kr.VerifyDispersal(signed))
}

func TestSignVoteVerifyVote(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	kr, err := New(Ed25519, 0, priv, map[types.Replica][]byte{0: pub})
	require.NoError(t, err)

	hash := types.Hash{9, 9, 9}
	vote := kr.SignVote(hash)
	require.Equal(t, types.Replica(0), vote.Origin)
	require.True(t, kr.VerifyVote(vote.Origin, vote.Msg, vote.Auth))
}
