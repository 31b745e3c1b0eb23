// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package blockstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/epochbft/types"
)

func TestNewSeedsGenesis(t *testing.T) {
	s := New()
	top, tip := s.Tip()
	require.Equal(t, types.GenesisHeight, top)
	require.Equal(t, types.GenesisBlock().Hash, tip.Hash)

	got, ok := s.ByHeight(types.GenesisHeight)
	require.True(t, ok)
	require.Equal(t, tip, got)
}

func TestCommitAdvancesTip(t *testing.T) {
	s := New()
	genesis := types.GenesisBlock()

	b := types.Block{Header: types.BlockHeader{Prev: genesis.Hash, Author: 1, Height: 1}}
	b.UpdateHash()
	s.Commit(b)

	top, tip := s.Tip()
	require.Equal(t, types.Height(1), top)
	require.Equal(t, b.Hash, tip.Hash)

	byHash, ok := s.ByHash(b.Hash)
	require.True(t, ok)
	require.Equal(t, b, byHash)

	byHeight, ok := s.ByHeight(1)
	require.True(t, ok)
	require.Equal(t, b, byHeight)
}

func TestByHashMissReturnsFalse(t *testing.T) {
	s := New()
	_, ok := s.ByHash(types.Hash{0xFF})
	require.False(t, ok)
}
