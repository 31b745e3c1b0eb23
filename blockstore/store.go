// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package blockstore holds the committed prefix of the chain, indexed
// both by hash and by height. It is append-only: once Commit inserts a
// block, nothing ever removes it.
package blockstore

import (
	"sync"

	"github.com/luxfi/epochbft/types"
)

// Store maps block hash to block and height to block for the committed
// chain. The two indices must always agree pointwise: ByHeight[h] == B
// implies ByHash[B.Hash] == B.
type Store struct {
	mu     sync.RWMutex
	byHash map[types.Hash]types.Block
	byHt   map[types.Height]types.Block
}

// New returns a Store seeded with the genesis block at height 0.
func New() *Store {
	s := &Store{
		byHash: make(map[types.Hash]types.Block),
		byHt:   make(map[types.Height]types.Block),
	}
	genesis := types.GenesisBlock()
	s.byHash[genesis.Hash] = genesis
	s.byHt[genesis.Header.Height] = genesis
	return s
}

// Commit inserts b into both indices. Store does not check
// b.Header.Prev against the block at b.Header.Height-1; it only stores.
func (s *Store) Commit(b types.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byHash[b.Hash] = b
	s.byHt[b.Header.Height] = b
}

// ByHash returns the committed block with the given hash, if any.
func (s *Store) ByHash(h types.Hash) (types.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.byHash[h]
	return b, ok
}

// ByHeight returns the committed block at the given height, if any.
func (s *Store) ByHeight(h types.Height) (types.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.byHt[h]
	return b, ok
}

// Tip returns the highest committed height and its block.
func (s *Store) Tip() (types.Height, types.Block) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	top := types.GenesisHeight
	b := s.byHt[top]
	for h, blk := range s.byHt {
		if h > top {
			top = h
			b = blk
		}
	}
	return top, b
}
