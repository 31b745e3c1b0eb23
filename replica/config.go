// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package replica

import (
	"fmt"
	"time"

	"github.com/luxfi/epochbft/keyring"
	"github.com/luxfi/epochbft/types"
)

// Config is every construction-time input the Reactor needs, per §6:
// identity, committee shape, the scheduling quantum, and the crypto
// material. Loading it from disk/flags/env is out of scope (§1); this
// struct is only the destination such a loader would populate.
type Config struct {
	ID        types.Replica            `json:"id"`
	NumNodes  int                      `json:"num_nodes"`
	NumFaults int                      `json:"num_faults"`
	Delta     time.Duration            `json:"delta"`
	CryptoAlg keyring.Algorithm        `json:"crypto_alg"`
	SecretKey []byte                   `json:"secret_key_bytes"`
	PubKeys   map[types.Replica][]byte `json:"pk_map"`
}

// Quorum returns N-f, the dispersal reconstruction threshold.
func (c Config) Quorum() int { return c.NumNodes - c.NumFaults }

// CertThreshold returns f+1, the vote-certificate threshold.
func (c Config) CertThreshold() int { return c.NumFaults + 1 }

// Builder builds a Config through chained With* calls, the same
// fluent pattern the teacher's config package uses, ending in a
// validating Build().
type Builder struct {
	cfg Config
}

// NewBuilder returns a Builder seeded with the spec's Δ-paced defaults
// (a 100ms quantum, Ed25519 signatures).
func NewBuilder() *Builder {
	return &Builder{cfg: Config{
		Delta:     100 * time.Millisecond,
		CryptoAlg: keyring.Ed25519,
		PubKeys:   make(map[types.Replica][]byte),
	}}
}

func (b *Builder) WithID(id types.Replica) *Builder {
	b.cfg.ID = id
	return b
}

func (b *Builder) WithCommittee(numNodes, numFaults int) *Builder {
	b.cfg.NumNodes = numNodes
	b.cfg.NumFaults = numFaults
	return b
}

func (b *Builder) WithDelta(d time.Duration) *Builder {
	b.cfg.Delta = d
	return b
}

func (b *Builder) WithCrypto(alg keyring.Algorithm, secretKey []byte) *Builder {
	b.cfg.CryptoAlg = alg
	b.cfg.SecretKey = secretKey
	return b
}

func (b *Builder) WithPubKey(r types.Replica, pub []byte) *Builder {
	b.cfg.PubKeys[r] = pub
	return b
}

// Build validates and returns the Config. N >= 2f+1 is the minimum the
// spec states for the certificate rule to be meaningful (§1, and
// DESIGN.md's Open Question 2 on num_faults' double duty).
func (b *Builder) Build() (Config, error) {
	c := b.cfg
	if c.NumNodes <= 0 {
		return Config{}, fmt.Errorf("replica: num_nodes must be positive")
	}
	if c.NumFaults < 0 {
		return Config{}, fmt.Errorf("replica: num_faults must be non-negative")
	}
	if c.NumNodes < 2*c.NumFaults+1 {
		return Config{}, fmt.Errorf("replica: num_nodes=%d must be >= 2*num_faults+1=%d", c.NumNodes, 2*c.NumFaults+1)
	}
	if c.Delta <= 0 {
		return Config{}, fmt.Errorf("replica: delta must be positive")
	}
	if len(c.PubKeys) != c.NumNodes {
		return Config{}, fmt.Errorf("replica: pk_map has %d entries, want %d", len(c.PubKeys), c.NumNodes)
	}
	return c, nil
}
