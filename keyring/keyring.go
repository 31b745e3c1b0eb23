// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package keyring holds the replica's own signing key and its peers'
// verification keys behind one signature-scheme-agnostic interface.
// The scheme (Ed25519 or Secp256k1) is chosen once, at construction,
// the way github.com/luxfi/consensus's warp.Signer and crypto/bls
// wrap a concrete backend behind a small sign/verify surface.
package keyring

import (
	"crypto/ed25519"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/zeebo/blake3"

	"github.com/luxfi/epochbft/types"
)

// Algorithm names the signature scheme backing a Keyring.
type Algorithm int

const (
	Ed25519 Algorithm = iota
	Secp256k1
)

func (a Algorithm) String() string {
	switch a {
	case Ed25519:
		return "ed25519"
	case Secp256k1:
		return "secp256k1"
	default:
		return "unknown"
	}
}

// Keyring signs on behalf of one replica and verifies messages signed
// by any other, dispatching to whichever backend the committee was
// configured with.
type Keyring struct {
	alg        Algorithm
	self       types.Replica
	signSecret ed25519.PrivateKey  // set iff alg == Ed25519
	signKey    *secp256k1.PrivateKey // set iff alg == Secp256k1
	pubKeys    map[types.Replica][]byte
}

// New builds a Keyring for replica self, signing with secretKey under
// alg, and able to verify any replica listed in pubKeys.
func New(alg Algorithm, self types.Replica, secretKey []byte, pubKeys map[types.Replica][]byte) (*Keyring, error) {
	kr := &Keyring{alg: alg, self: self, pubKeys: pubKeys}
	switch alg {
	case Ed25519:
		if len(secretKey) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("keyring: ed25519 secret key must be %d bytes, got %d", ed25519.PrivateKeySize, len(secretKey))
		}
		kr.signSecret = ed25519.PrivateKey(secretKey)
	case Secp256k1:
		key := secp256k1.PrivKeyFromBytes(secretKey)
		if key == nil {
			return nil, fmt.Errorf("keyring: invalid secp256k1 secret key")
		}
		kr.signKey = key
	default:
		return nil, fmt.Errorf("keyring: unknown algorithm %d", alg)
	}
	return kr, nil
}

// Self returns the replica this keyring signs on behalf of.
func (k *Keyring) Self() types.Replica { return k.self }

// Sign signs msg under this replica's long-term key.
func (k *Keyring) Sign(msg []byte) []byte {
	switch k.alg {
	case Ed25519:
		return ed25519.Sign(k.signSecret, msg)
	case Secp256k1:
		digest := blake3.Sum256(msg)
		sig := ecdsa.Sign(k.signKey, digest[:])
		return sig.Serialize()
	default:
		return nil
	}
}

// Verify checks sig over msg against origin's known public key.
func (k *Keyring) Verify(origin types.Replica, msg, sig []byte) bool {
	pub, ok := k.pubKeys[origin]
	if !ok {
		return false
	}
	switch k.alg {
	case Ed25519:
		if len(pub) != ed25519.PublicKeySize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
	case Secp256k1:
		parsed, err := secp256k1.ParsePubKey(pub)
		if err != nil {
			return false
		}
		parsedSig, err := ecdsa.ParseDERSignature(sig)
		if err != nil {
			return false
		}
		digest := blake3.Sum256(msg)
		return parsedSig.Verify(digest[:], parsed)
	default:
		return false
	}
}

// VerifyVote checks a types.Vote's authenticator; this is the shape
// types.Certificate.Valid expects from a caller.
func (k *Keyring) VerifyVote(origin types.Replica, msg types.Hash, auth []byte) bool {
	return k.Verify(origin, msg[:], auth)
}

// SignVote produces a Vote over msg authored by this keyring's replica.
func (k *Keyring) SignVote(msg types.Hash) types.Vote {
	return types.Vote{
		Msg:    msg,
		Origin: k.self,
		Auth:   k.Sign(msg[:]),
	}
}

// SignDispersal fills in Sig on a dispersal authenticator this keyring's
// replica is originating. Author must already equal k.Self().
func (k *Keyring) SignDispersal(auth types.SignedData) types.SignedData {
	auth.Sig = k.Sign(auth.SigningBytes())
	return auth
}

// VerifyDispersal checks a dispersal authenticator's signature against its
// claimed Author's known public key.
func (k *Keyring) VerifyDispersal(auth types.SignedData) bool {
	return k.Verify(auth.Author, auth.SigningBytes(), auth.Sig)
}
