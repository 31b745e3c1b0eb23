// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package beacon

import (
	"fmt"

	"github.com/drand/kyber"
	"github.com/drand/kyber/group/edwards25519"
	"github.com/drand/kyber/share"
)

// suite is the concrete group the EVSS layer runs over. edwards25519 is
// the suite drand's own beacon nodes use for Pedersen/Feldman VSS.
var suite = edwards25519.NewBlakeSHA256Ed25519()

// Share is one replica's wire-serializable point on a dealer's
// polynomial: get_share(index, params, poly, rng) in spec terms.
type Share struct {
	Index int
	V     []byte
}

// Poly is the dealer-side state produced by Commit: a random secret's
// polynomial plus its public commitment, spec's (poly, commit) pair.
type Poly struct {
	pri *share.PriPoly
	pub *share.PubPoly
}

// Commit implements EVSS commit(params, secret, rng): it samples a
// uniformly random secret and a degree-(threshold-1) polynomial hiding
// it, public under pubPoly. threshold is the number of shares later
// needed to reconstruct (N-f, per §4.4).
func Commit(threshold int) *Poly {
	secret := suite.Scalar().Pick(suite.RandomStream())
	pri := share.NewPriPoly(suite, threshold, secret, suite.RandomStream())
	pub := pri.Commit(suite.Point().Base())
	return &Poly{pri: pri, pub: pub}
}

// Shares returns one Share per replica in [0,n), get_share(j+1,...) in
// spec terms (kyber indexes shares from 0, so Index here is the
// replica's own 0-based id; the +1 1-based convention lives inside
// kyber's own share.PriShare.I).
func (p *Poly) Shares(n int) []Share {
	kshares := p.pri.Shares(n)
	out := make([]Share, n)
	for i, ks := range kshares {
		if ks == nil {
			continue
		}
		vb, err := ks.V.MarshalBinary()
		if err != nil {
			continue
		}
		out[i] = Share{Index: ks.I, V: vb}
	}
	return out
}

// CommitBytes returns the wire-serializable public commitment for this
// poly: the opaque `Commit` the spec's Block.Body.Commits carries.
func (p *Poly) CommitBytes() ([]byte, error) {
	return marshalPubPoly(p.pub)
}

func marshalPubPoly(pub *share.PubPoly) ([]byte, error) {
	b, commits := pub.Info()
	bb, err := b.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("beacon: marshal base point: %w", err)
	}
	out := append([]byte{byte(len(commits))}, bb...)
	for _, c := range commits {
		cb, err := c.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("beacon: marshal commitment point: %w", err)
		}
		out = append(out, cb...)
	}
	return out, nil
}

func unmarshalPubPoly(data []byte) (*share.PubPoly, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("beacon: commit too short")
	}
	n := int(data[0])
	data = data[1:]
	pointLen := suite.Point().(kyber.Marshaling).MarshalSize()
	b := suite.Point()
	if len(data) < pointLen {
		return nil, fmt.Errorf("beacon: commit truncated")
	}
	if err := b.UnmarshalBinary(data[:pointLen]); err != nil {
		return nil, fmt.Errorf("beacon: unmarshal base point: %w", err)
	}
	data = data[pointLen:]
	commits := make([]kyber.Point, n)
	for i := 0; i < n; i++ {
		if len(data) < pointLen {
			return nil, fmt.Errorf("beacon: commit vector truncated")
		}
		pt := suite.Point()
		if err := pt.UnmarshalBinary(data[:pointLen]); err != nil {
			return nil, fmt.Errorf("beacon: unmarshal commitment point: %w", err)
		}
		commits[i] = pt
		data = data[pointLen:]
	}
	return share.NewPubPoly(suite, b, commits), nil
}

// Verify implements EVSS verify(share, commit, params): it checks that
// share lies on the polynomial bound by commitBytes.
func Verify(s Share, commitBytes []byte) bool {
	pub, err := unmarshalPubPoly(commitBytes)
	if err != nil {
		return false
	}
	v := suite.Scalar()
	if err := v.UnmarshalBinary(s.V); err != nil {
		return false
	}
	return pub.Check(&share.PriShare{I: s.Index, V: v})
}

// Reconstruct implements EVSS reconstruct([share; N-f]) -> secret: it
// recovers the dealer's original secret from a threshold-sized set of
// shares and returns its canonical byte encoding.
func Reconstruct(shares []Share, threshold, n int) ([]byte, bool) {
	if len(shares) < threshold {
		return nil, false
	}
	kshares := make([]*share.PriShare, 0, len(shares))
	for _, s := range shares {
		v := suite.Scalar()
		if err := v.UnmarshalBinary(s.V); err != nil {
			continue
		}
		kshares = append(kshares, &share.PriShare{I: s.Index, V: v})
	}
	if len(kshares) < threshold {
		return nil, false
	}
	secret, err := share.RecoverSecret(suite, kshares, threshold, n)
	if err != nil {
		return nil, false
	}
	out, err := secret.MarshalBinary()
	if err != nil {
		return nil, false
	}
	return out, true
}
