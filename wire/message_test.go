// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/epochbft/types"
)

func TestEnvelopeRoundTripPropose(t *testing.T) {
	block := types.GenesisBlock()
	env := Envelope{
		Kind:        KindPropose,
		Destination: types.Broadcast(4),
		Propose: &ProposeMsg{
			Propose: types.Propose{NewBlock: block, Epoch: 1},
			Auth:    types.SignedData{Author: 1, Epoch: 1, Kind: types.DispersalPropose, Sig: []byte("sig")},
		},
	}

	data, err := Marshal(env)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, env.Kind, got.Kind)
	require.Equal(t, env.Destination, got.Destination)
	require.Equal(t, env.Propose.Propose.Epoch, got.Propose.Propose.Epoch)
	require.Equal(t, env.Propose.Auth, got.Propose.Auth)
}

func TestEnvelopeRoundTripDeliverShard(t *testing.T) {
	env := NewDeliverEnvelope(KindDeliverPropose, types.Broadcast(4), []byte("shard-bytes"), types.Replica(2),
		types.SignedData{Author: 0, Epoch: 3, Kind: types.DispersalPropose})

	data, err := Marshal(env)
	require.NoError(t, err)
	got, err := Unmarshal(data)
	require.NoError(t, err)

	require.Equal(t, env.Kind, got.Kind)
	require.Equal(t, env.DeliverShard.Shard, got.DeliverShard.Shard)
	require.Equal(t, env.DeliverShard.Target, got.DeliverShard.Target)
}

func TestEnvelopeRoundTripIdentify(t *testing.T) {
	env := Envelope{Kind: KindIdentify, Identify: &Identify{Replica: 3}}
	data, err := Marshal(env)
	require.NoError(t, err)
	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, env.Identify.Replica, got.Identify.Replica)
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := Unmarshal([]byte("not a valid gob stream"))
	require.Error(t, err)
}
