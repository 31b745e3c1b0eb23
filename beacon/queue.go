// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package beacon

import "github.com/luxfi/epochbft/types"

// MaxQueueDepth bounds how many pending shares a single polynomial's
// queue may hold before the oldest is dropped. A flooding
// sender can force at most this much memory per queue; the drop is a
// tier-1 "suspicious but expected" event, not an error.
const MaxQueueDepth = 64

// entry is one queued share awaiting reconstruction, tagged with the
// epoch it belongs to.
type entry struct {
	share []byte
	epoch types.Height
}

// queue is a FIFO of pending shares of a single polynomial, gossiped in
// by any sender, monotone in the epoch of the entries appended to it.
type queue struct {
	items     []entry
	backEpoch types.Height
}

func newQueue() *queue {
	return &queue{backEpoch: types.NoCertificate}
}

// push appends share for epoch e iff e is not older than the last
// entry appended to this queue (§4.4). It silently drops
// out-of-order entries and, once MaxQueueDepth is reached, the oldest
// queued entry, bounding memory under a flooding sender.
func (q *queue) push(share []byte, e types.Height) bool {
	if e < q.backEpoch {
		return false
	}
	q.backEpoch = e
	q.items = append(q.items, entry{share: share, epoch: e})
	if len(q.items) > MaxQueueDepth {
		q.items = q.items[len(q.items)-MaxQueueDepth:]
	}
	return true
}

// drainCurrent removes and returns every entry whose epoch equals
// current, first discarding (without returning) any strictly older
// entry left behind from a prior epoch.
func (q *queue) drainCurrent(current types.Height) [][]byte {
	var currentShares [][]byte
	var kept []entry
	for _, it := range q.items {
		switch {
		case it.epoch < current:
			// stale, drop
		case it.epoch == current:
			currentShares = append(currentShares, it.share)
		default:
			kept = append(kept, it)
		}
	}
	q.items = kept
	return currentShares
}
