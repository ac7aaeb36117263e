/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package table

import (
	"container/list"
	"time"

	"github.com/cespare/xxhash"
	enc "github.com/named-data/ndnd/std/encoding"
)

// deadNonceListEntry is a queued (name, nonce) hash awaiting expiration.
type deadNonceListEntry struct {
	hash    uint64
	expires time.Time
}

// DeadNonceList represents the Dead Nonce List for a forwarding thread.
type DeadNonceList struct {
	list            map[uint64]struct{}
	expiringEntries list.List
	lifetime        time.Duration
	Ticker          *time.Ticker
}

// NewDeadNonceList creates a new Dead Nonce List for a forwarding thread.
func NewDeadNonceList() *DeadNonceList {
	d := &DeadNonceList{
		list:     make(map[uint64]struct{}),
		lifetime: CfgDeadNonceListLifetime(),
	}
	d.Ticker = time.NewTicker(d.lifetime / 4)
	return d
}

func hashNameNonce(name enc.Name, nonce uint32) uint64 {
	return xxhash.Sum64(name.Bytes()) + uint64(nonce)
}

// Find returns whether the specified name and nonce combination are present
// in the Dead Nonce List.
func (d *DeadNonceList) Find(name enc.Name, nonce uint32) bool {
	_, ok := d.list[hashNameNonce(name, nonce)]
	return ok
}

// Insert inserts an entry in the Dead Nonce List with the specified name and
// nonce. Returns whether the entry was already present.
func (d *DeadNonceList) Insert(name enc.Name, nonce uint32) bool {
	hash := hashNameNonce(name, nonce)
	_, exists := d.list[hash]
	if !exists {
		d.list[hash] = struct{}{}
		d.expiringEntries.PushBack(deadNonceListEntry{
			hash:    hash,
			expires: time.Now().Add(d.lifetime),
		})
	}
	return exists
}

// RemoveExpiredEntries removes all entries that have outlived the
// configured dead nonce list lifetime.
func (d *DeadNonceList) RemoveExpiredEntries() {
	now := time.Now()
	for d.expiringEntries.Len() > 0 {
		front := d.expiringEntries.Front()
		entry := front.Value.(deadNonceListEntry)
		if entry.expires.After(now) {
			break
		}
		delete(d.list, entry.hash)
		d.expiringEntries.Remove(front)
	}
}
