/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package table

import (
	enc "github.com/named-data/ndnd/std/encoding"
)

// FibNextHopEntry represents a nexthop in a FIB entry.
type FibNextHopEntry struct {
	Nexthop uint64
	Cost    uint64
}

// FibStrategyEntry represents an entry in the FIB-Strategy table.
type FibStrategyEntry interface {
	Name() enc.Name
	GetStrategy() enc.Name
	GetNextHops() []*FibNextHopEntry
}

// baseFibStrategyEntry represents information that all
// FibStrategyEntry implementations should include.
type baseFibStrategyEntry struct {
	component enc.Component
	name      enc.Name
	nexthops  []*FibNextHopEntry
	strategy  enc.Name
}

func (e *baseFibStrategyEntry) Name() enc.Name {
	return e.name
}

func (e *baseFibStrategyEntry) GetStrategy() enc.Name {
	return e.strategy
}

func (e *baseFibStrategyEntry) GetNextHops() []*FibNextHopEntry {
	return e.nexthops
}

// FibStrategy represents the functionality that a FIB-strategy table should implement.
type FibStrategy interface {
	FindNextHopsEnc(name enc.Name) []*FibNextHopEntry
	// FindLongestPrefixNexthopsEnc returns the name of the FIB entry
	// supplying the nexthops for the given name, along with the nexthops.
	FindLongestPrefixNexthopsEnc(name enc.Name) (enc.Name, []*FibNextHopEntry)
	FindStrategyEnc(name enc.Name) enc.Name
	InsertNextHopEnc(name enc.Name, nextHop uint64, cost uint64)
	ClearNextHopsEnc(name enc.Name)
	RemoveNextHopEnc(name enc.Name, nextHop uint64)
	GetNumFIBEntries() int
	GetAllFIBEntries() []FibStrategyEntry

	SetStrategyEnc(name enc.Name, strategy enc.Name)
	UnSetStrategyEnc(name enc.Name)
	GetAllForwardingStrategies() []FibStrategyEntry
}

// FibStrategyTable is a table containing FIB and Strategy entries for given prefixes.
var FibStrategyTable FibStrategy
