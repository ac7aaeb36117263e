/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package table

import (
	"time"

	enc "github.com/named-data/ndnd/std/encoding"
)

// Measurements is a namespace measurements table for one forwarding thread.
// Strategies attach per-namespace state to entries; entries are retained
// for their requested lifetime and pruned afterwards.
// Warning: all methods must be called from the owning forwarding goroutine.
type Measurements struct {
	root     *measurementsTreeNode
	nEntries int
}

// MeasurementsEntry is one namespace entry in the measurements table.
type MeasurementsEntry struct {
	node   *measurementsTreeNode
	name   enc.Name
	info   any
	expiry time.Time
}

type measurementsTreeNode struct {
	component enc.Component
	name      enc.Name
	depth     int

	parent   *measurementsTreeNode
	children map[uint64]*measurementsTreeNode

	entry *MeasurementsEntry
}

// NewMeasurements creates a new measurements table.
func NewMeasurements() *Measurements {
	m := new(Measurements)
	m.root = &measurementsTreeNode{
		component: enc.Component{},
		children:  make(map[uint64]*measurementsTreeNode),
	}
	return m
}

// Name returns the namespace this entry is attached to.
func (e *MeasurementsEntry) Name() enc.Name {
	return e.name
}

// Info returns the strategy-owned state attached to this entry.
func (e *MeasurementsEntry) Info() any {
	return e.info
}

// SetInfo attaches strategy-owned state to this entry.
func (e *MeasurementsEntry) SetInfo(info any) {
	e.info = info
}

// Size returns the number of entries in the measurements table.
func (m *Measurements) Size() int {
	return m.nEntries
}

// FindLongestPrefixEnc returns the deepest entry whose namespace is a prefix
// of the given name, or nil if there is none.
func (m *Measurements) FindLongestPrefixEnc(name enc.Name) *MeasurementsEntry {
	node := m.root.findLongestPrefixEnc(name)
	for ; node != nil; node = node.parent {
		if node.entry != nil {
			return node.entry
		}
	}
	return nil
}

// GetOrCreateEnc returns the entry for the exact given namespace,
// creating it with the given lifetime if it does not exist.
func (m *Measurements) GetOrCreateEnc(name enc.Name, lifetime time.Duration) *MeasurementsEntry {
	node := m.root.fillTreeToPrefixEnc(name)
	if node.entry == nil {
		node.entry = &MeasurementsEntry{
			node:   node,
			name:   node.name,
			expiry: time.Now().Add(lifetime),
		}
		m.nEntries++
	}
	return node.entry
}

// ExtendLifetime keeps the entry alive for at least the given lifetime from now.
func (m *Measurements) ExtendLifetime(entry *MeasurementsEntry, lifetime time.Duration) {
	expiry := time.Now().Add(lifetime)
	if entry.expiry.Before(expiry) {
		entry.expiry = expiry
	}
}

// Prune removes all entries whose lifetime has elapsed.
func (m *Measurements) Prune() {
	m.pruneNode(m.root, time.Now())
}

func (m *Measurements) pruneNode(node *measurementsTreeNode, now time.Time) {
	for _, child := range node.children {
		m.pruneNode(child, now)
	}

	if node.entry != nil && node.entry.expiry.Before(now) {
		node.entry.node = nil
		node.entry = nil
		m.nEntries--
	}

	if node.parent != nil && len(node.children) == 0 && node.entry == nil {
		delete(node.parent.children, node.component.Hash())
	}
}

func (n *measurementsTreeNode) findLongestPrefixEnc(name enc.Name) *measurementsTreeNode {
	if len(name) > n.depth {
		if child, ok := n.children[At(name, n.depth).Hash()]; ok {
			return child.findLongestPrefixEnc(name)
		}
	}
	return n
}

func (n *measurementsTreeNode) fillTreeToPrefixEnc(name enc.Name) *measurementsTreeNode {
	node := n.findLongestPrefixEnc(name)

	for depth := node.depth; depth < len(name); depth++ {
		component := At(name, depth).Clone()

		child := &measurementsTreeNode{
			name:      node.name.Append(component),
			depth:     depth + 1,
			component: component,
			parent:    node,
			children:  make(map[uint64]*measurementsTreeNode),
		}

		node.children[component.Hash()] = child
		node = child
	}
	return node
}
