/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"fmt"

	"github.com/Pesa/NFD/core"
	"github.com/Pesa/NFD/defn"
	enc "github.com/named-data/ndnd/std/encoding"
)

// StrategyFactory instantiates a strategy for a forwarding thread from its
// full strategy name (including any parameter components after the version).
type StrategyFactory func(fwThread *Thread, name enc.Name, version uint64) (Strategy, error)

// strategyEntry is one registered strategy type.
type strategyEntry struct {
	factory  StrategyFactory
	versions []uint64
}

// StrategyRegistry maps strategy names to factories. It is owned by whoever
// starts the forwarder and passed explicitly to each forwarding thread.
type StrategyRegistry struct {
	entries map[string]*strategyEntry
}

// NewStrategyRegistry creates an empty strategy registry.
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{entries: make(map[string]*strategyEntry)}
}

// Register adds a strategy type with its supported versions to the registry.
func (r *StrategyRegistry) Register(name string, versions []uint64, factory StrategyFactory) {
	r.entries[name] = &strategyEntry{factory: factory, versions: versions}
}

// Versions returns the registered versions for the named strategy.
func (r *StrategyRegistry) Versions(name string) []uint64 {
	if e, ok := r.entries[name]; ok {
		return e.versions
	}
	return nil
}

// DefaultStrategyRegistry returns a registry containing all built-in strategies.
func DefaultStrategyRegistry() *StrategyRegistry {
	r := NewStrategyRegistry()
	r.Register("best-route", []uint64{BestRouteVersion}, NewBestRoute)
	r.Register("multicast", []uint64{MulticastVersion}, NewMulticast)
	r.Register("asf", []uint64{AsfVersion}, NewAsfStrategy)
	return r
}

// MakeStrategyName builds the full name for a strategy with the given short
// name and version, e.g. /localhost/nfd/strategy/best-route/v=1.
func MakeStrategyName(name string, version uint64) enc.Name {
	return defn.STRATEGY_PREFIX.
		Append(enc.NewStringComponent(enc.TypeGenericNameComponent, name)).
		Append(enc.NewVersionComponent(version))
}

// Instantiate creates a strategy instance for the given thread from a full
// strategy name. The name must be under the strategy prefix, name a
// registered strategy, and carry a supported version component; any further
// components are strategy parameters validated by the strategy itself.
func (r *StrategyRegistry) Instantiate(fwThread *Thread, name enc.Name) (Strategy, error) {
	prefix := defn.STRATEGY_PREFIX
	if len(name) < len(prefix)+2 || !prefix.IsPrefix(name) {
		return nil, fmt.Errorf("invalid strategy name %s", name)
	}

	strategyComp := name[len(prefix)]
	versionComp := name[len(prefix)+1]
	if versionComp.Typ != enc.TypeVersionNameComponent {
		return nil, fmt.Errorf("strategy name %s has no version component", name)
	}
	version := versionComp.NumberVal()

	entry, ok := r.entries[strategyComp.String()]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %s", strategyComp)
	}

	versionOk := false
	for _, v := range entry.versions {
		if v == version {
			versionOk = true
			break
		}
	}
	if !versionOk {
		return nil, fmt.Errorf("unsupported version %d for strategy %s", version, strategyComp)
	}

	return entry.factory(fwThread, name, version)
}

// InstantiateAll instantiates every registered strategy at its default
// version for the given thread, plus one instance for each configured
// strategy choice name (which may carry parameters). The returned map is
// keyed by the hash of the full strategy name.
func (r *StrategyRegistry) InstantiateAll(fwThread *Thread) map[uint64]Strategy {
	strategies := make(map[uint64]Strategy)

	for name, entry := range r.entries {
		for _, version := range entry.versions {
			fullName := MakeStrategyName(name, version)
			strategy, err := entry.factory(fwThread, fullName, version)
			if err != nil {
				core.Log.Fatal(nil, "Unable to instantiate strategy", "strategy", fullName, "err", err)
			}
			strategies[fullName.Hash()] = strategy
			core.Log.Debug(nil, "Instantiated strategy", "strategy", fullName, "thread", fwThread.GetID())
		}
	}

	// Instantiate configured strategy choices (possibly parameterized)
	for _, choice := range core.C.Tables.StrategyChoice {
		name, err := enc.NameFromStr(choice.Strategy)
		if err != nil {
			core.Log.Fatal(nil, "Invalid strategy choice name", "strategy", choice.Strategy, "err", err)
			continue
		}
		if _, ok := strategies[name.Hash()]; ok {
			continue
		}
		strategy, err := r.Instantiate(fwThread, name)
		if err != nil {
			core.Log.Fatal(nil, "Unable to instantiate strategy", "strategy", name, "err", err)
			continue
		}
		strategies[name.Hash()] = strategy
		core.Log.Debug(nil, "Instantiated strategy", "strategy", name, "thread", fwThread.GetID())
	}

	return strategies
}
