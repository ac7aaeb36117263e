/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"sort"
	"time"

	"github.com/Pesa/NFD/core"
	"github.com/Pesa/NFD/defn"
	"github.com/Pesa/NFD/table"
	enc "github.com/named-data/ndnd/std/encoding"
)

// BestRouteVersion is the version of the BestRoute strategy.
const BestRouteVersion = 1

// BestRouteSuppressionTime is the time to suppress retransmissions of the same Interest.
const BestRouteSuppressionTime = 400 * time.Millisecond

// BestRoute is a forwarding strategy that forwards Interests
// to the nexthop with the lowest cost.
type BestRoute struct {
	StrategyBase
}

// NewBestRoute creates a BestRoute strategy instance for a forwarding thread.
func NewBestRoute(fwThread *Thread, name enc.Name, version uint64) (Strategy, error) {
	s := &BestRoute{}
	s.NewStrategyBase(fwThread, name, version, "BestRoute")
	return s, nil
}

func (s *BestRoute) AfterContentStoreHit(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
) {
	core.Log.Trace(s, "AfterContentStoreHit", "name", packet.Name, "faceid", inFace)
	s.SendData(packet, pitEntry, inFace, 0) // 0 indicates ContentStore is source
}

func (s *BestRoute) AfterReceiveData(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
) {
	core.Log.Trace(s, "AfterReceiveData", "name", packet.Name, "inrecords", len(pitEntry.InRecords()))
	for faceID := range pitEntry.InRecords() {
		core.Log.Trace(s, "Forwarding Data", "name", packet.Name, "faceid", faceID)
		s.SendData(packet, pitEntry, faceID, inFace)
	}
}

func (s *BestRoute) AfterReceiveInterest(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
	nexthops []*table.FibNextHopEntry,
) {
	if len(nexthops) == 0 {
		core.Log.Debug(s, "No nexthop found - NO_ROUTE", "name", packet.Name)
		s.SendNack(packet, pitEntry, inFace, defn.NackReasonNoRoute)
		table.SetExpirationTimerToNow(pitEntry)
		return
	}

	// Sort nexthops by cost and send to best-possible nexthop
	sort.Slice(nexthops, func(i, j int) bool { return nexthops[i].Cost < nexthops[j].Cost })

	now := time.Now()
	for pass := range 2 {
		for _, nh := range nexthops {
			// In the first pass, skip hops that already have an out record
			if pass == 0 {
				if oR := pitEntry.OutRecords()[nh.Nexthop]; oR != nil {
					// Suppress retransmissions of the same Interest within suppression time
					if oR.LatestTimestamp.Add(BestRouteSuppressionTime).After(now) {
						core.Log.Debug(s, "Suppressed Interest - DROP", "name", packet.Name)
						return
					}

					// If an out record exists, skip this hop
					continue
				}
			}

			// For the second pass, we should ideally use the least recently tried hop.
			// But then we need to resort the list - this is just faster for now.
			// In densely connected networks, this is not a big deal.

			core.Log.Trace(s, "Forwarding Interest", "name", packet.Name, "faceid", nh.Nexthop)
			if sent := s.SendInterest(packet, pitEntry, nh.Nexthop, inFace); sent {
				return
			}
		}
	}

	core.Log.Debug(s, "No usable nexthop for Interest - DROP", "name", packet.Name)
}

func (s *BestRoute) AfterReceiveNack(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
) {
	// Propagate the Nack to all downstreams once every upstream has nacked
	for _, outRecord := range pitEntry.OutRecords() {
		if outRecord.NackReason == defn.NackReasonNone {
			return
		}
	}

	core.Log.Debug(s, "All upstreams nacked - propagating", "name", packet.Name)
	for faceID := range pitEntry.InRecords() {
		s.SendNack(packet, pitEntry, faceID, packet.NackReason.Unwrap())
	}
	table.SetExpirationTimerToNow(pitEntry)
}

func (s *BestRoute) AfterInterestTimedOut(pitEntry table.PitEntry) {
	// This does nothing in BestRoute
}

func (s *BestRoute) BeforeSatisfyInterest(pitEntry table.PitEntry, inFace uint64) {
	// This does nothing in BestRoute
}
