/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"fmt"

	"github.com/Pesa/NFD/defn"
	"github.com/Pesa/NFD/table"
	enc "github.com/named-data/ndnd/std/encoding"
)

// Strategy represents a forwarding strategy.
type Strategy interface {
	String() string
	GetName() enc.Name

	AfterContentStoreHit(
		packet *defn.Pkt,
		pitEntry table.PitEntry,
		inFace uint64)
	AfterReceiveData(
		packet *defn.Pkt,
		pitEntry table.PitEntry,
		inFace uint64)
	AfterReceiveInterest(
		packet *defn.Pkt,
		pitEntry table.PitEntry,
		inFace uint64,
		nexthops []*table.FibNextHopEntry)
	AfterReceiveNack(
		packet *defn.Pkt,
		pitEntry table.PitEntry,
		inFace uint64)
	AfterInterestTimedOut(
		pitEntry table.PitEntry)
	BeforeSatisfyInterest(
		pitEntry table.PitEntry,
		inFace uint64)
}

// StrategyBase provides common helper methods for forwarding strategies.
type StrategyBase struct {
	thread   *Thread
	threadID int
	name     enc.Name
	version  uint64
	logName  string
}

// NewStrategyBase is a helper that allows specific strategies to initialize the base.
// The full instantiated strategy name is passed in, including any parameter components.
func (s *StrategyBase) NewStrategyBase(
	fwThread *Thread,
	name enc.Name,
	version uint64,
	logName string,
) {
	s.thread = fwThread
	s.threadID = -1
	if fwThread != nil {
		s.threadID = fwThread.threadID
	}
	s.name = name
	s.version = version
	s.logName = logName
}

func (s *StrategyBase) String() string {
	return fmt.Sprintf("%s (v=%d t=%d)", s.logName, s.version, s.threadID)
}

// GetName returns the name of strategy, including version information.
func (s *StrategyBase) GetName() enc.Name {
	return s.name
}

// SendInterest sends an Interest on the specified face.
func (s *StrategyBase) SendInterest(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	nexthop uint64,
	inFace uint64,
) bool {
	return s.thread.processOutgoingInterest(packet, pitEntry, nexthop, inFace)
}

// SendData sends a Data packet on the specified face.
func (s *StrategyBase) SendData(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	nexthop uint64,
	inFace uint64,
) {
	var pitToken []byte
	if inRecord, ok := pitEntry.InRecords()[nexthop]; ok {
		pitToken = inRecord.PitToken
		pitEntry.RemoveInRecord(nexthop)
	}
	s.thread.processOutgoingData(packet, nexthop, pitToken, inFace)
}

// SendNack sends a Nack for the packet's Interest to the specified downstream face.
func (s *StrategyBase) SendNack(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	downstream uint64,
	reason uint64,
) {
	s.thread.processOutgoingNack(packet, pitEntry, downstream, reason)
}
