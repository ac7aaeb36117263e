/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package face

import (
	"encoding/binary"
	"fmt"

	"github.com/Pesa/NFD/core"
	defn "github.com/Pesa/NFD/defn"
	"github.com/Pesa/NFD/dispatch"
	"github.com/Pesa/NFD/fw"
	spec_mgmt "github.com/named-data/ndnd/std/ndn/mgmt_2022"
)

// LinkService is an interface for link service implementations
type LinkService interface {
	String() string
	Transport() transport
	SetFaceID(faceID uint64)

	FaceID() uint64
	LocalURI() *defn.URI
	RemoteURI() *defn.URI
	Persistency() spec_mgmt.Persistency
	Scope() defn.Scope
	LinkType() defn.LinkType
	MTU() int
	State() defn.State

	// Run is the main entry point for running face thread
	Run(initial []byte)
	// Close the face
	Close()

	// SendPacket adds a packet to the send queue for this link service
	SendPacket(out dispatch.OutPkt)
	// handleIncomingFrame processes an incoming frame from the transport
	handleIncomingFrame(frame []byte)

	// Counters
	NInInterests() uint64
	NInData() uint64
	NOutInterests() uint64
	NOutData() uint64
}

// linkServiceBase is the type upon which all link service implementations
// should be built
type linkServiceBase struct {
	faceID    uint64
	transport transport
	stopped   chan bool
	sendQueue chan dispatch.OutPkt

	// Counters
	nInInterests  uint64
	nInData       uint64
	nInNacks      uint64
	nOutInterests uint64
	nOutData      uint64
	nOutNacks     uint64
}

func (l *linkServiceBase) makeLinkServiceBase() {
	l.stopped = make(chan bool)
	l.sendQueue = make(chan dispatch.OutPkt, CfgFaceQueueSize())
}

func (l *linkServiceBase) String() string {
	return fmt.Sprintf("link-service (faceid=%d)", l.faceID)
}

func (l *linkServiceBase) SetFaceID(faceID uint64) {
	l.faceID = faceID
	if l.transport != nil {
		l.transport.setFaceID(faceID)
	}
}

// Transport returns the transport for the face.
func (l *linkServiceBase) Transport() transport {
	return l.transport
}

func (l *linkServiceBase) FaceID() uint64 {
	return l.faceID
}

func (l *linkServiceBase) LocalURI() *defn.URI {
	return l.transport.LocalURI()
}

func (l *linkServiceBase) RemoteURI() *defn.URI {
	return l.transport.RemoteURI()
}

func (l *linkServiceBase) Persistency() spec_mgmt.Persistency {
	return l.transport.Persistency()
}

func (l *linkServiceBase) Scope() defn.Scope {
	return l.transport.Scope()
}

func (l *linkServiceBase) LinkType() defn.LinkType {
	return l.transport.LinkType()
}

func (l *linkServiceBase) MTU() int {
	return l.transport.MTU()
}

func (l *linkServiceBase) State() defn.State {
	if l.transport.IsRunning() {
		return defn.Up
	}
	return defn.Down
}

func (l *linkServiceBase) Close() {
	l.transport.Close()
}

// SendPacket adds a packet to the send queue for this link service
func (l *linkServiceBase) SendPacket(out dispatch.OutPkt) {
	select {
	case l.sendQueue <- out:
		// Packet queued successfully
	default:
		// Drop packet due to congestion
		core.Log.Warn(l, "Dropped packet due to congestion")
	}
}

// dispatchInterest passes an incoming Interest to the correct forwarding thread.
func (l *linkServiceBase) dispatchInterest(pkt *defn.Pkt) {
	if len(pkt.Name) == 0 {
		return
	}

	// Hash name to thread
	thread := fw.HashNameToFwThread(pkt.Name)
	fwThread := dispatch.GetFWThread(thread)
	if fwThread == nil {
		core.Log.Error(l, "Invalid forwarding thread", "thread", thread)
		return
	}
	fwThread.QueueInterest(pkt)
}

// dispatchData passes an incoming Data to the correct forwarding thread.
func (l *linkServiceBase) dispatchData(pkt *defn.Pkt) {
	if len(pkt.Name) == 0 {
		return
	}

	// If valid PIT token present, dispatch to that thread.
	if len(pkt.PitToken) == 6 {
		thread := int(binary.BigEndian.Uint16(pkt.PitToken))
		fwThread := dispatch.GetFWThread(thread)
		if fwThread != nil {
			fwThread.QueueData(pkt)
			return
		}
		// If invalid PIT token present, drop.
		core.Log.Debug(l, "Invalid PIT token attached to Data - DROP", "name", pkt.Name)
		return
	}

	// Dispatch to all threads matching a prefix of the name.
	for thread, match := range fw.HashNameToAllPrefixFwThreads(pkt.Name) {
		if match {
			dispatch.GetFWThread(thread).QueueData(pkt)
		}
	}
}

// dispatchNack passes an incoming Nack to the correct forwarding thread.
func (l *linkServiceBase) dispatchNack(pkt *defn.Pkt) {
	if len(pkt.Name) == 0 {
		return
	}

	// The nacked Interest was dispatched by its name hash.
	thread := fw.HashNameToFwThread(pkt.Name)
	fwThread := dispatch.GetFWThread(thread)
	if fwThread == nil {
		core.Log.Error(l, "Invalid forwarding thread", "thread", thread)
		return
	}
	fwThread.QueueNack(pkt)
}

func (l *linkServiceBase) NInInterests() uint64 {
	return l.nInInterests
}

func (l *linkServiceBase) NInData() uint64 {
	return l.nInData
}

func (l *linkServiceBase) NOutInterests() uint64 {
	return l.nOutInterests
}

func (l *linkServiceBase) NOutData() uint64 {
	return l.nOutData
}
