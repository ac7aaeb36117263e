/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package face

import (
	"fmt"

	"github.com/Pesa/NFD/core"
	defn "github.com/Pesa/NFD/defn"
	enc "github.com/named-data/ndnd/std/encoding"
	spec_mgmt "github.com/named-data/ndnd/std/ndn/mgmt_2022"
	spec "github.com/named-data/ndnd/std/ndn/spec_2022"
)

// InternalTransport is a transport for use by internal modules
// (in-process applications and tests).
type InternalTransport struct {
	recvQueue chan []byte // Contains pending frames sent to the internal component
	sendQueue chan []byte // Contains pending frames sent by the internal component
	transportBase
}

// MakeInternalTransport makes an InternalTransport.
func MakeInternalTransport() *InternalTransport {
	t := new(InternalTransport)
	t.makeTransportBase(
		defn.MakeInternalFaceURI(),
		defn.MakeInternalFaceURI(),
		spec_mgmt.PersistencyPersistent,
		defn.Local,
		defn.PointToPoint,
		defn.MaxNDNPacketSize)
	t.recvQueue = make(chan []byte, CfgFaceQueueSize())
	t.sendQueue = make(chan []byte, CfgFaceQueueSize())
	t.running.Store(true)
	return t
}

// RegisterInternalTransport creates, registers, and starts an InternalTransport.
func RegisterInternalTransport() (LinkService, *InternalTransport) {
	transport := MakeInternalTransport()

	options := MakeLpLinkServiceOptions()
	options.IsIncomingFaceIndicationEnabled = true
	options.IsConsumerControlledForwardingEnabled = true
	link := MakeLpLinkService(transport, options)
	link.Run(nil)

	return link, transport
}

func (t *InternalTransport) String() string {
	return fmt.Sprintf("internal-transport (faceid=%d remote=%s local=%s)", t.faceID, t.remoteURI, t.localURI)
}

// SetPersistency changes the persistency of the face.
func (t *InternalTransport) SetPersistency(persistency spec_mgmt.Persistency) bool {
	if persistency == t.persistency {
		return true
	}

	if persistency == spec_mgmt.PersistencyPersistent {
		t.persistency = persistency
		return true
	}

	return false
}

// Send sends a packet from the perspective of the internal component.
func (t *InternalTransport) Send(lpPkt *spec.LpPacket) {
	pkt := &spec.Packet{LpPacket: lpPkt}
	encoder := spec.PacketEncoder{}
	encoder.Init(pkt)
	wire := encoder.Encode(pkt)
	if wire == nil {
		core.Log.Warn(t, "Unable to encode frame to send - DROP")
		return
	}
	t.sendQueue <- wire.Join()
}

// Receive receives a packet from the perspective of the internal component.
func (t *InternalTransport) Receive() *spec.LpPacket {
	for frame := range t.recvQueue {
		pkt, _, err := spec.ReadPacket(enc.NewBufferView(frame))
		if err != nil {
			core.Log.Warn(t, "Unable to decode received frame - DROP", "err", err)
			continue
		}

		lpPkt := pkt.LpPacket
		if lpPkt == nil || lpPkt.Fragment.Length() == 0 {
			core.Log.Warn(t, "Received empty fragment - DROP")
			continue
		}

		return lpPkt
	}

	return nil
}

func (t *InternalTransport) sendFrame(frame []byte) {
	if len(frame) > t.MTU() {
		core.Log.Warn(t, "Attempted to send frame larger than MTU - DROP")
		return
	}

	t.nOutBytes += uint64(len(frame))

	frameCopy := make([]byte, len(frame))
	copy(frameCopy, frame)
	t.recvQueue <- frameCopy
}

func (t *InternalTransport) runReceive() {
	for frame := range t.sendQueue {
		if len(frame) > defn.MaxNDNPacketSize {
			core.Log.Warn(t, "Component trying to send too much data - DROP")
			continue
		}

		t.nInBytes += uint64(len(frame))
		t.linkService.handleIncomingFrame(frame)
	}
}

func (t *InternalTransport) Close() {
	if t.running.Swap(false) {
		// do not close the send queue, let it be garbage collected
		close(t.recvQueue)
	}
}
