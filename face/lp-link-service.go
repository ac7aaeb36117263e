/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package face

import (
	"fmt"
	"runtime"
	"time"

	"github.com/Pesa/NFD/core"
	defn "github.com/Pesa/NFD/defn"
	"github.com/Pesa/NFD/dispatch"
	enc "github.com/named-data/ndnd/std/encoding"
	spec "github.com/named-data/ndnd/std/ndn/spec_2022"
	"github.com/named-data/ndnd/std/types/optional"
)

// LpLinkServiceOptions contains the settings for an LpLinkService.
type LpLinkServiceOptions struct {
	IsConsumerControlledForwardingEnabled bool
	IsIncomingFaceIndicationEnabled       bool
	IsCongestionMarkingEnabled            bool

	BaseCongestionMarkingInterval   time.Duration
	DefaultCongestionThresholdBytes uint64
}

// MakeLpLinkServiceOptions returns the default link service options.
func MakeLpLinkServiceOptions() LpLinkServiceOptions {
	return LpLinkServiceOptions{
		BaseCongestionMarkingInterval:   100 * time.Millisecond,
		DefaultCongestionThresholdBytes: 1 << 16,
		IsCongestionMarkingEnabled:      CfgCongestionMarking(),
	}
}

// LpLinkService is a link service implementing the NDN link protocol.
// Fragmentation and reassembly are not supported; frames larger than the
// transport MTU are dropped.
type LpLinkService struct {
	linkServiceBase
	options LpLinkServiceOptions

	lastTimeCongestionMarked time.Time
}

// MakeLpLinkService creates a new link protocol link service.
func MakeLpLinkService(transport transport, options LpLinkServiceOptions) *LpLinkService {
	l := new(LpLinkService)
	l.makeLinkServiceBase()
	l.transport = transport
	l.transport.setLinkService(l)
	l.options = options
	return l
}

func (l *LpLinkService) String() string {
	if l.transport == nil {
		return "lp-link-service (no transport)"
	}
	return fmt.Sprintf("lp-link-service (faceid=%d remote=%s local=%s)",
		l.faceID, l.transport.RemoteURI(), l.transport.LocalURI())
}

// Options gets the settings of the LpLinkService.
func (l *LpLinkService) Options() LpLinkServiceOptions {
	return l.options
}

// Run starts the face and associated goroutines
func (l *LpLinkService) Run(initial []byte) {
	if l.transport == nil {
		core.Log.Error(l, "Unable to start face due to unset transport")
		return
	}

	// Add self to face table. Removed in runSend.
	FaceTable.Add(l)

	// Process initial incoming frame
	if initial != nil {
		l.handleIncomingFrame(initial)
	}

	// Start transport goroutines
	go l.runReceive()
	go l.runSend()
}

func (l *LpLinkService) runReceive() {
	if CfgLockThreadsToCores() {
		runtime.LockOSThread()
	}

	l.transport.runReceive()
	l.stopped <- true
}

func (l *LpLinkService) runSend() {
	if CfgLockThreadsToCores() {
		runtime.LockOSThread()
	}

	for {
		select {
		case out := <-l.sendQueue:
			l.sendPacket(out)
		case <-l.stopped:
			FaceTable.Remove(l.transport.FaceID())
			return
		}
	}
}

// sendPacket encodes and sends one outgoing packet on the transport.
func (l *LpLinkService) sendPacket(out dispatch.OutPkt) {
	pkt := out.Pkt
	wire := pkt.Raw

	// Counters
	if pkt.IsNack() {
		l.nOutNacks++
	} else if pkt.L3.Interest != nil {
		l.nOutInterests++
	} else if pkt.L3.Data != nil {
		l.nOutData++
	}

	// Congestion marking
	congestionMark := pkt.CongestionMark // from upstream
	if l.options.IsCongestionMarkingEnabled && l.checkCongestion() && !congestionMark.IsSet() {
		core.Log.Debug(l, "Marking congestion")
		congestionMark = optional.Some(uint64(1)) // ours
	}

	// A bare L3 packet is sufficient unless link protocol features are needed
	needLp := pkt.IsNack() || len(out.PitToken) > 0 || congestionMark.IsSet() ||
		l.options.IsIncomingFaceIndicationEnabled

	if needLp {
		lp := &spec.LpPacket{Fragment: wire}

		if len(out.PitToken) > 0 {
			lp.PitToken = out.PitToken
		}
		if reason, ok := pkt.NackReason.Get(); ok {
			lp.Nack = &spec.NetworkNack{Reason: reason}
		}
		if l.options.IsIncomingFaceIndicationEnabled {
			lp.IncomingFaceId = optional.Some(out.InFace)
		}
		if congestionMark.IsSet() {
			lp.CongestionMark = congestionMark
		}

		frame := &spec.Packet{LpPacket: lp}
		encoder := spec.PacketEncoder{}
		encoder.Init(frame)
		wire = encoder.Encode(frame)
		if wire == nil {
			core.Log.Error(l, "Unable to encode frame - DROP")
			return
		}
	}

	if int(wire.Length()) > l.transport.MTU() {
		core.Log.Info(l, "Attempted to send frame over MTU on link without fragmentation - DROP")
		return
	}

	l.transport.sendFrame(wire.Join())
}

// handleIncomingFrame processes one frame received by the transport.
func (l *LpLinkService) handleIncomingFrame(frame []byte) {
	// We have to copy so receive transport buffer can be reused
	frameCopy := make([]byte, len(frame))
	copy(frameCopy, frame)

	pkt := &defn.Pkt{
		IncomingFaceID: l.faceID,
	}

	wire := enc.Wire{frameCopy}
	L2, _, err := spec.ReadPacket(enc.NewWireView(wire))
	if err != nil {
		core.Log.Error(l, "Unable to decode incoming frame", "err", err)
		return
	}

	if L2.LpPacket == nil {
		// Bare Data or Interest packet
		pkt.Raw = wire
		pkt.L3 = L2
	} else {
		// Link protocol frame
		lp := L2.LpPacket
		fragment := lp.Fragment

		// If there is no fragment, then IDLE packet, drop.
		if len(fragment) == 0 {
			core.Log.Trace(l, "IDLE frame - DROP")
			return
		}

		if lp.FragCount.IsSet() || lp.FragIndex.IsSet() {
			core.Log.Warn(l, "Received frame with fragmentation fields but reassembly is not supported - DROP")
			return
		}

		// Congestion mark
		pkt.CongestionMark = lp.CongestionMark

		// Consumer-controlled forwarding (NextHopFaceId)
		if l.options.IsConsumerControlledForwardingEnabled {
			pkt.NextHopFaceID = lp.NextHopFaceId
		}

		// The PIT token is already in its own buffer
		pkt.PitToken = lp.PitToken

		// Network Nack header
		if lp.Nack != nil {
			pkt.NackReason = optional.Some(lp.Nack.Reason)
		}

		// Parse inner packet in place
		L3, _, err := spec.ReadPacket(enc.NewWireView(fragment))
		if err != nil {
			return
		}
		pkt.Raw = fragment
		pkt.L3 = L3
	}

	// Dispatch and update counters
	if pkt.IsNack() {
		if pkt.L3.Interest == nil {
			core.Log.Error(l, "Received Nack without Interest - DROP")
			return
		}
		pkt.Name = pkt.L3.Interest.NameV
		l.nInNacks++
		l.dispatchNack(pkt)
	} else if pkt.L3.Interest != nil {
		pkt.Name = pkt.L3.Interest.NameV
		l.nInInterests++
		l.dispatchInterest(pkt)
	} else if pkt.L3.Data != nil {
		pkt.Name = pkt.L3.Data.NameV
		l.nInData++
		l.dispatchData(pkt)
	} else {
		core.Log.Error(l, "Received packet of unknown type")
	}
}

// checkCongestion returns whether the link service's send queue is at least
// three-quarters full and the base congestion marking interval has elapsed
// since the last mark.
func (l *LpLinkService) checkCongestion() bool {
	now := time.Now()
	if now.Sub(l.lastTimeCongestionMarked) < l.options.BaseCongestionMarkingInterval {
		return false
	}

	// Transports here do not expose a send queue; mark only based on interval
	// elapsed since the last mark when the send channel is saturated.
	if len(l.sendQueue) >= cap(l.sendQueue)*3/4 {
		l.lastTimeCongestionMarked = now
		return true
	}
	return false
}
