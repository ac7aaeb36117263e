/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"encoding/binary"
	"fmt"
	"runtime"

	"github.com/Pesa/NFD/core"
	"github.com/Pesa/NFD/defn"
	"github.com/Pesa/NFD/dispatch"
	"github.com/Pesa/NFD/table"
	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/utils"
)

// MaxFwThreads is the maximum number of forwarding threads
const MaxFwThreads = 32

// Threads contains all forwarding threads
var Threads []*Thread

// HashNameToFwThread hashes an NDN name to a forwarding thread.
func HashNameToFwThread(name enc.Name) int {
	// Dispatch all management requests to thread 0
	if len(name) > 0 && name[0].Equal(enc.LOCALHOST) {
		return 0
	}
	return int(name.Hash() % uint64(len(Threads)))
}

// HashNameToAllPrefixFwThreads hashes an NDN name to all forwarding threads
// for all prefixes of the name. The return value is a boolean map of which
// threads match the name.
func HashNameToAllPrefixFwThreads(name enc.Name) []bool {
	threads := make([]bool, len(Threads))

	// Dispatch all management requests to thread 0
	if len(name) > 0 && name[0].Equal(enc.LOCALHOST) {
		threads[0] = true
		return threads
	}

	prefixHash := name.PrefixHash()
	for i := 1; i < len(prefixHash); i++ {
		thread := int(prefixHash[i] % uint64(len(Threads)))
		threads[thread] = true
	}
	return threads
}

// Thread represents a forwarding thread
type Thread struct {
	threadID         int
	pendingInterests chan *defn.Pkt
	pendingDatas     chan *defn.Pkt
	pendingNacks     chan *defn.Pkt
	pitCS            table.PitCsTable
	measurements     *table.Measurements
	strategies       map[uint64]Strategy
	deadNonceList    *table.DeadNonceList
	shouldQuit       chan interface{}
	HasQuit          chan interface{}

	// Counters
	NInInterests          uint64
	NInData               uint64
	NInNacks              uint64
	NOutInterests         uint64
	NOutData              uint64
	NOutNacks             uint64
	NSatisfiedInterests   uint64
	NUnsatisfiedInterests uint64
}

// NewThread creates a new forwarding thread
func NewThread(registry *StrategyRegistry, id int) *Thread {
	t := new(Thread)
	t.threadID = id
	t.pendingInterests = make(chan *defn.Pkt, CfgFwQueueSize())
	t.pendingDatas = make(chan *defn.Pkt, CfgFwQueueSize())
	t.pendingNacks = make(chan *defn.Pkt, CfgFwQueueSize())
	t.pitCS = table.NewPitCS(t.finalizeInterest)
	t.measurements = table.NewMeasurements()
	t.strategies = registry.InstantiateAll(t)
	t.deadNonceList = table.NewDeadNonceList()
	t.shouldQuit = make(chan interface{}, 1)
	t.HasQuit = make(chan interface{})
	return t
}

func (t *Thread) String() string {
	return fmt.Sprintf("fw-thread-%d", t.threadID)
}

// GetID returns the ID of the forwarding thread
func (t *Thread) GetID() int {
	return t.threadID
}

// Measurements returns this thread's namespace measurements table.
func (t *Thread) Measurements() *table.Measurements {
	return t.measurements
}

// Counters returns the packet counters of this thread.
func (t *Thread) Counters() defn.FWThreadCounters {
	return defn.FWThreadCounters{
		NPitEntries:           t.pitCS.PitSize(),
		NCsEntries:            t.pitCS.CsSize(),
		NInInterests:          t.NInInterests,
		NInData:               t.NInData,
		NInNacks:              t.NInNacks,
		NOutInterests:         t.NOutInterests,
		NOutData:              t.NOutData,
		NOutNacks:             t.NOutNacks,
		NSatisfiedInterests:   t.NSatisfiedInterests,
		NUnsatisfiedInterests: t.NUnsatisfiedInterests,
	}
}

// TellToQuit tells the forwarding thread to quit
func (t *Thread) TellToQuit() {
	core.Log.Info(t, "Told to quit")
	t.shouldQuit <- true
}

// Run runs the forwarding thread loop.
func (t *Thread) Run() {
	if CfgLockThreadsToCores() {
		runtime.LockOSThread()
	}

	pitUpdateTimer := t.pitCS.UpdateTicker()
	for !core.ShouldQuit {
		select {
		case packet := <-t.pendingInterests:
			t.processIncomingInterest(packet)
		case packet := <-t.pendingDatas:
			t.processIncomingData(packet)
		case packet := <-t.pendingNacks:
			t.processIncomingNack(packet)
		case <-t.deadNonceList.Ticker.C:
			t.deadNonceList.RemoveExpiredEntries()
		case <-pitUpdateTimer:
			t.pitCS.Update()
			t.measurements.Prune()
		case <-t.shouldQuit:
			continue
		}
	}

	t.deadNonceList.Ticker.Stop()

	core.Log.Info(t, "Stopping thread")
	t.HasQuit <- true
}

// QueueInterest queues an Interest for processing by this forwarding thread.
func (t *Thread) QueueInterest(interest *defn.Pkt) {
	select {
	case t.pendingInterests <- interest:
	default:
		core.Log.Error(t, "Interest dropped due to full queue")
	}
}

// QueueData queues a Data packet for processing by this forwarding thread.
func (t *Thread) QueueData(data *defn.Pkt) {
	select {
	case t.pendingDatas <- data:
	default:
		core.Log.Error(t, "Data dropped due to full queue")
	}
}

// QueueNack queues a Nack packet for processing by this forwarding thread.
func (t *Thread) QueueNack(nack *defn.Pkt) {
	select {
	case t.pendingNacks <- nack:
	default:
		core.Log.Error(t, "Nack dropped due to full queue")
	}
}

// strategyFor returns the strategy choice for the given name.
func (t *Thread) strategyFor(name enc.Name) Strategy {
	strategyName := table.FibStrategyTable.FindStrategyEnc(name)
	strategy := t.strategies[strategyName.Hash()]
	if strategy == nil {
		core.Log.Error(t, "No instance for strategy choice, using default", "strategy", strategyName)
		strategy = t.strategies[defn.DEFAULT_STRATEGY.Hash()]
	}
	return strategy
}

func (t *Thread) processIncomingInterest(packet *defn.Pkt) {
	interest := packet.L3.Interest
	if interest == nil {
		panic("processIncomingInterest called with non-Interest packet")
	}

	// Already asserted that this is an Interest in link service
	// Get incoming face
	incomingFace := dispatch.GetFace(packet.IncomingFaceID)
	if incomingFace == nil {
		core.Log.Error(t, "Interest has non-existent incoming face", "faceid", packet.IncomingFaceID, "name", packet.Name)
		return
	}

	if interest.HopLimitV != nil {
		core.Log.Trace(t, "HopLimit check", "name", packet.Name, "hoplimit", *interest.HopLimitV)
		if *interest.HopLimitV == 0 {
			return
		}
		*interest.HopLimitV -= 1
	}

	// Log PIT token (if any)
	core.Log.Trace(t, "OnIncomingInterest", "name", packet.Name, "faceid", incomingFace.FaceID(), "pittoken", len(packet.PitToken))

	// Check if violates /localhost
	if incomingFace.Scope() == defn.NonLocal && len(packet.Name) > 0 && packet.Name[0].Equal(enc.LOCALHOST) {
		core.Log.Warn(t, "Interest from non-local face violates /localhost scope", "name", packet.Name, "faceid", incomingFace.FaceID())
		return
	}

	t.NInInterests++

	// Check for forwarding hint and, if present, determine if reaching producer region (and then strip forwarding hint)
	isReachingProducerRegion := true
	var fhName enc.Name = nil
	hint := interest.ForwardingHintV
	if hint != nil && len(hint.Names) > 0 {
		isReachingProducerRegion = false
		for _, fh := range hint.Names {
			if table.NetworkRegion.IsProducer(fh) {
				isReachingProducerRegion = true
				break
			} else if fhName == nil {
				fhName = fh
			}
		}
		if isReachingProducerRegion {
			fhName = nil
		}
	}

	// Drop packet if no nonce is found
	if !interest.NonceV.IsSet() {
		core.Log.Debug(t, "Interest is missing Nonce", "name", packet.Name)
		return
	}

	// Check if packet is in dead nonce list
	if exists := t.deadNonceList.Find(interest.NameV, interest.NonceV.Unwrap()); exists {
		core.Log.Debug(t, "Interest is looping (DNL)", "name", packet.Name, "nonce", interest.NonceV.Unwrap())
		t.sendNackDirect(packet, incomingFace, defn.NackReasonDuplicate)
		return
	}

	// Check if any matching PIT entries (and if duplicate)
	pitEntry, isDuplicate := t.pitCS.InsertInterest(interest, fhName, incomingFace.FaceID())
	if isDuplicate {
		// Interest loop - reply with a Duplicate Nack
		core.Log.Debug(t, "Interest is looping (PIT)", "name", packet.Name)
		t.sendNackDirect(packet, incomingFace, defn.NackReasonDuplicate)
		return
	}

	// Get strategy for name
	strategy := t.strategyFor(interest.NameV)

	// Add in-record and determine if already pending
	_, isAlreadyPending, prevNonce := pitEntry.InsertInRecord(
		interest, incomingFace.FaceID(), packet.PitToken)

	if !isAlreadyPending {
		core.Log.Trace(t, "Interest is not pending", "name", packet.Name)

		// Check CS for matching entry
		if t.pitCS.IsCsServing() {
			csEntry := t.pitCS.FindMatchingDataFromCS(interest)
			if csEntry != nil {
				// Parse the cached data packet and replace in the pending one.
				// This is not the fastest way to do it, but simplifies everything
				// significantly. We can optimize this later.
				csData, csWire, err := csEntry.Copy()
				if csData != nil && csWire != nil {
					packet.L3.Data = csData
					packet.L3.Interest = nil
					packet.Raw = enc.Wire{csWire}
					packet.Name = csData.NameV
					strategy.AfterContentStoreHit(packet, pitEntry, incomingFace.FaceID())
					return
				} else if err != nil {
					core.Log.Error(t, "Error copying CS entry", "err", err)
				} else {
					core.Log.Error(t, "Error copying CS entry", "err", "csData is nil")
				}
			}
		}
	} else {
		core.Log.Trace(t, "Interest is already pending", "name", packet.Name)

		// Add the previous nonce to the dead nonce list to prevent further looping
		t.deadNonceList.Insert(interest.NameV, prevNonce)
	}

	// Update PIT entry expiration timer to the latest pending downstream
	expiry := pitEntry.InRecords()[incomingFace.FaceID()].ExpirationTime
	for _, inRecord := range pitEntry.InRecords() {
		if inRecord.ExpirationTime.After(expiry) {
			expiry = inRecord.ExpirationTime
		}
	}
	table.UpdateExpirationTimer(pitEntry, expiry)

	// If NextHopFaceId set, forward to that face (if it exists) or drop
	if packet.NextHopFaceID.IsSet() {
		nextHopFaceID := packet.NextHopFaceID.Unwrap()
		if face := dispatch.GetFace(nextHopFaceID); face != nil {
			core.Log.Trace(t, "NextHopFaceId is set for Interest", "name", packet.Name)
			face.SendPacket(dispatch.OutPkt{
				Pkt:      packet,
				PitToken: packet.PitToken,
				InFace:   packet.IncomingFaceID,
			})
		} else {
			core.Log.Info(t, "Non-existent face specified in NextHopFaceId for Interest",
				"name", packet.Name, "faceid", nextHopFaceID)
		}
		return
	}

	// Use forwarding hint if present
	lookupName := interest.NameV
	if fhName != nil {
		lookupName = fhName
	}

	// Query the FIB for all possible nexthops
	nexthops := table.FibStrategyTable.FindNextHopsEnc(lookupName)

	// If the first component is /localhop, we do not forward interests received
	// on non-local faces to non-local faces
	localFacesOnly := incomingFace.Scope() != defn.Local && len(packet.Name) > 0 && packet.Name[0].Equal(enc.LOCALHOP)

	// Filter the nexthops that are allowed for this Interest
	allowedNexthops := make([]*table.FibNextHopEntry, 0, len(nexthops))
	for _, nexthop := range nexthops {
		// Exclude incoming face
		if nexthop.Nexthop == packet.IncomingFaceID {
			continue
		}

		// Exclude non-local faces for localhop enforcement
		if localFacesOnly {
			if face := dispatch.GetFace(nexthop.Nexthop); face != nil && face.Scope() != defn.Local {
				continue
			}
		}

		allowedNexthops = append(allowedNexthops, nexthop)
	}

	// Pass to strategy AfterReceiveInterest pipeline
	strategy.AfterReceiveInterest(packet, pitEntry, incomingFace.FaceID(), allowedNexthops)
}

func (t *Thread) processOutgoingInterest(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	nexthop uint64,
	inFace uint64,
) bool {
	interest := packet.L3.Interest
	if interest == nil {
		panic("processOutgoingInterest called with non-Interest packet")
	}

	core.Log.Trace(t, "OnOutgoingInterest", "name", packet.Name, "faceid", nexthop)

	// Get outgoing face
	outgoingFace := dispatch.GetFace(nexthop)
	if outgoingFace == nil {
		core.Log.Error(t, "Non-existent nexthop", "name", packet.Name, "faceid", nexthop)
		return false
	}
	if outgoingFace.FaceID() == inFace && outgoingFace.LinkType() != defn.AdHoc {
		core.Log.Debug(t, "Prevent send Interest back to incoming face", "name", packet.Name, "faceid", nexthop)
		return false
	}

	// Drop if HopLimit (if present) on Interest going to non-local face is 0
	if interest.HopLimitV != nil && int(*interest.HopLimitV) == 0 &&
		outgoingFace.Scope() == defn.NonLocal {
		core.Log.Debug(t, "Prevent send Interest with HopLimit=0 to non-local face", "name", packet.Name, "faceid", nexthop)
		return false
	}

	// Create or update out-record
	pitEntry.InsertOutRecord(interest, nexthop)

	t.NOutInterests++

	// Make new PIT token if needed
	pitToken := make([]byte, 6)
	binary.BigEndian.PutUint16(pitToken, uint16(t.threadID))
	binary.BigEndian.PutUint32(pitToken[2:], pitEntry.Token())

	// Send on outgoing face
	outgoingFace.SendPacket(dispatch.OutPkt{
		Pkt:      packet,
		PitToken: pitToken,
		InFace:   inFace,
	})

	return true
}

// finalizeInterest is called when a PIT entry expires. For entries that were
// never satisfied, the strategy is notified so it can record timeouts for
// each pending upstream.
func (t *Thread) finalizeInterest(pitEntry table.PitEntry) {
	if !pitEntry.Satisfied() && len(pitEntry.OutRecords()) > 0 {
		strategy := t.strategyFor(pitEntry.EncName())
		strategy.AfterInterestTimedOut(pitEntry)
	}

	// Check for nonces to insert into dead nonce list
	for _, outRecord := range pitEntry.OutRecords() {
		t.deadNonceList.Insert(outRecord.LatestInterest, outRecord.LatestNonce)
	}

	// Counters
	if !pitEntry.Satisfied() {
		t.NUnsatisfiedInterests += uint64(len(pitEntry.InRecords()))
	}
}

func (t *Thread) processIncomingData(packet *defn.Pkt) {
	data := packet.L3.Data
	if data == nil {
		panic("processIncomingData called with non-Data packet")
	}

	// Get PIT if present
	var pitToken *uint32
	//lint:ignore S1009 removing the nil check causes a segfault ¯\_(ツ)_/¯
	if packet.PitToken != nil && len(packet.PitToken) == 6 {
		pitToken = utils.IdPtr(binary.BigEndian.Uint32(packet.PitToken[2:6]))
	}

	// Get incoming face
	incomingFace := dispatch.GetFace(packet.IncomingFaceID)
	if incomingFace == nil {
		core.Log.Error(t, "Non-existent incoming face for Data", "name", packet.Name, "faceid", packet.IncomingFaceID)
		return
	}

	t.NInData++

	// Check if violates /localhost
	if incomingFace.Scope() == defn.NonLocal && len(packet.Name) > 0 && packet.Name[0].Equal(enc.LOCALHOST) {
		core.Log.Warn(t, "Data from non-local face violates /localhost scope", "name", packet.Name, "faceid", packet.IncomingFaceID)
		return
	}

	// Add to Content Store
	if t.pitCS.IsCsAdmitting() {
		t.pitCS.InsertData(data, packet.Raw.Join())
	}

	// Check for matching PIT entries
	pitEntries := t.pitCS.FindInterestPrefixMatchByDataEnc(data, pitToken)
	if len(pitEntries) == 0 {
		// Unsolicited Data - nothing more to do
		core.Log.Debug(t, "Unsolicited data", "name", packet.Name, "faceid", packet.IncomingFaceID)
		return
	}

	// Get strategy for name
	strategy := t.strategyFor(data.NameV)

	if len(pitEntries) == 1 {
		// When a single PIT entry matches, we pass the data to the strategy.
		// See alternative behavior for multiple matches below.
		pitEntry := pitEntries[0]

		// Set PIT entry expiration to now
		table.SetExpirationTimerToNow(pitEntry)

		// Invoke strategy's AfterReceiveData
		core.Log.Trace(t, "Sending Data", "name", packet.Name, "strategy", strategy)
		strategy.AfterReceiveData(packet, pitEntry, packet.IncomingFaceID)

		// Mark PIT entry as satisfied
		pitEntry.SetSatisfied(true)

		// Insert into dead nonce list
		for _, outRecord := range pitEntry.OutRecords() {
			t.deadNonceList.Insert(data.NameV, outRecord.LatestNonce)
		}

		// Clear out records from PIT entry
		pitEntry.ClearInRecords()
		pitEntry.ClearOutRecords()
	} else {
		// Multiple PIT entries can match when two interests have e.g. different
		// flags like CanBePrefix, or different forwarding hints. In this case,
		// we send to all downstream faces without consulting the strategy.
		for _, pitEntry := range pitEntries {
			// Store all pending downstreams (except face Data packet arrived on) and PIT tokens
			downstreams := make(map[uint64][]byte)
			for face, record := range pitEntry.InRecords() {
				if face != packet.IncomingFaceID {
					downstreams[face] = make([]byte, len(record.PitToken))
					copy(downstreams[face], record.PitToken)
				}
			}

			// Set PIT entry expiration to now
			table.SetExpirationTimerToNow(pitEntry)

			// Invoke strategy's BeforeSatisfyInterest
			strategy.BeforeSatisfyInterest(pitEntry, packet.IncomingFaceID)

			// Mark PIT entry as satisfied
			pitEntry.SetSatisfied(true)

			// Insert into dead nonce list
			for _, outRecord := range pitEntry.OutRecords() {
				t.deadNonceList.Insert(data.NameV, outRecord.LatestNonce)
			}

			// Clear PIT entry's in- and out-records
			pitEntry.ClearInRecords()
			pitEntry.ClearOutRecords()

			// Call outgoing Data pipeline for each pending downstream
			for face, token := range downstreams {
				core.Log.Trace(t, "Multiple PIT entries for Data", "name", packet.Name)
				t.processOutgoingData(packet, face, token, packet.IncomingFaceID)
			}
		}
	}
}

func (t *Thread) processOutgoingData(
	packet *defn.Pkt,
	nexthop uint64,
	pitToken []byte,
	inFace uint64,
) {
	data := packet.L3.Data
	if data == nil {
		panic("processOutgoingData called with non-Data packet")
	}

	core.Log.Trace(t, "OnOutgoingData", "name", packet.Name, "faceid", nexthop)

	// Get outgoing face
	outgoingFace := dispatch.GetFace(nexthop)
	if outgoingFace == nil {
		core.Log.Error(t, "Non-existent nexthop for Data", "name", packet.Name, "faceid", nexthop)
		return
	}

	// Check if violates /localhost
	if outgoingFace.Scope() == defn.NonLocal && len(packet.Name) > 0 && packet.Name[0].Equal(enc.LOCALHOST) {
		core.Log.Warn(t, "Data cannot be sent to non-local face since violates /localhost scope", "name", packet.Name, "faceid", nexthop)
		return
	}

	t.NOutData++
	t.NSatisfiedInterests++

	// Send on outgoing face
	outgoingFace.SendPacket(dispatch.OutPkt{
		Pkt:      packet,
		PitToken: pitToken,
		InFace:   inFace,
	})
}

func (t *Thread) processIncomingNack(packet *defn.Pkt) {
	interest := packet.L3.Interest
	if interest == nil || !packet.IsNack() {
		panic("processIncomingNack called with non-Nack packet")
	}
	reason := packet.NackReason.Unwrap()

	// Get incoming face
	incomingFace := dispatch.GetFace(packet.IncomingFaceID)
	if incomingFace == nil {
		core.Log.Error(t, "Nack has non-existent incoming face", "faceid", packet.IncomingFaceID, "name", packet.Name)
		return
	}

	// Nacks are not accepted on multi-access links
	if incomingFace.LinkType() == defn.MultiAccess {
		core.Log.Debug(t, "Nack received on multi-access face - DROP", "name", packet.Name)
		return
	}

	t.NInNacks++

	core.Log.Trace(t, "OnIncomingNack", "name", packet.Name, "faceid", packet.IncomingFaceID,
		"reason", defn.NackReasonString(reason))

	// The nacked Interest must carry a nonce to be matched to an out-record
	if !interest.NonceV.IsSet() {
		core.Log.Debug(t, "Nack is missing Nonce - DROP", "name", packet.Name)
		return
	}

	// Check for matching PIT entry
	pitEntry := t.pitCS.FindInterestExactMatchEnc(interest)
	if pitEntry == nil {
		core.Log.Debug(t, "Nack for non-pending Interest - DROP", "name", packet.Name)
		return
	}

	// The Nack must match an outstanding out-record by face and nonce
	outRecord := pitEntry.OutRecords()[packet.IncomingFaceID]
	if outRecord == nil || outRecord.LatestNonce != interest.NonceV.Unwrap() {
		core.Log.Debug(t, "Nack does not match an out-record - DROP", "name", packet.Name)
		return
	}
	outRecord.NackReason = reason

	// Pass to strategy AfterReceiveNack pipeline
	strategy := t.strategyFor(interest.NameV)
	strategy.AfterReceiveNack(packet, pitEntry, packet.IncomingFaceID)
}

// processOutgoingNack sends a Nack for the packet's Interest to a downstream face.
func (t *Thread) processOutgoingNack(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	downstream uint64,
	reason uint64,
) {
	core.Log.Trace(t, "OnOutgoingNack", "name", packet.Name, "faceid", downstream,
		"reason", defn.NackReasonString(reason))

	// Get downstream face
	downstreamFace := dispatch.GetFace(downstream)
	if downstreamFace == nil {
		core.Log.Error(t, "Non-existent downstream for Nack", "name", packet.Name, "faceid", downstream)
		return
	}

	// The Nack is tied to the in-record's PIT token; without an in-record
	// there is no pending downstream to nack.
	inRecord, ok := pitEntry.InRecords()[downstream]
	if !ok {
		core.Log.Debug(t, "No in-record for downstream - DROP Nack", "name", packet.Name, "faceid", downstream)
		return
	}

	nackPkt := packet.CopyForNack(reason)

	t.NOutNacks++

	downstreamFace.SendPacket(dispatch.OutPkt{
		Pkt:      nackPkt,
		PitToken: inRecord.PitToken,
		InFace:   packet.IncomingFaceID,
	})

	pitEntry.RemoveInRecord(downstream)
}

// sendNackDirect sends a Nack toward a face without consulting a PIT entry;
// used for loop rejections before any in-record exists.
func (t *Thread) sendNackDirect(packet *defn.Pkt, face dispatch.Face, reason uint64) {
	if face.LinkType() == defn.MultiAccess {
		return
	}
	t.NOutNacks++
	face.SendPacket(dispatch.OutPkt{
		Pkt:      packet.CopyForNack(reason),
		PitToken: packet.PitToken,
		InFace:   packet.IncomingFaceID,
	})
}
