/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Pesa/NFD/core"
	"github.com/Pesa/NFD/defn"
	"github.com/Pesa/NFD/table"
	enc "github.com/named-data/ndnd/std/encoding"
	spec "github.com/named-data/ndnd/std/ndn/spec_2022"
	"github.com/named-data/ndnd/std/types/optional"
)

// AsfVersion is the version of the ASF strategy.
const AsfVersion = 4

// Default ASF parameters.
const (
	AsfDefaultMaxTimeouts          = 3
	AsfDefaultMeasurementsLifetime = 5 * time.Minute
	asfMinMeasurementsLifetime     = 1 * time.Minute
)

// AsfStrategy is an adaptive SRTT-based forwarding strategy. It forwards
// Interests over the upstream with the lowest smoothed RTT, periodically
// probes alternate upstreams, suppresses bursts of retransmissions per
// upstream, and demotes upstreams that keep timing out.
type AsfStrategy struct {
	StrategyBase
	measurements    *AsfMeasurements
	probing         *ProbingModule
	retxSuppression *RetxSuppressionExponential
	nMaxTimeouts    int
	rng             *rand.Rand
}

// asfParameters holds the configuration parsed from the strategy name.
type asfParameters struct {
	probingInterval      time.Duration
	maxTimeouts          int
	measurementsLifetime time.Duration
}

// parseAsfParameters validates the parameter components appended to the
// strategy name. Each component has the form key~value.
func parseAsfParameters(components []enc.Component) (*asfParameters, error) {
	params := &asfParameters{
		probingInterval:      DefaultProbingInterval,
		maxTimeouts:          AsfDefaultMaxTimeouts,
		measurementsLifetime: AsfDefaultMeasurementsLifetime,
	}

	seen := make(map[string]bool)
	for _, component := range components {
		field := string(component.Val)
		kv := strings.Split(field, "~")
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid parameter %q", field)
		}
		key, value := kv[0], kv[1]

		if seen[key] {
			return nil, fmt.Errorf("duplicate parameter %q", key)
		}
		seen[key] = true

		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for parameter %q: %q", key, value)
		}

		switch key {
		case "probing-interval":
			if n < MinProbingInterval.Milliseconds() {
				return nil, fmt.Errorf("probing-interval must be at least %d ms", MinProbingInterval.Milliseconds())
			}
			params.probingInterval = time.Duration(n) * time.Millisecond
		case "max-timeouts":
			if n < 0 {
				return nil, fmt.Errorf("max-timeouts must be non-negative")
			}
			params.maxTimeouts = int(n)
		case "measurements-lifetime":
			if n < asfMinMeasurementsLifetime.Milliseconds() {
				return nil, fmt.Errorf("measurements-lifetime must be at least %d ms", asfMinMeasurementsLifetime.Milliseconds())
			}
			params.measurementsLifetime = time.Duration(n) * time.Millisecond
		default:
			return nil, fmt.Errorf("unknown parameter %q", key)
		}
	}

	if params.measurementsLifetime < params.probingInterval {
		return nil, fmt.Errorf("measurements-lifetime must be at least the probing-interval")
	}

	return params, nil
}

// NewAsfStrategy creates an ASF strategy instance for a forwarding thread.
// Parameter components after the version component configure the instance;
// malformed or out-of-range parameters fail construction.
func NewAsfStrategy(fwThread *Thread, name enc.Name, version uint64) (Strategy, error) {
	params, err := parseAsfParameters(name[len(defn.STRATEGY_PREFIX)+2:])
	if err != nil {
		return nil, err
	}

	s := &AsfStrategy{}
	s.NewStrategyBase(fwThread, name, version, "AsfStrategy")

	measurements := table.NewMeasurements()
	if fwThread != nil {
		measurements = fwThread.measurements
	}

	s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	s.measurements = NewAsfMeasurements(measurements, params.measurementsLifetime)
	s.probing = NewProbingModule(params.probingInterval, s.rng)
	s.retxSuppression = NewRetxSuppressionExponential()
	s.nMaxTimeouts = params.maxTimeouts
	return s, nil
}

// asfPitInfo is the strategy state attached to a PIT entry: the per-upstream
// retransmission suppression windows and the outstanding probe, if any.
type asfPitInfo struct {
	suppression map[uint64]*RetxSuppressionEntry
	probedFace  optional.Optional[uint64]
}

// pitInfo returns the ASF state of the PIT entry, creating it if needed.
func (s *AsfStrategy) pitInfo(pitEntry table.PitEntry) *asfPitInfo {
	if pi, ok := pitEntry.StrategyInfo().(*asfPitInfo); ok {
		return pi
	}
	pi := &asfPitInfo{suppression: make(map[uint64]*RetxSuppressionEntry)}
	pitEntry.SetStrategyInfo(pi)
	return pi
}

func (s *AsfStrategy) AfterContentStoreHit(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
) {
	core.Log.Trace(s, "AfterContentStoreHit", "name", packet.Name, "faceid", inFace)
	s.SendData(packet, pitEntry, inFace, 0) // 0 indicates ContentStore is source
}

func (s *AsfStrategy) AfterReceiveInterest(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
	nexthops []*table.FibNextHopEntry,
) {
	interest := packet.L3.Interest

	if len(nexthops) == 0 {
		// A retransmission with pending out-records must not reject the
		// entry; the earlier forward may still bring Data back.
		if len(pitEntry.OutRecords()) > 0 {
			core.Log.Debug(s, "No nexthop for retransmission - DROP", "name", packet.Name)
			return
		}

		core.Log.Debug(s, "No nexthop found - NO_ROUTE", "name", packet.Name)
		s.SendNack(packet, pitEntry, inFace, defn.NackReasonNoRoute)
		table.SetExpirationTimerToNow(pitEntry)
		return
	}

	// Measurements are aggregated under the matching FIB entry's prefix
	namespace, _ := table.FibStrategyTable.FindLongestPrefixNexthopsEnc(interest.NameV)
	info := s.measurements.GetOrCreateNamespaceInfo(namespace)

	// Pick the first ranked upstream admitted by retransmission suppression
	pi := s.pitInfo(pitEntry)
	faces := s.rankFaces(info, nexthops, FaceStatsForwardingLess)

	forwarded := false
	var chosen uint64
	for _, fs := range faces {
		entry := pi.suppression[fs.Face]
		if entry == nil {
			entry = s.retxSuppression.NewEntry()
			pi.suppression[fs.Face] = entry
		}

		decision := s.retxSuppression.DecidePerUpstream(pitEntry.OutRecords()[fs.Face], entry)
		if decision == RetxSuppressionSuppress {
			core.Log.Debug(s, "Retransmission suppressed toward upstream", "name", packet.Name, "faceid", fs.Face)
			continue
		}

		if s.forwardInterest(packet, pitEntry, info, fs.Face, inFace) {
			forwarded = true
			chosen = fs.Face
			break
		}
	}

	if !forwarded {
		// All upstreams suppressed (or unusable); rely on the PIT timeout
		// and downstream retransmissions.
		core.Log.Debug(s, "No eligible upstream - DROP", "name", packet.Name)
		return
	}

	// Send a probe alongside the Interest when one is due
	if s.probing.IsProbingNeeded(info) {
		ranked := s.rankFaces(info, nexthops, FaceStatsProbingLess)
		if probeFace, ok := s.probing.GetFaceForProbing(ranked, chosen); ok {
			s.forwardProbe(packet, pitEntry, info, pi, probeFace, inFace)
		}
	}
}

// forwardInterest sends the Interest and creates the (namespace, face)
// measurement record for the upstream.
func (s *AsfStrategy) forwardInterest(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	info *NamespaceInfo,
	nexthop uint64,
	inFace uint64,
) bool {
	if !s.SendInterest(packet, pitEntry, nexthop, inFace) {
		return false
	}
	info.GetOrCreateFaceInfo(nexthop)
	core.Log.Trace(s, "Forwarding Interest", "name", packet.Name, "faceid", nexthop)
	return true
}

// forwardProbe sends a copy of the Interest with a fresh nonce to the probe
// face, so upstream duplicate-nonce suppression does not drop it.
func (s *AsfStrategy) forwardProbe(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	info *NamespaceInfo,
	pi *asfPitInfo,
	nexthop uint64,
	inFace uint64,
) {
	probeInterest := *packet.L3.Interest
	probeInterest.NonceV = optional.Some(s.rng.Uint32())

	probeL3 := &spec.Packet{Interest: &probeInterest}
	encoder := spec.PacketEncoder{}
	encoder.Init(probeL3)
	wire := encoder.Encode(probeL3)
	if wire == nil {
		core.Log.Error(s, "Unable to encode probe Interest - skipping probe", "name", packet.Name)
		return
	}

	probePkt := &defn.Pkt{
		Name:           probeInterest.NameV,
		L3:             probeL3,
		Raw:            wire,
		IncomingFaceID: packet.IncomingFaceID,
	}

	if !s.SendInterest(probePkt, pitEntry, nexthop, inFace) {
		return
	}

	core.Log.Debug(s, "Sent probe Interest", "name", packet.Name, "faceid", nexthop)
	info.GetOrCreateFaceInfo(nexthop)
	pi.probedFace = optional.Some(nexthop)
	s.probing.AfterForwardingProbe(info)
}

func (s *AsfStrategy) AfterReceiveData(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
) {
	s.BeforeSatisfyInterest(pitEntry, inFace)

	for faceID := range pitEntry.InRecords() {
		core.Log.Trace(s, "Forwarding Data", "name", packet.Name, "faceid", faceID)
		s.SendData(packet, pitEntry, faceID, inFace)
	}
}

// BeforeSatisfyInterest credits the RTT sample for the answering upstream
// and clears the probe state if this Data answers an outstanding probe.
func (s *AsfStrategy) BeforeSatisfyInterest(pitEntry table.PitEntry, inFace uint64) {
	info := s.measurements.FindNamespaceInfo(pitEntry.EncName())
	if info == nil {
		return
	}

	// Only credit the sample if the out-record is still pending on the
	// in-face; otherwise this Data cannot be matched to a send time.
	if outRecord, ok := pitEntry.OutRecords()[inFace]; ok {
		fi := info.GetOrCreateFaceInfo(inFace)
		rtt := time.Since(outRecord.LatestTimestamp)
		fi.RecordRtt(rtt)
		core.Log.Trace(s, "Recorded RTT sample", "name", pitEntry.EncName(), "faceid", inFace,
			"rtt", rtt, "srtt", fi.Srtt())
	}

	if pi, ok := pitEntry.StrategyInfo().(*asfPitInfo); ok {
		if probed, isSet := pi.probedFace.Get(); isSet && probed == inFace {
			pi.probedFace.Unset()
			s.probing.AfterProbeSettled(info)
		}
	}
}

func (s *AsfStrategy) AfterReceiveNack(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace uint64,
) {
	reason := packet.NackReason.Unwrap()
	core.Log.Debug(s, "AfterReceiveNack", "name", packet.Name, "faceid", inFace,
		"reason", defn.NackReasonString(reason))

	switch reason {
	case defn.NackReasonNoRoute, defn.NackReasonCongestion, defn.NackReasonDuplicate:
		// Demote the nacked upstream and try an alternative
	default:
		s.propagateNack(packet, pitEntry, reason)
		return
	}

	namespace, nexthops := table.FibStrategyTable.FindLongestPrefixNexthopsEnc(packet.Name)
	info := s.measurements.FindNamespaceInfo(packet.Name)
	if info == nil {
		info = s.measurements.GetOrCreateNamespaceInfo(namespace)
	}
	if fi := info.GetFaceInfo(inFace); fi != nil {
		fi.RecordNack()
	}

	// Clear probe state if the probe upstream nacked
	if pi, ok := pitEntry.StrategyInfo().(*asfPitInfo); ok {
		if probed, isSet := pi.probedFace.Get(); isSet && probed == inFace {
			pi.probedFace.Unset()
			s.probing.AfterProbeSettled(info)
		}
	}

	// Forward to the next best face not yet tried for this PIT entry.
	// The retry must not carry the Nack header of the incoming packet.
	retry := &defn.Pkt{
		Name:           packet.Name,
		L3:             packet.L3,
		Raw:            packet.Raw,
		IncomingFaceID: packet.IncomingFaceID,
	}
	for _, fs := range s.rankFaces(info, nexthops, FaceStatsForwardingLess) {
		if pitEntry.OutRecords()[fs.Face] != nil {
			continue
		}
		if s.forwardInterest(retry, pitEntry, info, fs.Face, inFace) {
			core.Log.Debug(s, "Forwarded to alternative after Nack", "name", packet.Name, "faceid", fs.Face)
			return
		}
	}

	// No alternative upstream remains
	s.propagateNack(packet, pitEntry, reason)
}

// propagateNack sends the Nack downstream on all in-records and rejects the
// PIT entry.
func (s *AsfStrategy) propagateNack(packet *defn.Pkt, pitEntry table.PitEntry, reason uint64) {
	core.Log.Debug(s, "Propagating Nack downstream", "name", packet.Name,
		"reason", defn.NackReasonString(reason))
	for faceID := range pitEntry.InRecords() {
		s.SendNack(packet, pitEntry, faceID, reason)
	}
	table.SetExpirationTimerToNow(pitEntry)
}

// AfterInterestTimedOut records a timeout for every upstream still pending
// on the expired PIT entry. An upstream that reaches the timeout threshold
// is demoted in the forwarding ranking.
func (s *AsfStrategy) AfterInterestTimedOut(pitEntry table.PitEntry) {
	info := s.measurements.FindNamespaceInfo(pitEntry.EncName())
	if info == nil {
		return
	}

	for face := range pitEntry.OutRecords() {
		fi := info.GetFaceInfo(face)
		if fi == nil {
			continue
		}
		if fi.IncrementTimeouts() >= s.nMaxTimeouts {
			core.Log.Debug(s, "Upstream exceeded max timeouts - demoting",
				"name", pitEntry.EncName(), "faceid", face)
			fi.RecordTimeout()
		}
	}

	if pi, ok := pitEntry.StrategyInfo().(*asfPitInfo); ok && pi.probedFace.IsSet() {
		pi.probedFace.Unset()
		s.probing.AfterProbeSettled(info)
	}
}

// rankFaces builds the ranking tuples for the candidate nexthops and sorts
// them by the given order. Face counts per namespace are small, so sorting
// on demand beats maintaining a sorted structure under concurrent updates.
func (s *AsfStrategy) rankFaces(
	info *NamespaceInfo,
	nexthops []*table.FibNextHopEntry,
	less func(a, b FaceStats) bool,
) []FaceStats {
	faces := make([]FaceStats, 0, len(nexthops))
	for _, nh := range nexthops {
		fs := FaceStats{
			Face:    nh.Nexthop,
			Cost:    nh.Cost,
			LastRtt: RttNoMeasurement,
			Srtt:    RttNoMeasurement,
		}
		if fi := info.GetFaceInfo(nh.Nexthop); fi != nil {
			fs.LastRtt = fi.LastRtt()
			fs.Srtt = fi.Srtt()
		}
		faces = append(faces, fs)
	}
	sort.Slice(faces, func(i, j int) bool { return less(faces[i], faces[j]) })
	return faces
}
