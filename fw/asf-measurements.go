/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"time"

	"github.com/Pesa/NFD/table"
	enc "github.com/named-data/ndnd/std/encoding"
)

// Sentinel RTT values for faces without a usable measurement.
const (
	// RttNoMeasurement indicates that no RTT sample has been recorded.
	RttNoMeasurement time.Duration = -1
	// RttTimeout indicates that the face has timed out.
	RttTimeout time.Duration = -2
)

// RTT estimator gains (RFC 6298).
const (
	rttEstimatorAlpha = 0.125
	rttEstimatorBeta  = 0.25
)

// FaceInfo contains the RTT measurement state of one (namespace, face) pair.
type FaceInfo struct {
	lastRtt   time.Duration
	srtt      time.Duration
	rttVar    time.Duration
	nTimeouts int
}

// NewFaceInfo creates a FaceInfo with no recorded measurements.
func NewFaceInfo() *FaceInfo {
	return &FaceInfo{
		lastRtt: RttNoMeasurement,
		srtt:    RttNoMeasurement,
	}
}

// LastRtt returns the most recent RTT sample, RttNoMeasurement, or RttTimeout.
func (fi *FaceInfo) LastRtt() time.Duration {
	return fi.lastRtt
}

// Srtt returns the smoothed RTT, or RttNoMeasurement.
func (fi *FaceInfo) Srtt() time.Duration {
	return fi.srtt
}

// Rto returns the retransmission timeout derived from the smoothed RTT.
// The strategy only advertises this value; scheduling timeouts is the PIT's job.
func (fi *FaceInfo) Rto() time.Duration {
	if fi.srtt == RttNoMeasurement {
		return RttNoMeasurement
	}
	return fi.srtt + 4*fi.rttVar
}

// NTimeouts returns the number of timeouts since the last Data was credited.
func (fi *FaceInfo) NTimeouts() int {
	return fi.nTimeouts
}

// IsTimedOut returns whether the face is currently marked as timed out.
func (fi *FaceInfo) IsTimedOut() bool {
	return fi.lastRtt == RttTimeout
}

// RecordRtt credits an RTT sample, updating the smoothed RTT and RTT
// variance and clearing the timeout counter.
func (fi *FaceInfo) RecordRtt(sample time.Duration) {
	fi.lastRtt = sample
	fi.nTimeouts = 0

	if fi.srtt == RttNoMeasurement {
		// First sample seeds the estimator
		fi.srtt = sample
		fi.rttVar = sample / 2
		return
	}

	fi.rttVar = time.Duration((1-rttEstimatorBeta)*float64(fi.rttVar) +
		rttEstimatorBeta*float64((fi.srtt-sample).Abs()))
	fi.srtt = time.Duration((1-rttEstimatorAlpha)*float64(fi.srtt) +
		rttEstimatorAlpha*float64(sample))
}

// RecordTimeout marks the face as timed out, demoting it in the forwarding
// ranking. The smoothed RTT keeps its last value.
func (fi *FaceInfo) RecordTimeout() {
	fi.lastRtt = RttTimeout
	fi.nTimeouts = 0
}

// RecordNack marks the face as timed out in response to a Nack. Nacks do not
// count toward the timeout threshold; they demote the face immediately.
func (fi *FaceInfo) RecordNack() {
	fi.lastRtt = RttTimeout
	fi.nTimeouts = 0
}

// IncrementTimeouts counts one more timeout since the last Data and returns
// the updated count.
func (fi *FaceInfo) IncrementTimeouts() int {
	fi.nTimeouts++
	return fi.nTimeouts
}

// NamespaceInfo contains the ASF measurement state of one namespace:
// the per-face records and the namespace's probing state.
type NamespaceInfo struct {
	faces map[uint64]*FaceInfo

	probeDeadline    time.Time // zero means no probe scheduled yet
	probeOutstanding bool
}

func newNamespaceInfo() *NamespaceInfo {
	return &NamespaceInfo{faces: make(map[uint64]*FaceInfo)}
}

// GetFaceInfo returns the FaceInfo for the given face, or nil if none exists.
func (info *NamespaceInfo) GetFaceInfo(face uint64) *FaceInfo {
	return info.faces[face]
}

// GetOrCreateFaceInfo returns the FaceInfo for the given face, creating it
// if it does not exist yet.
func (info *NamespaceInfo) GetOrCreateFaceInfo(face uint64) *FaceInfo {
	fi, ok := info.faces[face]
	if !ok {
		fi = NewFaceInfo()
		info.faces[face] = fi
	}
	return fi
}

// AsfMeasurements provides access to the per-namespace ASF measurement
// records stored in the thread's measurements table, keeping entries alive
// for the configured lifetime on every access.
type AsfMeasurements struct {
	measurements *table.Measurements
	lifetime     time.Duration
}

// NewAsfMeasurements creates an accessor over the given measurements table.
func NewAsfMeasurements(measurements *table.Measurements, lifetime time.Duration) *AsfMeasurements {
	return &AsfMeasurements{
		measurements: measurements,
		lifetime:     lifetime,
	}
}

// MeasurementsLifetime returns the configured retention lifetime.
func (m *AsfMeasurements) MeasurementsLifetime() time.Duration {
	return m.lifetime
}

// GetOrCreateNamespaceInfo returns the NamespaceInfo for the exact given
// namespace, creating it if needed, and extends its lifetime.
func (m *AsfMeasurements) GetOrCreateNamespaceInfo(namespace enc.Name) *NamespaceInfo {
	entry := m.measurements.GetOrCreateEnc(namespace, m.lifetime)
	m.measurements.ExtendLifetime(entry, m.lifetime)

	info, ok := entry.Info().(*NamespaceInfo)
	if !ok || info == nil {
		info = newNamespaceInfo()
		entry.SetInfo(info)
	}
	return info
}

// FindNamespaceInfo returns the NamespaceInfo for the longest-prefix matching
// namespace, or nil if there is none; the matched entry's lifetime is extended.
func (m *AsfMeasurements) FindNamespaceInfo(name enc.Name) *NamespaceInfo {
	entry := m.measurements.FindLongestPrefixEnc(name)
	if entry == nil {
		return nil
	}
	m.measurements.ExtendLifetime(entry, m.lifetime)

	info, _ := entry.Info().(*NamespaceInfo)
	return info
}

// FaceStats is the transient ranking tuple for one candidate upstream.
type FaceStats struct {
	Face    uint64
	LastRtt time.Duration
	Srtt    time.Duration
	Cost    uint64
}

// faceStatsGroup buckets a candidate face:
// 0 = working measured, 1 = unmeasured, 2 = timed out.
func faceStatsGroup(fs FaceStats) int {
	switch fs.LastRtt {
	case RttNoMeasurement:
		return 1
	case RttTimeout:
		return 2
	default:
		return 0
	}
}

// srttOrInf treats an unmeasured SRTT as larger than any measured one.
func srttOrInf(srtt time.Duration) time.Duration {
	if srtt == RttNoMeasurement {
		return time.Duration(1<<63 - 1)
	}
	return srtt
}

// FaceStatsForwardingLess is the total order used to pick the next upstream:
// working measured faces by SRTT, then unmeasured faces, then timed-out faces.
func FaceStatsForwardingLess(a, b FaceStats) bool {
	ga, gb := faceStatsGroup(a), faceStatsGroup(b)
	if ga != gb {
		return ga < gb
	}

	switch ga {
	case 0: // working measured: srtt, cost, face id
		if a.Srtt != b.Srtt {
			return a.Srtt < b.Srtt
		}
		if a.Cost != b.Cost {
			return a.Cost < b.Cost
		}
	case 1: // unmeasured: cost, face id
		if a.Cost != b.Cost {
			return a.Cost < b.Cost
		}
	case 2: // timed out: cost, srtt, face id
		if a.Cost != b.Cost {
			return a.Cost < b.Cost
		}
		if srttOrInf(a.Srtt) != srttOrInf(b.Srtt) {
			return srttOrInf(a.Srtt) < srttOrInf(b.Srtt)
		}
	}
	return a.Face < b.Face
}

// FaceStatsProbingLess is the total order used to pick a probe target:
// like the forwarding order, but unmeasured faces come first (exploration).
func FaceStatsProbingLess(a, b FaceStats) bool {
	probeGroup := func(fs FaceStats) int {
		switch faceStatsGroup(fs) {
		case 1:
			return 0
		case 0:
			return 1
		default:
			return 2
		}
	}

	ga, gb := probeGroup(a), probeGroup(b)
	if ga != gb {
		return ga < gb
	}
	return FaceStatsForwardingLess(a, b)
}
