package fw

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestProbing(interval time.Duration) *ProbingModule {
	return NewProbingModule(interval, rand.New(rand.NewSource(42)))
}

func TestProbingFirstDeadlineWithinWindow(t *testing.T) {
	p := newTestProbing(DefaultProbingInterval)
	info := newNamespaceInfo()

	// The first call schedules the initial probe and does not probe yet
	before := time.Now()
	assert.False(t, p.IsProbingNeeded(info))
	assert.False(t, info.probeDeadline.IsZero())
	delay := info.probeDeadline.Sub(before)
	assert.GreaterOrEqual(t, delay, time.Duration(0))
	assert.LessOrEqual(t, delay, firstProbingWindow)

	// A shorter probing interval bounds the first deadline instead
	p = newTestProbing(2 * time.Second)
	info = newNamespaceInfo()
	before = time.Now()
	assert.False(t, p.IsProbingNeeded(info))
	assert.LessOrEqual(t, info.probeDeadline.Sub(before), 2*time.Second)
}

func TestProbingDue(t *testing.T) {
	p := newTestProbing(DefaultProbingInterval)
	info := newNamespaceInfo()

	p.IsProbingNeeded(info) // schedule
	assert.False(t, p.IsProbingNeeded(info))

	// Force the deadline into the past
	info.probeDeadline = time.Now().Add(-time.Millisecond)
	assert.True(t, p.IsProbingNeeded(info))

	// An outstanding probe blocks further probes
	p.AfterForwardingProbe(info)
	info.probeDeadline = time.Now().Add(-time.Millisecond)
	assert.False(t, p.IsProbingNeeded(info))

	p.AfterProbeSettled(info)
	assert.True(t, p.IsProbingNeeded(info))
}

func TestProbingDeadlineJitter(t *testing.T) {
	interval := 30 * time.Second
	p := newTestProbing(interval)

	for range 100 {
		info := newNamespaceInfo()
		before := time.Now()
		p.AfterForwardingProbe(info)
		delay := info.probeDeadline.Sub(before)
		assert.GreaterOrEqual(t, delay, time.Duration(float64(interval)*0.9)-time.Second)
		assert.LessOrEqual(t, delay, time.Duration(float64(interval)*1.1)+time.Second)
	}
}

func TestProbingFaceSelection(t *testing.T) {
	p := newTestProbing(DefaultProbingInterval)

	measured := NewFaceInfo()
	measured.RecordRtt(20 * time.Millisecond)

	ranked := []FaceStats{
		{Face: 2, Cost: 5, LastRtt: RttNoMeasurement, Srtt: RttNoMeasurement},
		{Face: 1, Cost: 10, LastRtt: measured.LastRtt(), Srtt: measured.Srtt()},
	}

	// The probe face must differ from the face chosen for forwarding
	face, ok := p.GetFaceForProbing(ranked, 2)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), face)

	face, ok = p.GetFaceForProbing(ranked, 1)
	assert.True(t, ok)
	assert.Equal(t, uint64(2), face)

	// A single candidate that is also the forwarding face yields no probe
	_, ok = p.GetFaceForProbing(ranked[:1], 2)
	assert.False(t, ok)
}
