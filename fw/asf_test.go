package fw

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Pesa/NFD/defn"
	"github.com/Pesa/NFD/dispatch"
	"github.com/Pesa/NFD/table"
	enc "github.com/named-data/ndnd/std/encoding"
	spec "github.com/named-data/ndnd/std/ndn/spec_2022"
	"github.com/named-data/ndnd/std/types/optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dummyFace records every packet handed to it by the forwarding pipelines.
type dummyFace struct {
	id   uint64
	sent []dispatch.OutPkt
}

var nextDummyFaceID atomic.Uint64

func newDummyFace() *dummyFace {
	f := &dummyFace{id: 1000 + nextDummyFaceID.Add(1)}
	dispatch.AddFace(f.id, f)
	return f
}

func (f *dummyFace) String() string          { return fmt.Sprintf("dummy-face-%d", f.id) }
func (f *dummyFace) SetFaceID(faceID uint64) { f.id = faceID }
func (f *dummyFace) FaceID() uint64          { return f.id }
func (f *dummyFace) LocalURI() *defn.URI     { return defn.MakeNullFaceURI() }
func (f *dummyFace) RemoteURI() *defn.URI    { return defn.MakeNullFaceURI() }
func (f *dummyFace) Scope() defn.Scope       { return defn.NonLocal }
func (f *dummyFace) LinkType() defn.LinkType { return defn.PointToPoint }
func (f *dummyFace) MTU() int                { return defn.MaxNDNPacketSize }
func (f *dummyFace) State() defn.State       { return defn.Up }
func (f *dummyFace) SendPacket(out dispatch.OutPkt) {
	f.sent = append(f.sent, out)
}

// nInterests counts sent packets that are plain Interests.
func (f *dummyFace) nInterests() int {
	n := 0
	for _, out := range f.sent {
		if out.Pkt.L3.Interest != nil && !out.Pkt.IsNack() {
			n++
		}
	}
	return n
}

// nNacks counts sent packets that carry a Nack header.
func (f *dummyFace) nNacks() int {
	n := 0
	for _, out := range f.sent {
		if out.Pkt.IsNack() {
			n++
		}
	}
	return n
}

func makeTestInterest(name enc.Name) *spec.Interest {
	return &spec.Interest{
		NameV:  name,
		NonceV: optional.Some(rand.Uint32()),
	}
}

func makeInterestPkt(interest *spec.Interest, inFace uint64) *defn.Pkt {
	return &defn.Pkt{
		Name:           interest.NameV,
		L3:             &spec.Packet{Interest: interest},
		IncomingFaceID: inFace,
	}
}

// asfTestEnv wires a thread, an ASF instance with a deterministic RNG, a
// consumer face, and a producer namespace in the FIB.
type asfTestEnv struct {
	thread   *Thread
	strategy *AsfStrategy
	consumer *dummyFace
	prefix   enc.Name
}

func newAsfTestEnv(t *testing.T, params ...string) *asfTestEnv {
	table.Initialize()

	thread := NewThread(DefaultStrategyRegistry(), 0)

	name := MakeStrategyName("asf", AsfVersion)
	for _, p := range params {
		name = name.Append(enc.NewStringComponent(enc.TypeGenericNameComponent, p))
	}
	strategy, err := DefaultStrategyRegistry().Instantiate(thread, name)
	require.NoError(t, err)

	asf := strategy.(*AsfStrategy)
	asf.rng = rand.New(rand.NewSource(42))
	asf.probing = NewProbingModule(asf.probing.ProbingInterval(), asf.rng)

	prefix, _ := enc.NameFromStr("/hr/C")
	return &asfTestEnv{
		thread:   thread,
		strategy: asf,
		consumer: newDummyFace(),
		prefix:   prefix,
	}
}

// addRoute registers an upstream for the producer prefix and returns its face.
func (env *asfTestEnv) addRoute(cost uint64) *dummyFace {
	face := newDummyFace()
	table.FibStrategyTable.InsertNextHopEnc(env.prefix, face.id, cost)
	return face
}

// expressInterest inserts the Interest into the PIT and runs it through the
// strategy, as the forwarding thread would.
func (env *asfTestEnv) expressInterest(interest *spec.Interest) table.PitEntry {
	pitEntry, _ := env.thread.pitCS.InsertInterest(interest, nil, env.consumer.id)
	pitEntry.InsertInRecord(interest, env.consumer.id, []byte{})

	pkt := makeInterestPkt(interest, env.consumer.id)
	nexthops := table.FibStrategyTable.FindNextHopsEnc(interest.NameV)
	env.strategy.AfterReceiveInterest(pkt, pitEntry, env.consumer.id, nexthops)
	return pitEntry
}

// namespaceInfo returns the measurement state for the producer prefix.
func (env *asfTestEnv) namespaceInfo() *NamespaceInfo {
	return env.strategy.measurements.GetOrCreateNamespaceInfo(env.prefix)
}

func TestAsfParameters(t *testing.T) {
	buildName := func(params ...string) enc.Name {
		name := MakeStrategyName("asf", AsfVersion)
		for _, p := range params {
			name = name.Append(enc.NewStringComponent(enc.TypeGenericNameComponent, p))
		}
		return name
	}

	registry := DefaultStrategyRegistry()
	instantiate := func(params ...string) (*AsfStrategy, error) {
		strategy, err := registry.Instantiate(nil, buildName(params...))
		if err != nil {
			return nil, err
		}
		return strategy.(*AsfStrategy), nil
	}

	// Defaults
	s, err := instantiate()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, s.probing.ProbingInterval())
	assert.Equal(t, 3, s.nMaxTimeouts)
	assert.Equal(t, 5*time.Minute, s.measurements.MeasurementsLifetime())
	assert.NotNil(t, s.retxSuppression)

	// All parameters given
	s, err = instantiate("probing-interval~30000", "max-timeouts~5", "measurements-lifetime~120000")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, s.probing.ProbingInterval())
	assert.Equal(t, 5, s.nMaxTimeouts)
	assert.Equal(t, 2*time.Minute, s.measurements.MeasurementsLifetime())

	// Equivalent parameter strings differing only in order yield the same configuration
	s2, err := instantiate("measurements-lifetime~120000", "max-timeouts~5", "probing-interval~30000")
	require.NoError(t, err)
	assert.Equal(t, s.probing.ProbingInterval(), s2.probing.ProbingInterval())
	assert.Equal(t, s.nMaxTimeouts, s2.nMaxTimeouts)
	assert.Equal(t, s.measurements.MeasurementsLifetime(), s2.measurements.MeasurementsLifetime())

	// Partial parameter sets keep defaults for the rest
	s, err = instantiate("max-timeouts~5", "probing-interval~30000")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, s.probing.ProbingInterval())
	assert.Equal(t, 5, s.nMaxTimeouts)
	assert.Equal(t, 5*time.Minute, s.measurements.MeasurementsLifetime())

	// Boundary values
	s, err = instantiate("probing-interval~1000")
	require.NoError(t, err)
	assert.Equal(t, time.Second, s.probing.ProbingInterval())

	s, err = instantiate("max-timeouts~0")
	require.NoError(t, err)
	assert.Equal(t, 0, s.nMaxTimeouts)

	s, err = instantiate("measurements-lifetime~60000")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, s.measurements.MeasurementsLifetime())

	// Rejected parameter strings
	for _, params := range [][]string{
		{"probing-interval~500"}, // minimum is 1 second
		{"probing-interval~-5000"},
		{"max-timeouts~-1"},
		{"max-timeouts~ -1"},
		{"max-timeouts~1-0"},
		{"max-timeouts~1", "probing-interval~-30000"},
		{"probing-interval~foo"},
		{"max-timeouts~1~2"},
		{"max-timeouts~1", "max-timeouts~2"},
		{"measurements-lifetime~1000"}, // minimum is 60 seconds
		{"measurements-lifetime~1000", "probing-interval~30000"},
		{"measurements-lifetime~-120000"},
		{"measurements-lifetime~ -120000"},
		{"measurements-lifetime~0-120000"},
		{"max-timeouts~1", "measurements-lifetime~-120000"},
		{"probing-interval~30000", "measurements-lifetime~-120000"},
		{"measurements-lifetime~120000", "probing-interval~240000"}, // lifetime < probing interval
		{"unknown-parameter~1"},
	} {
		_, err := instantiate(params...)
		assert.Error(t, err, "parameters %v should be rejected", params)
	}
}

func TestAsfForwardsToLowestCostWhenUnmeasured(t *testing.T) {
	env := newAsfTestEnv(t)
	faceB := env.addRoute(10)
	faceD := env.addRoute(5)

	name, _ := enc.NameFromStr("/hr/C/1")
	env.expressInterest(makeTestInterest(name))

	// No measurements yet: the cheaper face wins
	assert.Equal(t, 1, faceD.nInterests())
	assert.Equal(t, 0, faceB.nInterests())
}

func TestAsfPrefersLowerSrtt(t *testing.T) {
	env := newAsfTestEnv(t)
	faceB := env.addRoute(10)
	faceD := env.addRoute(5)

	info := env.namespaceInfo()
	info.GetOrCreateFaceInfo(faceB.id).RecordRtt(20 * time.Millisecond)
	info.GetOrCreateFaceInfo(faceD.id).RecordRtt(200 * time.Millisecond)

	name, _ := enc.NameFromStr("/hr/C/1")
	env.expressInterest(makeTestInterest(name))

	// The lower-SRTT face wins despite its higher cost
	assert.Equal(t, 1, faceB.nInterests())
	assert.Equal(t, 0, faceD.nInterests())
}

func TestAsfTimedOutFaceIsDemoted(t *testing.T) {
	env := newAsfTestEnv(t)
	faceB := env.addRoute(10)
	faceD := env.addRoute(5)

	info := env.namespaceInfo()
	fiB := info.GetOrCreateFaceInfo(faceB.id)
	fiB.RecordRtt(20 * time.Millisecond)
	fiB.RecordTimeout()
	info.GetOrCreateFaceInfo(faceD.id).RecordRtt(200 * time.Millisecond)

	name, _ := enc.NameFromStr("/hr/C/1")
	env.expressInterest(makeTestInterest(name))

	// The timed-out face ranks below the working one
	assert.Equal(t, 1, faceD.nInterests())
	assert.Equal(t, 0, faceB.nInterests())
}

func TestAsfAllTimedOutStillForwards(t *testing.T) {
	env := newAsfTestEnv(t)
	faceB := env.addRoute(10)
	faceD := env.addRoute(5)

	info := env.namespaceInfo()
	for _, face := range []*dummyFace{faceB, faceD} {
		fi := info.GetOrCreateFaceInfo(face.id)
		fi.RecordRtt(20 * time.Millisecond)
		fi.RecordTimeout()
	}

	name, _ := enc.NameFromStr("/hr/C/1")
	env.expressInterest(makeTestInterest(name))

	// Forwarding must not block: the lowest-cost timed-out face is used
	assert.Equal(t, 1, faceD.nInterests())
	assert.Equal(t, 0, faceB.nInterests())
}

func TestAsfNoRouteNack(t *testing.T) {
	env := newAsfTestEnv(t)

	// No FIB entry for this namespace at all
	name, _ := enc.NameFromStr("/no/route/anywhere")
	interest := makeTestInterest(name)
	pitEntry, _ := env.thread.pitCS.InsertInterest(interest, nil, env.consumer.id)
	pitEntry.InsertInRecord(interest, env.consumer.id, []byte{})

	env.strategy.AfterReceiveInterest(makeInterestPkt(interest, env.consumer.id), pitEntry, env.consumer.id, nil)

	require.Equal(t, 1, env.consumer.nNacks())
	assert.Equal(t, defn.NackReasonNoRoute, env.consumer.sent[0].Pkt.NackReason.Unwrap())
}

func TestAsfRetransmissionWithoutNexthopsKeepsEntry(t *testing.T) {
	env := newAsfTestEnv(t)
	faceD := env.addRoute(5)

	name, _ := enc.NameFromStr("/hr/C/1")
	interest := makeTestInterest(name)
	pitEntry := env.expressInterest(interest)
	require.Equal(t, 1, faceD.nInterests())

	// The route disappears while the Interest is pending
	table.FibStrategyTable.RemoveNextHopEnc(env.prefix, faceD.id)

	// A retransmission must not nack the entry: the earlier forward may
	// still bring Data back
	retx := makeTestInterest(name)
	pitEntry.InsertInRecord(retx, env.consumer.id, []byte{})
	env.strategy.AfterReceiveInterest(makeInterestPkt(retx, env.consumer.id), pitEntry, env.consumer.id, nil)

	assert.Equal(t, 0, env.consumer.nNacks())
	assert.NotNil(t, pitEntry.OutRecords()[faceD.id])
}

func TestAsfRttMeasurementOnData(t *testing.T) {
	env := newAsfTestEnv(t)
	faceD := env.addRoute(5)

	name, _ := enc.NameFromStr("/hr/C/1")
	interest := makeTestInterest(name)
	pitEntry := env.expressInterest(interest)
	require.Equal(t, 1, faceD.nInterests())

	// Data returns from the upstream
	env.strategy.BeforeSatisfyInterest(pitEntry, faceD.id)

	info := env.namespaceInfo()
	fi := info.GetFaceInfo(faceD.id)
	require.NotNil(t, fi)
	assert.Greater(t, fi.Srtt(), time.Duration(0))
	assert.Greater(t, fi.LastRtt(), time.Duration(0))
	assert.Equal(t, 0, fi.NTimeouts())

	// No out-record on this face: no sample is credited
	other := newDummyFace()
	env.strategy.BeforeSatisfyInterest(pitEntry, other.id)
	assert.Nil(t, info.GetFaceInfo(other.id))
}

func TestAsfProbeUsesFreshNonceAndDistinctFace(t *testing.T) {
	env := newAsfTestEnv(t)
	faceB := env.addRoute(10)
	faceD := env.addRoute(5)

	// Make the best face measured so the unmeasured one is the probe target
	info := env.namespaceInfo()
	info.GetOrCreateFaceInfo(faceD.id).RecordRtt(20 * time.Millisecond)

	// Force the probe to be due
	info.probeDeadline = time.Now().Add(-time.Millisecond)

	name, _ := enc.NameFromStr("/hr/C/1")
	interest := makeTestInterest(name)
	pitEntry := env.expressInterest(interest)

	// Interest went to the best face, probe to the alternate face
	require.Equal(t, 1, faceD.nInterests())
	require.Equal(t, 1, faceB.nInterests())

	probe := faceB.sent[0].Pkt.L3.Interest
	assert.True(t, probe.NameV.Equal(interest.NameV))
	assert.NotEqual(t, interest.NonceV.Unwrap(), probe.NonceV.Unwrap())

	// The probe state travels with the PIT entry and the out-record nonce
	// matches the probe, not the original
	pi := pitEntry.StrategyInfo().(*asfPitInfo)
	assert.Equal(t, faceB.id, pi.probedFace.Unwrap())
	assert.True(t, info.probeOutstanding)
	outRecord := pitEntry.OutRecords()[faceB.id]
	require.NotNil(t, outRecord)
	assert.Equal(t, probe.NonceV.Unwrap(), outRecord.LatestNonce)

	// The next probe deadline moved into the future
	assert.True(t, info.probeDeadline.After(time.Now()))

	// Data from the probed face clears the probe state
	env.strategy.BeforeSatisfyInterest(pitEntry, faceB.id)
	assert.False(t, info.probeOutstanding)
	assert.False(t, pi.probedFace.IsSet())
}

func TestAsfPerUpstreamSuppression(t *testing.T) {
	env := newAsfTestEnv(t)
	faceB := env.addRoute(1)
	faceP := env.addRoute(10)

	name, _ := enc.NameFromStr("/suppress/me")
	table.FibStrategyTable.InsertNextHopEnc(name, faceB.id, 1)
	table.FibStrategyTable.InsertNextHopEnc(name, faceP.id, 10)

	express := func() table.PitEntry {
		interest := makeTestInterest(name)
		pitEntry, _ := env.thread.pitCS.InsertInterest(interest, nil, env.consumer.id)
		pitEntry.InsertInRecord(interest, env.consumer.id, []byte{})
		nexthops := table.FibStrategyTable.FindNextHopsEnc(name)
		env.strategy.AfterReceiveInterest(makeInterestPkt(interest, env.consumer.id), pitEntry, env.consumer.id, nexthops)
		return pitEntry
	}

	age := func(pitEntry table.PitEntry, face uint64, d time.Duration) {
		pitEntry.OutRecords()[face].LatestTimestamp = time.Now().Add(-d)
	}

	// 1st Interest goes to B
	pitEntry := express()
	assert.Equal(t, []int{1, 0}, []int{faceB.nInterests(), faceP.nInterests()})

	// 2nd is suppressed toward B (within its 10ms window) but NEW toward P
	age(pitEntry, faceB.id, 5*time.Millisecond)
	express()
	assert.Equal(t, []int{1, 1}, []int{faceB.nInterests(), faceP.nInterests()})

	// 3rd is suppressed toward both: exactly zero additional sends
	age(pitEntry, faceB.id, 5*time.Millisecond)
	age(pitEntry, faceP.id, 5*time.Millisecond)
	express()
	assert.Equal(t, []int{1, 1}, []int{faceB.nInterests(), faceP.nInterests()})

	// 4th: B's window elapsed, so B forwards again (window doubles to 20ms)
	age(pitEntry, faceB.id, 15*time.Millisecond)
	age(pitEntry, faceP.id, 5*time.Millisecond)
	express()
	assert.Equal(t, []int{2, 1}, []int{faceB.nInterests(), faceP.nInterests()})

	// 5th: B suppressed by its backed-off window, P's window elapsed
	age(pitEntry, faceB.id, 15*time.Millisecond)
	age(pitEntry, faceP.id, 15*time.Millisecond)
	express()
	assert.Equal(t, []int{2, 2}, []int{faceB.nInterests(), faceP.nInterests()})
}

func TestAsfNackFallbackToAlternative(t *testing.T) {
	env := newAsfTestEnv(t)
	faceB := env.addRoute(10)
	faceD := env.addRoute(5)

	name, _ := enc.NameFromStr("/hr/C/1")
	interest := makeTestInterest(name)
	pitEntry := env.expressInterest(interest)
	require.Equal(t, 1, faceD.nInterests())

	// NO_ROUTE Nack arrives from the chosen upstream
	nackPkt := makeInterestPkt(interest, faceD.id)
	nackPkt.NackReason = optional.Some(defn.NackReasonNoRoute)
	pitEntry.OutRecords()[faceD.id].NackReason = defn.NackReasonNoRoute
	env.strategy.AfterReceiveNack(nackPkt, pitEntry, faceD.id)

	// The nacked upstream is demoted and the Interest moves to the alternative
	assert.True(t, env.namespaceInfo().GetFaceInfo(faceD.id).IsTimedOut())
	assert.Equal(t, 1, faceB.nInterests())

	// The retry toward the alternative carries no Nack header
	assert.Equal(t, 0, faceB.nNacks())
	assert.Equal(t, 0, env.consumer.nNacks())
}

func TestAsfNackPropagatesWhenNoAlternative(t *testing.T) {
	env := newAsfTestEnv(t)
	faceD := env.addRoute(5)

	name, _ := enc.NameFromStr("/hr/C/1")
	interest := makeTestInterest(name)
	pitEntry := env.expressInterest(interest)
	require.Equal(t, 1, faceD.nInterests())

	nackPkt := makeInterestPkt(interest, faceD.id)
	nackPkt.NackReason = optional.Some(defn.NackReasonNoRoute)
	pitEntry.OutRecords()[faceD.id].NackReason = defn.NackReasonNoRoute
	env.strategy.AfterReceiveNack(nackPkt, pitEntry, faceD.id)

	// No alternative exists: the Nack goes downstream
	require.Equal(t, 1, env.consumer.nNacks())
	assert.Equal(t, defn.NackReasonNoRoute, env.consumer.sent[len(env.consumer.sent)-1].Pkt.NackReason.Unwrap())
}

func TestAsfTimeoutThresholdDemotion(t *testing.T) {
	env := newAsfTestEnv(t, "max-timeouts~5")
	faceB := env.addRoute(10)
	env.addRoute(5)

	info := env.namespaceInfo()
	fi := info.GetOrCreateFaceInfo(faceB.id)
	fi.RecordRtt(20 * time.Millisecond)

	name, _ := enc.NameFromStr("/hr/C/1")

	// Four timeouts accumulate without demotion
	for i := range 4 {
		interest := makeTestInterest(name)
		pitEntry, _ := env.thread.pitCS.InsertInterest(interest, nil, env.consumer.id)
		pitEntry.InsertOutRecord(interest, faceB.id)
		env.strategy.AfterInterestTimedOut(pitEntry)
		assert.False(t, fi.IsTimedOut(), "face demoted after %d timeouts", i+1)
	}
	assert.Equal(t, 4, fi.NTimeouts())

	// The fifth timeout reaches the threshold and demotes the face
	interest := makeTestInterest(name)
	pitEntry, _ := env.thread.pitCS.InsertInterest(interest, nil, env.consumer.id)
	pitEntry.InsertOutRecord(interest, faceB.id)
	env.strategy.AfterInterestTimedOut(pitEntry)
	assert.True(t, fi.IsTimedOut())
}

func TestAsfZeroMaxTimeoutsDemotesImmediately(t *testing.T) {
	env := newAsfTestEnv(t, "max-timeouts~0")
	faceB := env.addRoute(10)

	info := env.namespaceInfo()
	fi := info.GetOrCreateFaceInfo(faceB.id)
	fi.RecordRtt(20 * time.Millisecond)

	name, _ := enc.NameFromStr("/hr/C/1")
	interest := makeTestInterest(name)
	pitEntry, _ := env.thread.pitCS.InsertInterest(interest, nil, env.consumer.id)
	pitEntry.InsertOutRecord(interest, faceB.id)
	env.strategy.AfterInterestTimedOut(pitEntry)

	assert.True(t, fi.IsTimedOut())
}
