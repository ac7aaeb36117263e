package table

import (
	"testing"
	"time"

	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/stretchr/testify/assert"
)

func TestMeasurementsGetOrCreate(t *testing.T) {
	m := NewMeasurements()
	assert.Equal(t, 0, m.Size())

	name, _ := enc.NameFromStr("/prod/a")
	entry := m.GetOrCreateEnc(name, time.Minute)
	assert.NotNil(t, entry)
	assert.True(t, entry.Name().Equal(name))
	assert.Equal(t, 1, m.Size())

	// Same namespace returns the same entry
	entry2 := m.GetOrCreateEnc(name, time.Minute)
	assert.Equal(t, entry, entry2)
	assert.Equal(t, 1, m.Size())

	// Attached info survives lookups
	type nsState struct{ n int }
	entry.SetInfo(&nsState{n: 3})
	info, ok := m.GetOrCreateEnc(name, time.Minute).Info().(*nsState)
	assert.True(t, ok)
	assert.Equal(t, 3, info.n)
}

func TestMeasurementsLongestPrefixMatch(t *testing.T) {
	m := NewMeasurements()

	prefix, _ := enc.NameFromStr("/prod")
	m.GetOrCreateEnc(prefix, time.Minute)

	// A deeper name matches the prefix entry
	deeper, _ := enc.NameFromStr("/prod/a/b/c")
	entry := m.FindLongestPrefixEnc(deeper)
	assert.NotNil(t, entry)
	assert.True(t, entry.Name().Equal(prefix))

	// The deepest matching entry wins
	mid, _ := enc.NameFromStr("/prod/a")
	m.GetOrCreateEnc(mid, time.Minute)
	entry = m.FindLongestPrefixEnc(deeper)
	assert.NotNil(t, entry)
	assert.True(t, entry.Name().Equal(mid))

	// Unrelated names do not match
	other, _ := enc.NameFromStr("/other")
	assert.Nil(t, m.FindLongestPrefixEnc(other))
}

func TestMeasurementsPrune(t *testing.T) {
	m := NewMeasurements()

	shortLived, _ := enc.NameFromStr("/prod/short")
	longLived, _ := enc.NameFromStr("/prod/long")
	m.GetOrCreateEnc(shortLived, time.Millisecond)
	longEntry := m.GetOrCreateEnc(longLived, time.Hour)
	assert.Equal(t, 2, m.Size())

	time.Sleep(5 * time.Millisecond)
	m.Prune()

	assert.Equal(t, 1, m.Size())
	assert.Nil(t, m.FindLongestPrefixEnc(shortLived))
	assert.Equal(t, longEntry, m.FindLongestPrefixEnc(longLived))
}

func TestMeasurementsExtendLifetime(t *testing.T) {
	m := NewMeasurements()

	name, _ := enc.NameFromStr("/prod/a")
	entry := m.GetOrCreateEnc(name, time.Millisecond)
	m.ExtendLifetime(entry, time.Hour)

	time.Sleep(5 * time.Millisecond)
	m.Prune()
	assert.Equal(t, 1, m.Size())

	// Extending with a shorter lifetime does not shrink the current one
	m.ExtendLifetime(entry, time.Nanosecond)
	m.Prune()
	assert.Equal(t, 1, m.Size())
}
