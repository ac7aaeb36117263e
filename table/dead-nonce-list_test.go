package table

import (
	"testing"

	"github.com/stretchr/testify/assert"

	enc "github.com/named-data/ndnd/std/encoding"
)

func TestDeadNonceList(t *testing.T) {
	d := NewDeadNonceList()
	defer d.Ticker.Stop()

	name, _ := enc.NameFromStr("/test/name")
	assert.False(t, d.Find(name, 1))

	assert.False(t, d.Insert(name, 1))
	assert.True(t, d.Find(name, 1))
	assert.False(t, d.Find(name, 2))

	// Re-inserting reports the existing entry
	assert.True(t, d.Insert(name, 1))

	// Entries do not expire before their lifetime
	d.RemoveExpiredEntries()
	assert.True(t, d.Find(name, 1))
}
