package defn_test

import (
	"testing"

	"github.com/Pesa/NFD/defn"
	"github.com/stretchr/testify/assert"
)

func TestDecodeUri(t *testing.T) {
	var uri *defn.URI

	// Unknown URI
	uri = defn.DecodeURIString("test://myhost:1234")
	assert.False(t, uri.IsCanonical())
	assert.Equal(t, "unknown", uri.Scheme())

	// Internal URI
	uri = defn.DecodeURIString("internal://")
	assert.True(t, uri.IsCanonical())
	assert.Equal(t, "internal", uri.Scheme())

	// NULL URI
	uri = defn.DecodeURIString("null://")
	assert.True(t, uri.IsCanonical())
	assert.Equal(t, "null", uri.Scheme())

	// Unix URI
	uri = defn.DecodeURIString("unix:///tmp/test.sock")
	assert.True(t, uri.IsCanonical())
	assert.Equal(t, "unix", uri.Scheme())
	assert.Equal(t, "/tmp/test.sock", uri.Path())
	assert.Equal(t, uint16(0), uri.Port())

	// UDP URI
	uri = defn.DecodeURIString("udp://127.0.0.1:5000")
	assert.True(t, uri.IsCanonical())
	assert.Equal(t, "udp4", uri.Scheme())
	assert.Equal(t, "127.0.0.1", uri.Path())
	assert.Equal(t, uint16(5000), uri.Port())

	uri = defn.DecodeURIString("udp://[2001:db8::1]:5000")
	assert.True(t, uri.IsCanonical())
	assert.Equal(t, "udp6", uri.Scheme())
	assert.Equal(t, "2001:db8::1", uri.Path())
	assert.Equal(t, uint16(5000), uri.Port())

	// TCP URI
	uri = defn.DecodeURIString("tcp://127.0.0.1:4600")
	assert.True(t, uri.IsCanonical())
	assert.Equal(t, "tcp4", uri.Scheme())
	assert.Equal(t, "127.0.0.1", uri.Path())
	assert.Equal(t, uint16(4600), uri.Port())

	uri = defn.DecodeURIString("tcp://[2002:db8::1]:4600")
	assert.True(t, uri.IsCanonical())
	assert.Equal(t, "tcp6", uri.Scheme())
	assert.Equal(t, "2002:db8::1", uri.Path())
	assert.Equal(t, uint16(4600), uri.Port())

	// Default port
	uri = defn.DecodeURIString("udp://127.0.0.1")
	assert.True(t, uri.IsCanonical())
	assert.Equal(t, uint16(6363), uri.Port())
}

func TestUriScope(t *testing.T) {
	assert.Equal(t, defn.Local, defn.MakeInternalFaceURI().Scope())
	assert.Equal(t, defn.NonLocal, defn.MakeNullFaceURI().Scope())
	assert.Equal(t, defn.Local, defn.MakeUnixFaceURI("/tmp/test.sock").Scope())
	assert.Equal(t, defn.Local, defn.MakeUDPFaceURI(4, "127.0.0.1", 6363).Scope())
	assert.Equal(t, defn.NonLocal, defn.MakeUDPFaceURI(4, "192.0.2.1", 6363).Scope())
}
