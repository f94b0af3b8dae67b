package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeerAddr(t *testing.T) {
	addr, err := ParsePeerAddr("10.0.0.1:80")
	require.NoError(t, err)
	assert.Equal(t, uint16(80), addr.Port)
	assert.Equal(t, "10.0.0.1:80", addr.String())
}

func TestParsePeerAddr_Invalid(t *testing.T) {
	_, err := ParsePeerAddr("not-an-address")
	assert.Error(t, err)
}

func TestPeerAddr_Less(t *testing.T) {
	a := MustParsePeerAddr("10.0.0.1:80")
	b := MustParsePeerAddr("10.0.0.2:1")
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}

func TestPeerAddr_IsUnset(t *testing.T) {
	assert.True(t, PeerAddr{}.IsUnset())
	assert.False(t, MustParsePeerAddr("10.0.0.1:80").IsUnset())
}
