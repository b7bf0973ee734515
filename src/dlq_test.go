package borzoi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryQueueCarriesEverything(t *testing.T) {
	var q = NewDeliveryQueue(4)

	var p = newPacket([]byte("frame bytes"))
	q.RecFrame(2, 1, 3, p, AudioLevel{Rec: 50}, FECFX25, Retry(7), "|:_")

	var d, ok = q.Next()
	require.True(t, ok)
	assert.Equal(t, 2, d.Channel)
	assert.Equal(t, 1, d.Subchannel)
	assert.Equal(t, 3, d.Slice)
	assert.Same(t, p, d.Packet)
	assert.Equal(t, 50, d.ALevel.Rec)
	assert.Equal(t, FECFX25, d.FECType)
	assert.Equal(t, Retry(7), d.Retries)
	assert.Equal(t, "|:_", d.Spectrum)
}

func TestDeliveryQueueNilPacketIsRefused(t *testing.T) {
	var q = NewDeliveryQueue(4)
	q.RecFrame(0, 0, 0, nil, AudioLevel{}, FECNone, RetryNone, "")
	assert.Empty(t, q.ch)
}

func TestDeliveryQueueCloseEndsIteration(t *testing.T) {
	var q = NewDeliveryQueue(4)
	q.RecFrame(0, 0, 0, newPacket([]byte("last one")), AudioLevel{}, FECNone, RetryNone, "")
	q.Close()

	var _, ok = q.Next()
	assert.True(t, ok)
	_, ok = q.Next()
	assert.False(t, ok)
}

func TestPacketContentCRCMatchesAcrossCopies(t *testing.T) {
	var a = newPacket([]byte("identical bytes"))
	var b = newPacket([]byte("identical bytes"))
	var c = newPacket([]byte("different bytes"))

	assert.Equal(t, a.ContentCRC(), b.ContentCRC())
	assert.NotEqual(t, a.ContentCRC(), c.ContentCRC())
}

func TestPacketOwnsItsBytes(t *testing.T) {
	var buf = []byte("mutate me")
	var p = newPacket(buf)
	buf[0] = 'X'
	assert.Equal(t, "mutate me", string(p.Frame()))
}

func TestTextPacket(t *testing.T) {
	var p = newTextPacket([]byte("ZCZC-..."))
	assert.True(t, p.IsText())
	assert.Equal(t, "ZCZC-...", p.Text())
}

func TestPRNGIsDeterministic(t *testing.T) {
	var a, b = newPRNG(), newPRNG()
	for i := 0; i < 1000; i++ {
		require.Equal(t, a.next(), b.next())
	}

	// Roughly uniform: about half of all draws above the midpoint.
	var high = 0
	var p = newPRNG()
	for i := 0; i < 10000; i++ {
		if p.next() > prngMax/2 {
			high++
		}
	}
	assert.InDelta(t, 5000, high, 500)

	assert.False(t, newPRNG().chance(0))
	assert.True(t, newPRNG().chance(1.1))
}
