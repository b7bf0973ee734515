package borzoi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRRBBAppendAndRead(t *testing.T) {
	var b = newRRBB(0, 1, 2, false, 0, 0)

	b.appendBit(1)
	b.appendBit(0)
	b.appendBit(1)

	assert.Equal(t, 3, b.length())
	assert.Equal(t, 1, b.bit(0))
	assert.Equal(t, 0, b.bit(1))
	assert.Equal(t, 1, b.bit(2))
}

func TestRRBBChop8(t *testing.T) {
	var b = newRRBB(0, 0, 0, false, 0, 0)

	for i := 0; i < 20; i++ {
		b.appendBit(i & 1)
	}
	b.chop8()
	assert.Equal(t, 12, b.length())

	// Too short to chop: leave alone.
	var short = newRRBB(0, 0, 0, false, 0, 0)
	short.appendBit(1)
	short.chop8()
	assert.Equal(t, 1, short.length())
}

func TestRRBBClearKeepsDescramblerSnapshot(t *testing.T) {
	var b = newRRBB(0, 0, 0, false, 0, 0)
	b.appendBit(1)

	b.clear(true, 0x1abcd, 1)

	assert.Equal(t, 0, b.length())
	assert.True(t, b.isScrambled)
	assert.Equal(t, 0x1abcd, b.descramState)
	assert.Equal(t, 1, b.prevDescram)
	assert.Equal(t, noLevel, b.alevel)
}

func TestRRBBFullSilentlyDiscards(t *testing.T) {
	var b = newRRBB(0, 0, 0, false, 0, 0)
	for i := 0; i < maxFrameBits+100; i++ {
		b.appendBit(1)
	}
	assert.Equal(t, maxFrameBits, b.length())
}
