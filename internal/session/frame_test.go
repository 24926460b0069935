package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameStore_PutAndGet(t *testing.T) {
	s := NewFrameStore(4)
	assert.Equal(t, 4, s.Capacity())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0.0, s.Coverage())

	require.NoError(t, s.Put(&Frame{Ordinal: 1, Heading: 15}))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 0.25, s.Coverage())

	f := s.Get(1)
	require.NotNil(t, f)
	assert.Equal(t, 15.0, f.Heading)
	assert.Nil(t, s.Get(0))
	assert.Nil(t, s.Get(-1))
	assert.Nil(t, s.Get(4))
}

func TestFrameStore_PutErrors(t *testing.T) {
	s := NewFrameStore(2)

	err := s.Put(nil)
	require.Error(t, err)

	err = s.Put(&Frame{Ordinal: -1})
	require.Error(t, err)
	err = s.Put(&Frame{Ordinal: 2})
	require.Error(t, err)

	require.NoError(t, s.Put(&Frame{Ordinal: 0}))
	err = s.Put(&Frame{Ordinal: 0})
	require.Error(t, err, "double capture into a slot must not silently replace")
	assert.Equal(t, 1, s.Len())
}

func TestFrameStore_NextOrdinal(t *testing.T) {
	s := NewFrameStore(3)
	assert.Equal(t, 0, s.NextOrdinal())

	require.NoError(t, s.Put(&Frame{Ordinal: 0}))
	require.NoError(t, s.Put(&Frame{Ordinal: 2}))
	assert.Equal(t, 1, s.NextOrdinal(), "lowest gap wins")

	require.NoError(t, s.Put(&Frame{Ordinal: 1}))
	assert.Equal(t, -1, s.NextOrdinal())
}

func TestFrameStore_RemoveAndRetake(t *testing.T) {
	s := NewFrameStore(3)
	require.NoError(t, s.Put(&Frame{Ordinal: 1, Heading: 120}))

	assert.False(t, s.Remove(0), "empty slot")
	assert.False(t, s.Remove(5), "out of range")
	assert.True(t, s.Remove(1))
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Put(&Frame{Ordinal: 1, Heading: 121}))
	assert.Equal(t, 121.0, s.Get(1).Heading)
}

func TestFrameStore_FramesInOrdinalOrder(t *testing.T) {
	s := NewFrameStore(4)
	require.NoError(t, s.Put(&Frame{Ordinal: 3}))
	require.NoError(t, s.Put(&Frame{Ordinal: 0}))
	require.NoError(t, s.Put(&Frame{Ordinal: 2}))

	frames := s.Frames()
	require.Len(t, frames, 3)
	assert.Equal(t, 0, frames[0].Ordinal)
	assert.Equal(t, 2, frames[1].Ordinal)
	assert.Equal(t, 3, frames[2].Ordinal)
}

func TestFrameStore_Reset(t *testing.T) {
	s := NewFrameStore(2)
	require.NoError(t, s.Put(&Frame{Ordinal: 0}))
	require.NoError(t, s.Put(&Frame{Ordinal: 1}))

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 2, s.Capacity())
	assert.Equal(t, 0, s.NextOrdinal())
}

func TestFrameStore_MinimumCapacity(t *testing.T) {
	s := NewFrameStore(0)
	assert.Equal(t, 1, s.Capacity())
}

func TestProfileByID(t *testing.T) {
	p := ProfileByID("standard")
	require.NotNil(t, p)
	assert.Equal(t, 24, p.FrameCount)
	assert.Equal(t, 15.0, p.StepDegrees())

	assert.NotNil(t, ProfileByID("HIGH"), "lookup is case-insensitive")
	assert.Nil(t, ProfileByID("ultra"))
}
