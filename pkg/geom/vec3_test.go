package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVolume(t *testing.T) {
	assert.Equal(t, int64(24), V(2, 3, 4).Volume())
	assert.Equal(t, int64(1), V(1, 1, 1).Volume())
	assert.Equal(t, int64(0), V(5, 0, 5).Volume())
}

func TestPositive(t *testing.T) {
	assert.True(t, V(1, 1, 1).Positive())
	assert.False(t, V(1, 0, 1).Positive())
	assert.False(t, V(-1, 1, 1).Positive())
	assert.True(t, V(0, 0, 0).NonNegative())
	assert.False(t, V(0, -1, 0).NonNegative())
}

func TestBlockIn(t *testing.T) {
	dims := V(10, 20, 30)

	assert.True(t, Block{Pos: V(0, 0, 0), Size: dims}.In(dims))
	assert.True(t, Block{Pos: V(9, 19, 29), Size: V(1, 1, 1)}.In(dims))
	assert.False(t, Block{Pos: V(9, 19, 29), Size: V(2, 1, 1)}.In(dims))
	assert.False(t, Block{Pos: V(-1, 0, 0), Size: V(1, 1, 1)}.In(dims))
	assert.False(t, Block{Pos: V(0, 0, 0), Size: V(0, 1, 1)}.In(dims))
}

func TestBlockEnd(t *testing.T) {
	b := Block{Pos: V(1, 2, 3), Size: V(4, 5, 6)}
	assert.Equal(t, V(5, 7, 9), b.End())
	assert.Equal(t, int64(120), b.Volume())
}

func TestString(t *testing.T) {
	assert.Equal(t, "2x3x4", V(2, 3, 4).String())
}
