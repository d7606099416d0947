// Package geom provides the three-dimensional integer geometry used to
// address voxel grids and rectangular sub-blocks of them.
package geom

import "fmt"

// Vec3 is a three-component integer vector. It doubles as an extent
// (width, height, depth) and as a position within a voxel grid.
type Vec3 struct {
	X, Y, Z int64
}

// V is shorthand for constructing a Vec3.
func V(x, y, z int64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Add returns the component-wise sum v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Volume returns X*Y*Z, the number of voxels in an image of this extent.
func (v Vec3) Volume() int64 {
	return v.X * v.Y * v.Z
}

// Positive reports whether every component is at least 1.
func (v Vec3) Positive() bool {
	return v.X >= 1 && v.Y >= 1 && v.Z >= 1
}

// NonNegative reports whether every component is at least 0.
func (v Vec3) NonNegative() bool {
	return v.X >= 0 && v.Y >= 0 && v.Z >= 0
}

func (v Vec3) String() string {
	return fmt.Sprintf("%dx%dx%d", v.X, v.Y, v.Z)
}

// Block is a rectangular sub-region of a voxel grid: an offset and an extent.
type Block struct {
	Pos  Vec3
	Size Vec3
}

// End returns the exclusive upper corner Pos + Size.
func (b Block) End() Vec3 {
	return b.Pos.Add(b.Size)
}

// Volume returns the number of voxels in the block.
func (b Block) Volume() int64 {
	return b.Size.Volume()
}

// In reports whether the block lies entirely within an image of extent dims
// and has a positive extent of its own.
func (b Block) In(dims Vec3) bool {
	if !b.Pos.NonNegative() || !b.Size.Positive() {
		return false
	}
	end := b.End()
	return end.X <= dims.X && end.Y <= dims.Y && end.Z <= dims.Z
}

func (b Block) String() string {
	return fmt.Sprintf("[%s+%s]", b.Pos, b.Size)
}
