package core

import "math"

const (
	// VolumeSize is the edge length of the generated volume in voxels.
	VolumeSize = 256
	// VolumeWorkgroups is the per-axis dispatch of the generator.
	VolumeWorkgroups = 32
)

// XorDensity evaluates the generator's density at voxel (x, y, z) of a
// size^3 grid: the low byte of x^y^z normalized to [0, 1], kept inside the
// inscribed sphere and zero outside it. Out-of-range coordinates are clamped.
func XorDensity(x, y, z, size int) float32 {
	x, y, z = clampVoxel(x, size), clampVoxel(y, size), clampVoxel(z, size)
	c := float64(size-1) / 2
	dx, dy, dz := float64(x)-c, float64(y)-c, float64(z)-c
	if math.Sqrt(dx*dx+dy*dy+dz*dz) > float64(size)/2 {
		return 0
	}
	return float32((x^y^z)&255) / 255
}

// XorNormal is the normalized negative central-difference gradient of
// XorDensity, or the zero vector where the gradient vanishes.
func XorNormal(x, y, z, size int) [3]float32 {
	gx := XorDensity(x+1, y, z, size) - XorDensity(x-1, y, z, size)
	gy := XorDensity(x, y+1, z, size) - XorDensity(x, y-1, z, size)
	gz := XorDensity(x, y, z+1, size) - XorDensity(x, y, z-1, size)
	l := float32(math.Sqrt(float64(gx*gx + gy*gy + gz*gz)))
	if l == 0 {
		return [3]float32{}
	}
	return [3]float32{-gx / l, -gy / l, -gz / l}
}

func clampVoxel(v, size int) int {
	if v < 0 {
		return 0
	}
	if v >= size {
		return size - 1
	}
	return v
}
