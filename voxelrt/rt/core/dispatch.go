package core

// DispatchCount returns how many workgroups of size tile cover length
// elements: the length padded up to the next multiple of tile, divided by
// tile. tile must be non-zero.
func DispatchCount(length, tile uint32) uint32 {
	padding := (tile - length%tile) % tile
	return (length + padding) / tile
}

// Dispatch2D is DispatchCount applied to both axes of a width x height grid.
func Dispatch2D(width, height, tileX, tileY uint32) (uint32, uint32) {
	return DispatchCount(width, tileX), DispatchCount(height, tileY)
}
