package grounding

import "image"

// ToScreen maps a normalized point to a pixel in a width x height surface.
// The result is truncated toward zero and clamped into the surface.
func ToScreen(cx, cy float64, width, height int) (int, int) {
	// Multiply before dividing so exact products stay exact.
	x := int(cx * float64(width) / Extent)
	y := int(cy * float64(height) / Extent)
	return clamp(x, width), clamp(y, height)
}

// ToImage maps b onto an image of the given pixel size.
func ToImage(b Box, width, height int) image.Rectangle {
	return image.Rect(
		int(b.XMin*float64(width)/Extent),
		int(b.YMin*float64(height)/Extent),
		int(b.XMax*float64(width)/Extent),
		int(b.YMax*float64(height)/Extent),
	)
}

func clamp(v, size int) int {
	if v < 0 {
		return 0
	}
	if size > 0 && v > size-1 {
		return size - 1
	}
	return v
}
