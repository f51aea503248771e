package branch

import "unicode/utf16"

const (
	// ForkPaletteSize is the number of fork identity colors.
	ForkPaletteSize = 12
	// MainPaletteSize is the number of colors the unbranched main line cycles through.
	MainPaletteSize = 4
)

// hashID is the 31-multiplier string hash over UTF-16 code units, wrapped to
// a signed 32-bit value and made non-negative.
func hashID(id string) int64 {
	var h int32
	for _, u := range utf16.Encode([]rune(id)) {
		h = h*31 + int32(u)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}

// ColorIndex maps a conversation id to its fork palette bucket. The result
// depends on the id alone.
func ColorIndex(id string) int {
	return int(hashID(id) % ForkPaletteSize)
}

// MainLineColor is the main-line palette bucket for a depth.
func MainLineColor(depth int) int {
	if depth < 0 {
		depth = -depth
	}
	return depth % MainPaletteSize
}
