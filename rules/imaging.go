//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// PixelClamp detects float-roundtrip clamping of pixel values and
// suggests the min/max builtins (Go 1.21+).
//
// Old pattern:
//
//	uint8(math.Min(math.Max(v, 0), 255))
//
// New pattern:
//
//	uint8(min(max(v, 0), 255))
func PixelClamp(m dsl.Matcher) {
	m.Match(
		`uint8(math.Min(math.Max($v, 0), 255))`,
	).
		Report("use uint8(min(max($v, 0), 255)) instead of the math float round-trip (Go 1.21+)").
		Suggest("uint8(min(max($v, 0), 255))")

	m.Match(
		`int(math.Min(float64($a), float64($b)))`,
	).
		Report("use min($a, $b) instead of int(math.Min(float64(...))) (Go 1.21+)").
		Suggest("min($a, $b)")

	m.Match(
		`int(math.Max(float64($a), float64($b)))`,
	).
		Report("use max($a, $b) instead of int(math.Max(float64(...))) (Go 1.21+)").
		Suggest("max($a, $b)")
}

// ImageBoundsIteration flags pixel loops that start at 0 instead of
// Bounds().Min; sub-images from imaging crops do not start at the
// origin.
func ImageBoundsIteration(m dsl.Matcher) {
	m.Match(
		`for $y := 0; $y < $img.Bounds().Dy(); $y++ { $*_ }`,
	).
		Report("iterate from $img.Bounds().Min.Y; sub-images need not start at the origin")
}
