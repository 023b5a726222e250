package legend

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeColor expands short hex colors: #abc becomes #aabbcc.
//
// Other colors are returned unchanged.
func NormalizeColor(color string) string {
	if !strings.HasPrefix(color, "#") || len(color) != len("#rgb") {
		return color
	}

	var b strings.Builder
	b.WriteByte('#')
	for _, c := range color[1:] {
		b.WriteRune(c)
		b.WriteRune(c)
	}

	return b.String()
}

// RGB decodes a hex color into its red, green and blue components.
//
// It returns false for colors that are not hex colors.
func RGB(color string) ([3]int, bool) {
	c := NormalizeColor(color)
	if !strings.HasPrefix(c, "#") || len(c) != len("#rrggbb") {
		return [3]int{}, false
	}

	var rgb [3]int
	for i := range rgb {
		v, err := strconv.ParseUint(c[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return [3]int{}, false
		}
		rgb[i] = int(v)
	}

	return rgb, true
}

// RGBACSS renders a hex color with an opacity as a css rgba() value.
//
// Colors that are not hex colors are returned unchanged.
func RGBACSS(color string, opacity float64) string {
	rgb, ok := RGB(color)
	if !ok {
		return color
	}

	return fmt.Sprintf("rgba(%d, %d, %d, %s)", rgb[0], rgb[1], rgb[2], strconv.FormatFloat(opacity, 'f', -1, 64))
}

// AvgLum is the average of the red, green and blue components of a hex color.
//
// Colors that are not hex colors are considered dark.
func AvgLum(color string) float64 {
	rgb, ok := RGB(color)
	if !ok {
		return 0
	}

	return float64(rgb[0]+rgb[1]+rgb[2]) / 3
}

// TextColor picks black or white text to contrast with a background color.
func TextColor(background string) string {
	const midLum = 127

	if AvgLum(background) > midLum {
		return "black"
	}

	return "white"
}
