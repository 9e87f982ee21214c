package lint

import (
	"math"
	"strconv"
	"strings"
)

// minContrast is the WCAG AA ratio for normal-size text.
const minContrast = 4.5

type rgb struct{ r, g, b float64 }

// parseColor understands #rgb, #rrggbb, rgb() and rgba(). Named colors
// other than white and black are not resolved.
func parseColor(s string) (rgb, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "white":
		return rgb{255, 255, 255}, true
	case "black":
		return rgb{0, 0, 0}, true
	}
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return rgb{}, false
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return rgb{}, false
		}
		return rgb{float64(v >> 16 & 0xff), float64(v >> 8 & 0xff), float64(v & 0xff)}, true
	}
	if strings.HasPrefix(s, "rgb") {
		open, end := strings.IndexByte(s, '('), strings.IndexByte(s, ')')
		if open < 0 || end < open {
			return rgb{}, false
		}
		parts := strings.Split(s[open+1:end], ",")
		if len(parts) < 3 {
			return rgb{}, false
		}
		var c [3]float64
		for i := 0; i < 3; i++ {
			f, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
			if err != nil || f < 0 || f > 255 {
				return rgb{}, false
			}
			c[i] = f
		}
		return rgb{c[0], c[1], c[2]}, true
	}
	return rgb{}, false
}

func channel(v float64) float64 {
	v /= 255
	if v <= 0.03928 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

func luminance(c rgb) float64 {
	return 0.2126*channel(c.r) + 0.7152*channel(c.g) + 0.0722*channel(c.b)
}

// contrastRatio returns the WCAG contrast ratio of two colors, 1 to 21.
func contrastRatio(a, b rgb) float64 {
	la, lb := luminance(a), luminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
