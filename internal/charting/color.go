package charting

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/salemadams/cash-dash/internal/core"
)

var reservedColors = map[string]string{
	string(core.Income):  "#00a63e",
	string(core.Expense): "#e7000b",
	string(core.Savings): "#155dfc",
}

const (
	colorSaturation = 60
	colorLightness  = 55
)

// ColorFor returns the display color of a group key. Transaction types get a
// fixed color; any other key maps to a hue derived from its lower-cased text,
// so a category keeps its color across sessions without a lookup table.
func ColorFor(key string) string {
	k := strings.ToLower(key)
	if c, ok := reservedColors[k]; ok {
		return c
	}
	hash := stringHash(k)
	if hash < 0 {
		hash = -hash
	}
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", hash%360, colorSaturation, colorLightness)
}

// stringHash is the shift-and-subtract hash over UTF-16 code units, with the
// shift performed in 32 bits and the subtraction in 64.
func stringHash(s string) int64 {
	var hash int64
	for _, unit := range utf16.Encode([]rune(s)) {
		shifted := int64(int32(hash) << 5)
		hash = int64(unit) + (shifted - hash)
	}
	return hash
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
