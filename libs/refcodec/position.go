package refcodec

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// GeoPosition is a coordinate pair as stored in the `posisi` field:
// Primary first, Secondary second.
type GeoPosition struct {
	Primary   float64 `json:"lat"`
	Secondary float64 `json:"lng"`
}

// DecodePosition parses a bracketed two-element numeric array such as
// "[-7.66, 110.35]". The boolean is false when raw is absent or malformed;
// callers decide how to display an absent position.
func DecodePosition(raw string) (GeoPosition, bool) {
	raw = strings.TrimSpace(raw)
	if !isBracketed(raw) {
		return GeoPosition{}, false
	}
	var pair []float64
	if err := json.Unmarshal([]byte(raw), &pair); err != nil || len(pair) != 2 {
		return GeoPosition{}, false
	}
	return GeoPosition{Primary: pair[0], Secondary: pair[1]}, true
}

// EncodePosition formats two human-entered coordinates for the store. Each
// side falls back to 0 on its own when blank or unparseable, so the result
// is always a well-formed pair.
func EncodePosition(primary, secondary string) string {
	return GeoPosition{Primary: coordinateValue(primary), Secondary: coordinateValue(secondary)}.String()
}

// String renders the position in the store format.
func (p GeoPosition) String() string {
	return "[" + formatCoordinate(p.Primary) + ", " + formatCoordinate(p.Secondary) + "]"
}

// PositionFormFields splits a stored position into two form values. Both are
// empty when the position is absent.
func PositionFormFields(raw string) (string, string) {
	pos, ok := DecodePosition(raw)
	if !ok {
		return "", ""
	}
	return formatCoordinate(pos.Primary), formatCoordinate(pos.Secondary)
}

func coordinateValue(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

func formatCoordinate(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
