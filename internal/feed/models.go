package feed

import (
	"encoding/json"
	"strconv"
	"strings"
)

// feedResponse is the wire shape of an adsb.lol style position feed
type feedResponse struct {
	Now      float64      `json:"now"`
	Messages int          `json:"messages"`
	AC       []feedTarget `json:"ac"`
}

// feedTarget is one aircraft in the feed payload. Numeric fields arrive as
// numbers or strings depending on the upstream ("ground" for altitude is
// the common case), so they decode through flexNumber.
type feedTarget struct {
	Hex      string     `json:"hex"`
	Flight   string     `json:"flight"`
	Type     string     `json:"t"`
	AltBaro  flexNumber `json:"alt_baro"`
	GS       flexNumber `json:"gs"`
	BaroRate flexNumber `json:"baro_rate"`
	Squawk   string     `json:"squawk"`
}

// flexNumber decodes a JSON value that may be a number, a numeric string,
// or a non-numeric marker like "ground" (which reads as zero)
type flexNumber struct {
	value float64
}

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		f.value = n
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		f.value = 0
		return nil
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		f.value = n
	}
	return nil
}

// Float64 returns the decoded value, zero when the field was absent or
// non-numeric
func (f flexNumber) Float64() float64 {
	return f.value
}
