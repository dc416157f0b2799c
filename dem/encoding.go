package dem

import (
	"math"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Encoding identifies how heights are quantized into the RGB channels of a
// raster DEM tile.
type Encoding uint8

const (
	// EncodingMapboxRGB stores heights in 0.1 m steps offset by -10000 m.
	EncodingMapboxRGB Encoding = iota

	// EncodingTerrarium stores heights in 1/256 m steps offset by -32768 m.
	EncodingTerrarium
)

// ParseEncoding maps an encoding name to its value. The empty string means
// EncodingMapboxRGB.
func ParseEncoding(v string) (Encoding, error) {
	switch strings.ToLower(v) {
	case "", "mapbox":
		return EncodingMapboxRGB, nil

	case "terrarium":
		return EncodingTerrarium, nil

	default:
		return EncodingMapboxRGB, errors.New("unknown dem encoding").
			WithTag("encoding", v)
	}
}

func (e Encoding) String() string {
	if e == EncodingTerrarium {
		return "terrarium"
	}
	return "mapbox"
}

// Unpack returns the height in meters encoded by an rgb triplet.
func (e Encoding) Unpack(r, g, b uint8) float64 {
	if e == EncodingTerrarium {
		return float64(r)*256 + float64(g) + float64(b)/256 - 32768
	}
	return (float64(r)*65536+float64(g)*256+float64(b))*0.1 - 10000
}

// Pack quantizes a height in meters into an rgb triplet, clamping heights
// outside the encoding's range.
func (e Encoding) Pack(height float64) (r, g, b uint8) {
	var v float64
	if e == EncodingTerrarium {
		v = math.Round((height + 32768) * 256)
	} else {
		v = math.Round((height + 10000) * 10)
	}

	if v < 0 {
		v = 0
	}
	if v > 0xFFFFFF {
		v = 0xFFFFFF
	}

	n := uint32(v)
	return uint8(n >> 16), uint8((n >> 8) & 0xFF), uint8(n & 0xFF)
}
