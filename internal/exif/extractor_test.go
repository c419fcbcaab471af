package exif

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evidencecheck/attest/internal/models"
)

func plainImage(t *testing.T, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 8), uint8(y * 8), 100, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, encode(&buf, img))
	return buf.Bytes()
}

// Images without an EXIF block yield an all-absent record, never an error.
func TestExtractNoMetadata(t *testing.T) {
	jpegData := plainImage(t, func(b *bytes.Buffer, img image.Image) error {
		return jpeg.Encode(b, img, nil)
	})
	prov := Extract(jpegData)
	assert.Nil(t, prov.CapturedAt)
	assert.Nil(t, prov.Latitude)
	assert.Nil(t, prov.Longitude)
	assert.False(t, prov.HasGPS())
	assert.Empty(t, prov.DeviceMake)
	assert.Empty(t, prov.DeviceModel)
}

func TestExtractPNG(t *testing.T) {
	pngData := plainImage(t, func(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) })
	prov := Extract(pngData)
	assert.False(t, prov.HasGPS())
	assert.Nil(t, prov.CapturedAt)
}

func TestExtractMalformedBytes(t *testing.T) {
	for _, data := range [][]byte{nil, {}, []byte("definitely not an image"), bytes.Repeat([]byte{0xff}, 512)} {
		prov := Extract(data)
		assert.False(t, prov.HasGPS())
		assert.Nil(t, prov.CapturedAt)
	}
}

func TestHasGPSRequiresBothCoordinates(t *testing.T) {
	lat := 12.5
	prov := models.Provenance{Latitude: &lat}
	assert.False(t, prov.HasGPS())

	lon := 36.8
	prov.Longitude = &lon
	assert.True(t, prov.HasGPS())
}
