package fingerprint

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testImage renders a deterministic scene with enough structure for the
// perceptual hash to be meaningful.
func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), uint8((x + y) / 2), 255})
		}
	}
	// A dark block breaks the gradient's symmetry.
	for y := 40; y < 120; y++ {
		for x := 60; x < 200; x++ {
			img.Set(x, y, color.RGBA{20, 30, 10, 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}))
	return buf.Bytes()
}

func TestDigestDeterministic(t *testing.T) {
	data := encodeJPEG(t, testImage(), 90)
	assert.Equal(t, Digest(data), Digest(data))
	assert.Len(t, Digest(data), 64)
}

func TestDigestChangesOnAnyByte(t *testing.T) {
	data := encodeJPEG(t, testImage(), 90)
	mutated := append([]byte(nil), data...)
	mutated[len(mutated)/2] ^= 0x01
	assert.NotEqual(t, Digest(data), Digest(mutated))
}

func TestPerceptualHashDeterministic(t *testing.T) {
	data := encodeJPEG(t, testImage(), 90)
	h1, err := PerceptualHash(data)
	require.NoError(t, err)
	h2, err := PerceptualHash(data)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 16) // 64 bits, fixed-width hex
}

// Re-encoding the same scene at a much lower quality must stay within the
// configured similarity threshold.
func TestPerceptualHashRecompressionTolerant(t *testing.T) {
	img := testImage()
	high, err := PerceptualHash(encodeJPEG(t, img, 95))
	require.NoError(t, err)
	low, err := PerceptualHash(encodeJPEG(t, img, 30))
	require.NoError(t, err)

	d, err := Distance(high, low)
	require.NoError(t, err)
	assert.LessOrEqual(t, d, 6)
}

func TestPerceptualHashRejectsGarbage(t *testing.T) {
	_, err := PerceptualHash([]byte("not an image"))
	assert.Error(t, err)
}

func TestDistance(t *testing.T) {
	d, err := Distance("0000000000000000", "0000000000000000")
	require.NoError(t, err)
	assert.Equal(t, 0, d)

	d, err = Distance("0000000000000000", strings.Repeat("f", 16))
	require.NoError(t, err)
	assert.Equal(t, 64, d)

	d, err = Distance("0000000000000000", "0000000000000007")
	require.NoError(t, err)
	assert.Equal(t, 3, d)
}

func TestDistanceInvalidHash(t *testing.T) {
	_, err := Distance("zzzz", "0000000000000000")
	assert.Error(t, err)
	_, err = Distance("0000000000000000", "")
	assert.Error(t, err)
}

func TestNearDuplicate(t *testing.T) {
	current := "00000000000000ff"

	assert.True(t, NearDuplicate(current, []string{"00000000000000f0"}, 6))  // distance 4
	assert.False(t, NearDuplicate(current, []string{"0000000000000000"}, 6)) // distance 8
	assert.True(t, NearDuplicate(current, []string{"0000000000000000", current}, 6))
	assert.False(t, NearDuplicate(current, nil, 6))
}

func TestNearDuplicateSkipsUnparseablePriors(t *testing.T) {
	assert.False(t, NearDuplicate("00000000000000ff", []string{"garbage"}, 6))
	assert.True(t, NearDuplicate("00000000000000ff", []string{"garbage", "00000000000000ff"}, 6))
}
