// Package fingerprint computes content digests and perceptual hashes for
// duplicate and tamper detection.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"
	"strconv"

	"github.com/corona10/goimagehash"
)

// HashBits is the width of the perceptual hash. The similarity threshold in
// the scoring configuration (default 6) is calibrated against this width and
// must be recalibrated if the width changes.
const HashBits = 64

// Digest returns the SHA-256 of the exact byte sequence, hex encoded. Used for
// exact-duplicate and chain-of-custody checks.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PerceptualHash computes a 64-bit pHash over a down-sampled, DCT-quantized
// representation of the image, returned as a fixed-width hex string. Visually
// similar images, including re-encodings at different quality settings, yield
// hashes within a small Hamming distance of each other.
func PerceptualHash(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image for perceptual hash: %w", err)
	}

	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return "", fmt.Errorf("failed to compute perceptual hash: %w", err)
	}

	return fmt.Sprintf("%016x", hash.GetHash()), nil
}

// Distance returns the Hamming distance between two hex-encoded 64-bit
// perceptual hashes (population count of their XOR).
func Distance(a, b string) (int, error) {
	ha, err := strconv.ParseUint(a, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid perceptual hash %q: %w", a, err)
	}
	hb, err := strconv.ParseUint(b, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid perceptual hash %q: %w", b, err)
	}
	return bits.OnesCount64(ha ^ hb), nil
}

// NearDuplicate reports whether current is within threshold Hamming distance
// of any prior hash. Priors are most-recent-first; the scan short-circuits on
// the first match. Unparseable prior hashes are skipped rather than treated
// as matches.
func NearDuplicate(current string, priors []string, threshold int) bool {
	for _, prior := range priors {
		d, err := Distance(current, prior)
		if err != nil {
			continue
		}
		if d <= threshold {
			return true
		}
	}
	return false
}
