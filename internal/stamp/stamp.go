// Package stamp burns a visible provenance annotation into evidence images
// before long-term storage.
package stamp

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const jpegQuality = 90

// Annotation is the human-readable text bound to a stored artifact.
type Annotation struct {
	ProjectID    string
	SubmissionID string
	Timestamp    string // ISO 8601
}

func (a Annotation) lines() []string {
	return []string{
		fmt.Sprintf("project %s", a.ProjectID),
		fmt.Sprintf("submission %s", a.SubmissionID),
		a.Timestamp,
	}
}

// Apply renders the annotation into the bottom-left corner of the image and
// returns the re-encoded JPEG. The text is sized proportionally to image
// width and drawn over a semi-opaque panel so it stays legible on both light
// and dark regions. Image dimensions are preserved. A decode failure is fatal
// for the media item: an unstampable image cannot be stored as evidence.
func Apply(data []byte, ann Annotation) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image for stamping: %w", err)
	}

	bounds := img.Bounds()
	width := float64(bounds.Dx())
	height := float64(bounds.Dy())

	// Scale with width so the stamp stays readable at any resolution.
	fontSize := width / 40
	if fontSize < 10 {
		fontSize = 10
	}
	margin := fontSize * 0.6
	lineHeight := fontSize * 1.3

	ft, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stamp font: %w", err)
	}
	face, err := opentype.NewFace(ft, &opentype.FaceOptions{Size: fontSize, DPI: 72})
	if err != nil {
		return nil, fmt.Errorf("failed to create stamp font face: %w", err)
	}
	defer face.Close()

	dc := gg.NewContextForImage(img)
	dc.SetFontFace(face)

	lines := ann.lines()
	var textWidth float64
	for _, line := range lines {
		if w, _ := dc.MeasureString(line); w > textWidth {
			textWidth = w
		}
	}
	panelW := textWidth + 2*margin
	panelH := lineHeight*float64(len(lines)) + 2*margin

	// Anchor to the bottom-left corner.
	panelX := 0.0
	panelY := height - panelH

	dc.SetRGBA(0, 0, 0, 0.55)
	dc.DrawRectangle(panelX, panelY, panelW, panelH)
	dc.Fill()

	dc.SetRGBA(1, 1, 1, 1)
	for i, line := range lines {
		y := panelY + margin + lineHeight*float64(i) + fontSize
		dc.DrawString(line, panelX+margin, y)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode stamped image: %w", err)
	}
	return buf.Bytes(), nil
}

// Text renders the canonical single-line form of an annotation, used for
// storage object metadata.
func Text(ann Annotation) string {
	return strings.Join(ann.lines(), " | ")
}
