// Package exif extracts capture provenance (timestamp, GPS, device) from image bytes.
package exif

import (
	"bytes"

	"github.com/rs/zerolog/log"
	"github.com/rwcarlsen/goexif/exif"

	"github.com/evidencecheck/attest/internal/models"
)

// Extract pulls provenance metadata out of raw image bytes. Every field is
// independently optional: missing or malformed metadata yields an absent field,
// never an error. The image bytes are not modified.
func Extract(data []byte) models.Provenance {
	var prov models.Provenance

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		// No EXIF block at all (PNG, stripped JPEG, corrupt bytes).
		log.Debug().Err(err).Msg("No EXIF metadata found")
		return prov
	}

	if t, err := x.DateTime(); err == nil {
		prov.CapturedAt = &t
	}

	if lat, lon, err := x.LatLong(); err == nil {
		prov.Latitude = &lat
		prov.Longitude = &lon
	}

	if tag, err := x.Get(exif.Make); err == nil {
		if s, err := tag.StringVal(); err == nil {
			prov.DeviceMake = s
		}
	}
	if tag, err := x.Get(exif.Model); err == nil {
		if s, err := tag.StringVal(); err == nil {
			prov.DeviceModel = s
		}
	}

	return prov
}
