// Package models defines the core data structures used throughout the application.
package models

import (
	"time"
)

// Verdict is the tri-state authenticity classification of a submission.
type Verdict string

const (
	VerdictAuthentic  Verdict = "AUTHENTIC"
	VerdictSuspicious Verdict = "SUSPICIOUS"
	VerdictFake       Verdict = "FAKE"
)

// SubmissionKind classifies why the evidence was submitted.
type SubmissionKind string

const (
	KindBaseline   SubmissionKind = "baseline"
	KindPeriodic   SubmissionKind = "periodic"
	KindThirdParty SubmissionKind = "third_party_verification"
)

// Flag identifiers raised by the scoring pipeline.
const (
	FlagNoMedia          = "NO_MEDIA"
	FlagNoGPS            = "NO_GPS"
	FlagGeofenceFail     = "GEOFENCE_FAIL"
	FlagNoExifTime       = "NO_EXIF_TIME"
	FlagNearDuplicate    = "NEAR_DUPLICATE"
	FlagModelUnavailable = "MODEL_UNAVAILABLE"
)

// Provenance holds capture metadata extracted from image bytes. Every field
// is independently optional; absence is represented by nil pointers so the
// default-resolution order lives in one place instead of ad hoc fallbacks.
type Provenance struct {
	CapturedAt  *time.Time `json:"captured_at,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	DeviceMake  string     `json:"device_make,omitempty"`
	DeviceModel string     `json:"device_model,omitempty"`
}

// HasGPS reports whether both coordinates were extractable.
func (p Provenance) HasGPS() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// MediaItem is one captured image as submitted. Digest and PerceptualHash are
// computed from the original bytes before stamping; StorageKey and StorageURL
// refer to the stamped artifact.
type MediaItem struct {
	Digest         string     `json:"digest"`
	PerceptualHash string     `json:"perceptual_hash"`
	Provenance     Provenance `json:"provenance"`
	StorageKey     string     `json:"storage_key,omitempty"`
	StorageURL     string     `json:"storage_url,omitempty"`
	Stamped        bool       `json:"stamped"`
}

// GeoPoint is a longitude/latitude pair.
type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Polygon is a single ring of vertices without holes, closed implicitly.
type Polygon []GeoPoint

// SubmissionContext carries the externally supplied facts needed to judge a
// submission. Owned by the caller; the pipeline only reads it.
type SubmissionContext struct {
	ProjectID    string         `json:"project_id"`
	SubmissionID string         `json:"submission_id"`
	Kind         SubmissionKind `json:"kind"`
	Geofence     Polygon        `json:"geofence,omitempty"`
	PriorHashes  []string       `json:"prior_hashes,omitempty"`
	LocationHint string         `json:"location_hint,omitempty"`
}

// ModelAnalysis is the visual-authenticity model's judgment of a submission.
type ModelAnalysis struct {
	Verdict    Verdict `json:"verdict"`
	Confidence int     `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// TrustAssessment is the pipeline's sole output: a bounded score, the ordered
// set of diagnostic flags, and the final verdict. Model is populated only when
// the external model was reachable. Never mutated after return.
type TrustAssessment struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	Score     int            `json:"score"`
	Flags     []string       `json:"flags"`
	Verdict   Verdict        `json:"verdict"`
	Model     *ModelAnalysis `json:"model_analysis,omitempty"`
	Media     []MediaItem    `json:"media"`
	CreatedAt time.Time      `json:"created_at"`
}

// FlagSet accumulates flag identifiers, deduplicated in insertion order.
type FlagSet struct {
	seen  map[string]bool
	order []string
}

// NewFlagSet returns an empty flag set.
func NewFlagSet() *FlagSet {
	return &FlagSet{seen: make(map[string]bool)}
}

// Add records a flag unless it is already present.
func (f *FlagSet) Add(flag string) {
	if f.seen[flag] {
		return
	}
	f.seen[flag] = true
	f.order = append(f.order, flag)
}

// Has reports whether the flag has been raised.
func (f *FlagSet) Has(flag string) bool {
	return f.seen[flag]
}

// Slice returns the flags in insertion order. The returned slice is never nil
// so assessments serialize as [] rather than null.
func (f *FlagSet) Slice() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// ProjectRecord is a registered restoration project with its approved area.
type ProjectRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Geofence     Polygon   `json:"geofence,omitempty"`
	LocationHint string    `json:"location_hint,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SubmitRequest is the context part of a submission request body.
type SubmitRequest struct {
	ProjectID    string         `json:"project_id"`
	Kind         SubmissionKind `json:"kind"`
	LocationHint string         `json:"location_hint,omitempty"`
}
