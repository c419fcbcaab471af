// Package assess provides the evidence trust-scoring engine.
package assess

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/evidencecheck/attest/internal/config"
	"github.com/evidencecheck/attest/internal/exif"
	"github.com/evidencecheck/attest/internal/fingerprint"
	"github.com/evidencecheck/attest/internal/geofence"
	"github.com/evidencecheck/attest/internal/models"
	"github.com/evidencecheck/attest/internal/score"
	"github.com/evidencecheck/attest/internal/stamp"
	"github.com/evidencecheck/attest/internal/storage"
	"github.com/evidencecheck/attest/internal/vision"
)

// Engine orchestrates the complete trust-scoring pipeline for a submission:
// fingerprint -> geo check -> stamp and store -> model analysis -> score.
// Stamping and storage are the only fatal stages; everything else degrades to
// a flag or a fallback value.
type Engine struct {
	objects    storage.Store
	adapter    *vision.Adapter
	thresholds score.Thresholds
	similarity int
}

// NewEngine creates a new trust-scoring engine.
func NewEngine(cfg *config.ScoringConfig, objects storage.Store, adapter *vision.Adapter) *Engine {
	return &Engine{
		objects: objects,
		adapter: adapter,
		thresholds: score.Thresholds{
			AutoApprove: cfg.AutoApproveThreshold,
			HumanReview: cfg.HumanReviewThreshold,
		},
		similarity: cfg.SimilarityThreshold,
	}
}

// Assess runs one submission through the pipeline and returns its trust
// assessment. An error is returned only when a stamped artifact could not be
// produced or stored; every degraded condition surfaces as a flag inside the
// assessment instead. The submission context is read-only: prior hashes are a
// snapshot and are never written back here.
func (e *Engine) Assess(ctx context.Context, images [][]byte, sctx models.SubmissionContext) (*models.TrustAssessment, error) {
	startTime := time.Now()

	submissionID := sctx.SubmissionID
	if submissionID == "" {
		submissionID = uuid.New().String()
	}

	if len(images) == 0 {
		// A safe low-trust result beats refusing to answer.
		log.Warn().Str("project", sctx.ProjectID).Msg("Submission contains no media")
		return &models.TrustAssessment{
			ID:        submissionID,
			ProjectID: sctx.ProjectID,
			Score:     0,
			Flags:     []string{models.FlagNoMedia},
			Verdict:   models.VerdictFake,
			Media:     []models.MediaItem{},
			CreatedAt: time.Now().UTC(),
		}, nil
	}

	// Step 1: fingerprint, stamp and store every image. Items are independent
	// and carry their own bytes, so they run concurrently.
	log.Info().Str("submission", submissionID).Int("images", len(images)).
		Msg("Step 1: Fingerprinting and storing media")

	items := make([]models.MediaItem, len(images))
	g, gctx := errgroup.WithContext(ctx)
	for i := range images {
		i := i
		g.Go(func() error {
			item, err := e.processMedia(gctx, images[i], submissionID, sctx)
			if err != nil {
				return err
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to process submission media: %w", err)
	}

	primary := items[0]
	flags := models.NewFlagSet()

	// Step 2: geofence and timestamp checks against the primary image.
	log.Info().Str("submission", submissionID).Msg("Step 2: Validating provenance")
	e.checkProvenance(primary.Provenance, sctx.Geofence, flags)

	// Step 3: near-duplicate scan over the prior-hash window.
	log.Info().Str("submission", submissionID).Int("priors", len(sctx.PriorHashes)).
		Msg("Step 3: Checking for near-duplicates")
	if primary.PerceptualHash != "" &&
		fingerprint.NearDuplicate(primary.PerceptualHash, sctx.PriorHashes, e.similarity) {
		flags.Add(models.FlagNearDuplicate)
	}

	// Step 4: visual-authenticity analysis of the primary image.
	log.Info().Str("submission", submissionID).Msg("Step 4: Running visual-authenticity analysis")
	result := e.adapter.Analyze(ctx, vision.Request{
		ImageData:  images[0],
		Provenance: primary.Provenance,
		Flags:      flags.Slice(),
		Context:    sctx,
	})
	if !result.FromModel {
		flags.Add(models.FlagModelUnavailable)
	}

	// Step 5: fold penalties and the verdict into the final score.
	log.Info().Str("submission", submissionID).Msg("Step 5: Computing trust score")
	finalScore, verdict := score.Compute(flags, &result.Analysis, e.thresholds)

	assessment := &models.TrustAssessment{
		ID:        submissionID,
		ProjectID: sctx.ProjectID,
		Score:     finalScore,
		Flags:     flags.Slice(),
		Verdict:   verdict,
		Media:     items,
		CreatedAt: time.Now().UTC(),
	}
	if result.FromModel {
		analysis := result.Analysis
		assessment.Model = &analysis
	}

	log.Info().
		Str("submission", submissionID).
		Int("score", finalScore).
		Str("verdict", string(verdict)).
		Strs("flags", assessment.Flags).
		Int64("duration_ms", time.Since(startTime).Milliseconds()).
		Msg("Assessment complete")

	return assessment, nil
}

// processMedia runs one image through fingerprint -> stamp -> store. The
// digest and perceptual hash cover the original bytes; the storage reference
// points at the stamped artifact. Stamp or upload failures abort the
// submission, since unstored evidence cannot later be audited.
func (e *Engine) processMedia(ctx context.Context, data []byte, submissionID string, sctx models.SubmissionContext) (models.MediaItem, error) {
	item := models.MediaItem{
		Digest:     fingerprint.Digest(data),
		Provenance: exif.Extract(data),
	}

	phash, err := fingerprint.PerceptualHash(data)
	if err != nil {
		// The stamp stage decodes the same bytes and decides fatality.
		log.Warn().Err(err).Msg("Perceptual hash unavailable")
	} else {
		item.PerceptualHash = phash
	}

	ann := stamp.Annotation{
		ProjectID:    sctx.ProjectID,
		SubmissionID: submissionID,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	stamped, err := stamp.Apply(data, ann)
	if err != nil {
		return models.MediaItem{}, err
	}
	item.Stamped = true

	name := fmt.Sprintf("%s-%s.jpg", submissionID, item.Digest[:12])
	url, key, err := e.objects.Put(ctx, stamped, name, map[string]string{
		"project":    sctx.ProjectID,
		"submission": submissionID,
		"digest":     item.Digest,
		"annotation": stamp.Text(ann),
	})
	if err != nil {
		return models.MediaItem{}, fmt.Errorf("failed to store stamped artifact: %w", err)
	}
	item.StorageURL = url
	item.StorageKey = key

	return item, nil
}

// checkProvenance raises the GPS, geofence and capture-time flags. NO_GPS and
// GEOFENCE_FAIL are mutually exclusive: the geofence check only runs when a
// point was extractable, and is skipped entirely when no polygon is supplied.
func (e *Engine) checkProvenance(prov models.Provenance, fence models.Polygon, flags *models.FlagSet) {
	if !prov.HasGPS() {
		flags.Add(models.FlagNoGPS)
	} else if len(fence) > 0 {
		point := models.GeoPoint{Lon: *prov.Longitude, Lat: *prov.Latitude}
		if !geofence.Contains(fence, point) {
			flags.Add(models.FlagGeofenceFail)
		}
	}

	if prov.CapturedAt == nil {
		flags.Add(models.FlagNoExifTime)
	}
}
