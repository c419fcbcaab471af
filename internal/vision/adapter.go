// Package vision wraps the external model call with timeouts, retries and a
// metadata-only fallback analyzer.
package vision

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/evidencecheck/attest/internal/models"
)

// Parse defaults used when a response line is absent or out of range.
const (
	defaultVerdict    = models.VerdictSuspicious
	defaultConfidence = 50
	defaultReasoning  = "unparseable"
)

// Request bundles everything the model gets to reason over for one submission.
type Request struct {
	ImageData  []byte
	Provenance models.Provenance
	Flags      []string
	Context    models.SubmissionContext
}

// Result is the adapter's outcome. FromModel distinguishes a real model
// analysis from the deterministic fallback; callers branch on it instead of
// on errors, which the adapter never propagates.
type Result struct {
	Analysis  models.ModelAnalysis
	FromModel bool
}

// Adapter owns the bounded call to the external provider and the fallback
// path used when it is unavailable.
type Adapter struct {
	provider Provider
	timeout  time.Duration
	retries  int
}

// NewAdapter creates an adapter around a provider. A nil provider means the
// model is configured off and every request takes the fallback path.
func NewAdapter(provider Provider, timeout time.Duration, retries int) *Adapter {
	if retries < 0 {
		retries = 0
	}
	return &Adapter{provider: provider, timeout: timeout, retries: retries}
}

// Analyze runs the primary model path with bounded attempts, degrading to the
// flag-driven fallback on any failure. The boolean result reports whether the
// analysis came from the model.
func (a *Adapter) Analyze(ctx context.Context, req Request) Result {
	if a.provider == nil {
		return Result{Analysis: a.fallback(req.Flags)}
	}

	blob := buildContextBlob(req)

	attempts := a.retries + 1
	for i := 0; i < attempts; i++ {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		raw, err := a.provider.Analyze(callCtx, req.ImageData, blob)
		cancel()
		if err != nil {
			log.Warn().Err(err).Int("attempt", i+1).Str("provider", a.provider.Name()).
				Msg("Vision model call failed")
			continue
		}
		return Result{Analysis: parseResponse(raw), FromModel: true}
	}

	log.Warn().Int("attempts", attempts).Msg("Vision model unavailable, using fallback analyzer")
	return Result{Analysis: a.fallback(req.Flags)}
}

// fallback derives a verdict purely from already-raised flags. Missing GPS
// together with a missing capture time escalates to FAKE; any single critical
// flag yields SUSPICIOUS; clean submissions default to AUTHENTIC.
func (a *Adapter) fallback(flags []string) models.ModelAnalysis {
	set := make(map[string]bool, len(flags))
	for _, f := range flags {
		set[f] = true
	}

	if set[models.FlagNoGPS] && set[models.FlagNoExifTime] {
		return models.ModelAnalysis{
			Verdict:    models.VerdictFake,
			Confidence: 20,
			Reasoning:  "No capture metadata present; image origin cannot be established",
		}
	}
	if set[models.FlagNoGPS] || set[models.FlagGeofenceFail] || set[models.FlagNearDuplicate] {
		return models.ModelAnalysis{
			Verdict:    models.VerdictSuspicious,
			Confidence: 40,
			Reasoning:  "Rule checks raised critical flags; visual analysis unavailable",
		}
	}
	return models.ModelAnalysis{
		Verdict:    models.VerdictAuthentic,
		Confidence: 80,
		Reasoning:  "Metadata checks passed; visual analysis unavailable",
	}
}

// buildContextBlob serializes the provenance, raised flags and project context
// into the text block attached to the model request.
func buildContextBlob(req Request) string {
	var b strings.Builder

	b.WriteString("Submission context:\n")
	fmt.Fprintf(&b, "- project: %s\n", req.Context.ProjectID)
	fmt.Fprintf(&b, "- submission kind: %s\n", req.Context.Kind)
	if req.Context.LocationHint != "" {
		fmt.Fprintf(&b, "- expected location: %s\n", req.Context.LocationHint)
	}

	b.WriteString("Extracted capture metadata:\n")
	if req.Provenance.CapturedAt != nil {
		fmt.Fprintf(&b, "- captured at: %s\n", req.Provenance.CapturedAt.Format(time.RFC3339))
	} else {
		b.WriteString("- captured at: unknown\n")
	}
	if req.Provenance.HasGPS() {
		fmt.Fprintf(&b, "- GPS: %.6f, %.6f\n", *req.Provenance.Latitude, *req.Provenance.Longitude)
	} else {
		b.WriteString("- GPS: missing\n")
	}
	if req.Provenance.DeviceMake != "" || req.Provenance.DeviceModel != "" {
		fmt.Fprintf(&b, "- device: %s %s\n", req.Provenance.DeviceMake, req.Provenance.DeviceModel)
	}

	if len(req.Flags) > 0 {
		fmt.Fprintf(&b, "Flags already raised by rule checks: %s\n", strings.Join(req.Flags, ", "))
	} else {
		b.WriteString("Flags already raised by rule checks: none\n")
	}

	return b.String()
}

// parseResponse extracts the three labeled lines of a model response. Each
// label is parsed independently; an absent line or an out-of-range value falls
// back to the safe defaults rather than failing the analysis.
func parseResponse(raw string) models.ModelAnalysis {
	analysis := models.ModelAnalysis{
		Verdict:    defaultVerdict,
		Confidence: defaultConfidence,
		Reasoning:  defaultReasoning,
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		label, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToUpper(strings.TrimSpace(label)) {
		case "VERDICT":
			switch models.Verdict(strings.ToUpper(value)) {
			case models.VerdictAuthentic:
				analysis.Verdict = models.VerdictAuthentic
			case models.VerdictSuspicious:
				analysis.Verdict = models.VerdictSuspicious
			case models.VerdictFake:
				analysis.Verdict = models.VerdictFake
			}
		case "CONFIDENCE":
			if n, err := strconv.Atoi(value); err == nil && n >= 0 && n <= 100 {
				analysis.Confidence = n
			}
		case "REASONING":
			if value != "" {
				analysis.Reasoning = value
			}
		}
	}

	return analysis
}
