package services

import (
  "fmt"
  "os"
  "strings"

  "gopkg.in/yaml.v3"
)

// DetectorConfig holds the keyword tables the event detectors scan for.
// Kept as data rather than scattered literals so deployments can override
// the vocabulary without a code change.
type DetectorConfig struct {
  PhaseKeywords   []string `yaml:"phase_keywords"`
  AnomalyKeywords []string `yaml:"anomaly_keywords"`
  PhaseScore      float64  `yaml:"phase_score"`
  AnomalyScore    float64  `yaml:"anomaly_score"`
}

func DefaultDetectorConfig() DetectorConfig {
  return DetectorConfig{
    PhaseKeywords:   []string{"incision", "suture", "dissection", "closure", "preparation"},
    AnomalyKeywords: []string{"error", "mistake", "problem", "bleeding", "complication"},
    PhaseScore:      0.8,
    AnomalyScore:    0.7,
  }
}

// LoadDetectorConfig reads keyword overrides from the YAML file at path.
// Missing fields fall back to the defaults; an empty path returns defaults.
func LoadDetectorConfig(path string) (DetectorConfig, error) {
  cfg := DefaultDetectorConfig()
  if strings.TrimSpace(path) == "" {
    return cfg, nil
  }
  raw, err := os.ReadFile(path)
  if err != nil {
    return cfg, fmt.Errorf("Failed to read detector config %q: %w", path, err)
  }
  var overrides DetectorConfig
  if err := yaml.Unmarshal(raw, &overrides); err != nil {
    return cfg, fmt.Errorf("Failed to parse detector config %q: %w", path, err)
  }
  if len(overrides.PhaseKeywords) > 0 {
    cfg.PhaseKeywords = overrides.PhaseKeywords
  }
  if len(overrides.AnomalyKeywords) > 0 {
    cfg.AnomalyKeywords = overrides.AnomalyKeywords
  }
  if overrides.PhaseScore > 0 {
    cfg.PhaseScore = overrides.PhaseScore
  }
  if overrides.AnomalyScore > 0 {
    cfg.AnomalyScore = overrides.AnomalyScore
  }
  return cfg, nil
}

// DetectedEvent is a detector result not yet bound to a stored Event row.
type DetectedEvent struct {
  Type     string
  StartSec float64
  EndSec   float64
  Score    float64
  Notes    string
}

// SegmentText is the minimal detector input: a segment's interval and its
// captions joined into one searchable string.
type SegmentText struct {
  StartSec float64
  EndSec   float64
  Text     string
}

// DetectEvents runs the phase-change and anomaly rules over segments in
// start-time order. It is a pure function: same input, same output.
//
// Phase rule: segment 0 always marks the start of the procedure. For every
// later segment, a phase keyword present in it but absent from its
// predecessor emits a phase event over that segment's interval.
// Anomaly rule: any segment containing an anomaly keyword emits an anomaly
// event. All matching is case-insensitive substring search.
func DetectEvents(cfg DetectorConfig, segments []SegmentText) []DetectedEvent {
  var events []DetectedEvent

  for i, seg := range segments {
    text := strings.ToLower(seg.Text)

    if i == 0 {
      events = append(events, DetectedEvent{
        Type:     "phase",
        StartSec: seg.StartSec,
        EndSec:   seg.EndSec,
        Score:    cfg.PhaseScore,
        Notes:    "procedure start",
      })
    } else {
      prev := strings.ToLower(segments[i-1].Text)
      for _, kw := range cfg.PhaseKeywords {
        kw = strings.ToLower(kw)
        if strings.Contains(text, kw) && !strings.Contains(prev, kw) {
          events = append(events, DetectedEvent{
            Type:     "phase",
            StartSec: seg.StartSec,
            EndSec:   seg.EndSec,
            Score:    cfg.PhaseScore,
            Notes:    "phase change: " + kw,
          })
          break
        }
      }
    }

    for _, kw := range cfg.AnomalyKeywords {
      kw = strings.ToLower(kw)
      if strings.Contains(text, kw) {
        events = append(events, DetectedEvent{
          Type:     "anomaly",
          StartSec: seg.StartSec,
          EndSec:   seg.EndSec,
          Score:    cfg.AnomalyScore,
          Notes:    "anomaly keyword: " + kw,
        })
        break
      }
    }
  }

  return events
}
