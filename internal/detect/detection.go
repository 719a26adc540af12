// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package detect holds the detector-agnostic result types and the YOLO
// output decoding shared by inference backends.
package detect

import (
	"fmt"
	"image"
	"sort"
	"strings"
)

// Detection is one object found in a frame.
type Detection struct {
	Class      int             `json:"class"`
	Label      string          `json:"label,omitempty"`
	Confidence float32         `json:"conf"`
	Box        image.Rectangle `json:"box"` // frame pixel coordinates
}

func (d Detection) String() string {
	name := d.Label
	if name == "" {
		name = fmt.Sprintf("class %d", d.Class)
	}
	return fmt.Sprintf("%s %.2f", name, d.Confidence)
}

// Version identifies the model's output tensor layout.
type Version string

const (
	// V5 and V7 emit [1, N, 5+C]: cx, cy, w, h, objectness, class scores.
	V5 Version = "v5"
	V7 Version = "v7"
	// V8 emits [1, 4+C, N]: cx, cy, w, h, class scores, no objectness.
	V8 Version = "v8"
)

// ParseVersion normalises a config value such as "v7" or "yolov8".
func ParseVersion(s string) (Version, error) {
	v := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "yolo")
	switch Version(v) {
	case V5, V7, V8:
		return Version(v), nil
	case "":
		return V7, nil
	default:
		return "", fmt.Errorf("unsupported model version %q (want v5, v7 or v8)", s)
	}
}

// IoU returns the intersection-over-union of two boxes.
func IoU(a, b image.Rectangle) float32 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := area(inter)
	union := area(a) + area(b) - ia
	if union <= 0 {
		return 0
	}
	return float32(ia) / float32(union)
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

// NMS performs per-class greedy non-maximum suppression and returns the kept
// detections ordered by descending confidence.
func NMS(dets []Detection, iouThreshold float32) []Detection {
	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]Detection, 0, len(sorted))
	for _, d := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.Class == d.Class && IoU(k.Box, d.Box) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, d)
		}
	}
	return kept
}
