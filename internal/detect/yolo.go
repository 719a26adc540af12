// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package detect

import (
	"fmt"
	"image"
)

// DecodeOptions controls how raw network output maps back onto the frame.
type DecodeOptions struct {
	Version      Version
	Confidence   float32
	NMSThreshold float32
	// InputSize is the network input resolution the frame was resized to.
	InputSize image.Point
	// FrameSize is the resolution of the frame the boxes are reported in.
	FrameSize image.Point
	Labels    []string
}

// Decode converts a YOLO output tensor into detections above the confidence
// threshold, suppressed with NMS. shape is the tensor shape as reported by
// the runtime, with or without the leading batch dimension.
func Decode(out []float32, shape []int, opts DecodeOptions) ([]Detection, error) {
	if len(shape) == 3 {
		if shape[0] != 1 {
			return nil, fmt.Errorf("detect: batch size %d not supported", shape[0])
		}
		shape = shape[1:]
	}
	if len(shape) != 2 {
		return nil, fmt.Errorf("detect: unexpected output shape %v", shape)
	}
	if shape[0]*shape[1] > len(out) {
		return nil, fmt.Errorf("detect: output has %d values, shape %v needs %d", len(out), shape, shape[0]*shape[1])
	}
	if opts.InputSize.X <= 0 || opts.InputSize.Y <= 0 {
		return nil, fmt.Errorf("detect: input size %v", opts.InputSize)
	}

	sx := float32(opts.FrameSize.X) / float32(opts.InputSize.X)
	sy := float32(opts.FrameSize.Y) / float32(opts.InputSize.Y)

	var candidates []Detection
	switch opts.Version {
	case V8:
		attrs, n := shape[0], shape[1]
		if attrs < 5 {
			return nil, fmt.Errorf("detect: v8 output needs at least 5 rows, got %d", attrs)
		}
		at := func(row, i int) float32 { return out[row*n+i] }
		for i := 0; i < n; i++ {
			cls, score := argmax(attrs-4, func(c int) float32 { return at(4+c, i) })
			if score < opts.Confidence {
				continue
			}
			candidates = append(candidates, makeDetection(cls, score,
				at(0, i), at(1, i), at(2, i), at(3, i), sx, sy, opts))
		}
	case V5, V7, "":
		n, attrs := shape[0], shape[1]
		if attrs < 6 {
			return nil, fmt.Errorf("detect: %s output needs at least 6 columns, got %d", opts.Version, attrs)
		}
		for i := 0; i < n; i++ {
			row := out[i*attrs : (i+1)*attrs]
			obj := row[4]
			if obj < opts.Confidence {
				continue
			}
			cls, clsScore := argmax(attrs-5, func(c int) float32 { return row[5+c] })
			score := obj * clsScore
			if score < opts.Confidence {
				continue
			}
			candidates = append(candidates, makeDetection(cls, score,
				row[0], row[1], row[2], row[3], sx, sy, opts))
		}
	default:
		return nil, fmt.Errorf("detect: unsupported version %q", opts.Version)
	}

	return NMS(candidates, opts.NMSThreshold), nil
}

func argmax(n int, score func(int) float32) (int, float32) {
	best, bestScore := 0, score(0)
	for c := 1; c < n; c++ {
		if s := score(c); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, bestScore
}

func makeDetection(cls int, score, cx, cy, w, h, sx, sy float32, opts DecodeOptions) Detection {
	left := int((cx - w/2) * sx)
	top := int((cy - h/2) * sy)
	right := int((cx + w/2) * sx)
	bottom := int((cy + h/2) * sy)

	box := image.Rect(left, top, right, bottom)
	if opts.FrameSize.X > 0 && opts.FrameSize.Y > 0 {
		box = box.Intersect(image.Rect(0, 0, opts.FrameSize.X, opts.FrameSize.Y))
	}

	d := Detection{Class: cls, Confidence: score, Box: box}
	if cls < len(opts.Labels) {
		d.Label = opts.Labels[cls]
	}
	return d
}
