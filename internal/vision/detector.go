// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vision

import (
	"fmt"
	"image"
	"time"

	"github.com/golang/glog"
	"gocv.io/x/gocv"

	"github.com/relabs-tech/gnss_overlay/internal/detect"
	"github.com/relabs-tech/gnss_overlay/internal/display"
)

// DetectorOptions configures a YOLO model loaded through OpenCV's DNN module.
type DetectorOptions struct {
	Model        string
	Version      detect.Version
	Confidence   float32
	NMSThreshold float32
	InputSize    int
	Labels       []string
	// CUDA selects the CUDA backend when OpenCV was built with it.
	CUDA bool
}

// DNNDetector runs a YOLO network on frames.
type DNNDetector struct {
	net  gocv.Net
	opts DetectorOptions
}

// NewDNNDetector loads the model file (ONNX, or anything gocv.ReadNet takes).
func NewDNNDetector(opts DetectorOptions) (*DNNDetector, error) {
	if opts.InputSize <= 0 {
		opts.InputSize = 640
	}
	net := gocv.ReadNet(opts.Model, "")
	if net.Empty() {
		return nil, fmt.Errorf("vision: could not load model %q", opts.Model)
	}
	if opts.CUDA {
		net.SetPreferableBackend(gocv.NetBackendCUDA)
		net.SetPreferableTarget(gocv.NetTargetCUDA)
	}
	glog.Infof("vision: loaded %s model %s (input %d, conf %.2f)", opts.Version, opts.Model, opts.InputSize, opts.Confidence)
	return &DNNDetector{net: net, opts: opts}, nil
}

// Infer runs one forward pass and decodes the detections in frame
// coordinates.
func (d *DNNDetector) Infer(f display.Frame) ([]detect.Detection, time.Duration, error) {
	frame, ok := f.(*Frame)
	if !ok {
		return nil, 0, fmt.Errorf("vision: unexpected frame type %T", f)
	}

	start := time.Now()
	in := image.Pt(d.opts.InputSize, d.opts.InputSize)
	blob := gocv.BlobFromImage(frame.Mat, 1.0/255.0, in, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, 0, fmt.Errorf("vision: read output: %w", err)
	}
	dets, err := detect.Decode(data, out.Size(), detect.DecodeOptions{
		Version:      d.opts.Version,
		Confidence:   d.opts.Confidence,
		NMSThreshold: d.opts.NMSThreshold,
		InputSize:    in,
		FrameSize:    frame.Size(),
		Labels:       d.opts.Labels,
	})
	if err != nil {
		return nil, 0, err
	}
	return dets, time.Since(start), nil
}

// Close frees the network.
func (d *DNNDetector) Close() error {
	return d.net.Close()
}
