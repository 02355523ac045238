// Package detect runs per-frame object detection and the geometric
// false-positive filter for phone-class boxes.
package detect

import (
	"bufio"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

const (
	inputSize    = 416
	nmsThreshold = 0.4
)

// Classes the monitor cares about. Tablets are usually reported as
// laptops by COCO-trained models.
var allowedClasses = map[string]bool{
	"cell phone": true,
	"laptop":     true,
}

// Detection is one labeled box above the confidence floor.
type Detection struct {
	Label      string
	Box        image.Rectangle
	Confidence float32
}

// Engine wraps a darknet YOLO network loaded through the OpenCV DNN
// module. Not safe for concurrent use; the tick loop is its only caller.
type Engine struct {
	net        gocv.Net
	outputs    []string
	classes    []string
	confidence float32
}

// NewEngine loads the network and class names. Errors here are fatal to
// the caller: the pipeline cannot run without a model.
func NewEngine(weightsPath, configPath, namesPath string, confidence float32) (*Engine, error) {
	classes, err := loadClassNames(namesPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(weightsPath, configPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model from %s / %s", weightsPath, configPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	var outputs []string
	for _, i := range net.GetUnconnectedOutLayers() {
		layer := net.GetLayer(i)
		outputs = append(outputs, layer.GetName())
		layer.Close()
	}
	if len(outputs) == 0 {
		_ = net.Close()
		return nil, fmt.Errorf("model has no output layers")
	}

	return &Engine{
		net:        net,
		outputs:    outputs,
		classes:    classes,
		confidence: confidence,
	}, nil
}

// Detect runs the network on one frame and returns allow-listed boxes
// above the confidence floor. Recomputed every tick; results are not
// reused across frames.
func (e *Engine) Detect(frame gocv.Mat) []Detection {
	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(inputSize, inputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	outs := e.net.ForwardLayers(e.outputs)
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()

	frameW := float32(frame.Cols())
	frameH := float32(frame.Rows())

	var (
		boxes  []image.Rectangle
		scores []float32
		labels []string
	)

	// Each output row is [cx, cy, w, h, objectness, class scores...],
	// coordinates normalized to the input frame.
	for _, out := range outs {
		for r := 0; r < out.Rows(); r++ {
			var bestScore float32
			bestClass := -1
			for c := 5; c < out.Cols(); c++ {
				if s := out.GetFloatAt(r, c); s > bestScore {
					bestScore = s
					bestClass = c - 5
				}
			}
			if bestClass < 0 || bestClass >= len(e.classes) || bestScore < e.confidence {
				continue
			}
			label := e.classes[bestClass]
			if !allowedClasses[label] {
				continue
			}

			cx := out.GetFloatAt(r, 0) * frameW
			cy := out.GetFloatAt(r, 1) * frameH
			w := out.GetFloatAt(r, 2) * frameW
			h := out.GetFloatAt(r, 3) * frameH
			left := int(cx - w/2)
			top := int(cy - h/2)

			boxes = append(boxes, image.Rect(left, top, left+int(w), top+int(h)))
			scores = append(scores, bestScore)
			labels = append(labels, label)
		}
	}

	if len(boxes) == 0 {
		return nil
	}

	indices := gocv.NMSBoxes(boxes, scores, e.confidence, nmsThreshold)
	detections := make([]Detection, 0, len(indices))
	for _, i := range indices {
		detections = append(detections, Detection{
			Label:      labels[i],
			Box:        boxes[i],
			Confidence: scores[i],
		})
	}
	return detections
}

// Close releases the network.
func (e *Engine) Close() error {
	return e.net.Close()
}

func loadClassNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open class names: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			names = append(names, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read class names: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("class names file %s is empty", path)
	}
	return names, nil
}
