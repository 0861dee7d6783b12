package source

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/okulab/visionsim/internal/frame"
)

// maxProbeIndex bounds camera auto-detection.
const maxProbeIndex = 4

// videoSource wraps a gocv capture handle (camera or file).
type videoSource struct {
	cap   *gocv.VideoCapture
	mat   gocv.Mat
	shape frame.Shape
	// file sources report exhaustion at end of stream, cameras fail
	isFile bool
}

// OpenCamera opens a V4L2 camera by index. A negative index probes for the
// first device that actually delivers frames instead of crashing on a
// hardcoded index.
func OpenCamera(cfg Config) (FrameSource, error) {
	if cfg.Device >= 0 {
		return openCameraIndex(cfg, cfg.Device)
	}
	var lastErr error
	for idx := 0; idx <= maxProbeIndex; idx++ {
		src, err := openCameraIndex(cfg, idx)
		if err == nil {
			return src, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no usable camera found (probed 0-%d): %w", maxProbeIndex, lastErr)
}

func openCameraIndex(cfg Config, idx int) (FrameSource, error) {
	cap, err := gocv.VideoCaptureDevice(idx)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", idx, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("camera %d is not available", idx)
	}

	if cfg.Width > 0 {
		cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.FPS > 0 {
		cap.Set(gocv.VideoCaptureFPS, cfg.FPS)
	}

	src := &videoSource{cap: cap, mat: gocv.NewMat()}

	// Geometry requests are best effort; read one frame to learn the
	// shape the device actually negotiated.
	probe, err := src.Read()
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("camera %d delivered no frames: %w", idx, err)
	}
	src.shape = probe.Shape()
	return src, nil
}

// OpenFile opens a video file as a frame source. End of file surfaces as
// ErrExhausted.
func OpenFile(path string) (FrameSource, error) {
	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video file %s: %w", path, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("video file %s could not be opened", path)
	}
	return &videoSource{
		cap:    cap,
		mat:    gocv.NewMat(),
		isFile: true,
		shape: frame.Shape{
			Width:  int(cap.Get(gocv.VideoCaptureFrameWidth)),
			Height: int(cap.Get(gocv.VideoCaptureFrameHeight)),
		},
	}, nil
}

// Read grabs the next frame and converts it into an owned RGBA buffer.
func (s *videoSource) Read() (*frame.Frame, error) {
	if !s.cap.Read(&s.mat) || s.mat.Empty() {
		if s.isFile {
			return nil, ErrExhausted
		}
		return nil, fmt.Errorf("camera read failed")
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return frame.FromImage(img), nil
}

// Shape returns the negotiated frame geometry.
func (s *videoSource) Shape() frame.Shape {
	return s.shape
}

// FPS returns the rate reported by the capture handle, if any.
func (s *videoSource) FPS() float64 {
	return s.cap.Get(gocv.VideoCaptureFPS)
}

// Close releases the capture handle and the scratch Mat.
func (s *videoSource) Close() error {
	s.mat.Close()
	return s.cap.Close()
}
