package sink

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/okulab/visionsim/internal/frame"
)

// VideoFile writes presented frames to a video file through OpenCV. It is
// the sink for batch conversion, where the pipeline runs without a display
// tick and every frame must be kept.
type VideoFile struct {
	writer *gocv.VideoWriter
	shape  frame.Shape
	count  int
}

// NewVideoFile opens a writer for the given path. The codec is selected by
// fourcc (e.g. "avc1", "mp4v").
func NewVideoFile(path, fourcc string, fps float64, shape frame.Shape) (*VideoFile, error) {
	if fps <= 0 {
		fps = 30
	}
	w, err := gocv.VideoWriterFile(path, fourcc, fps, shape.Width, shape.Height, true)
	if err != nil {
		return nil, fmt.Errorf("open video writer %s: %w", path, err)
	}
	if !w.IsOpened() {
		w.Close()
		return nil, fmt.Errorf("video writer %s did not open", path)
	}
	return &VideoFile{writer: w, shape: shape}, nil
}

// Present encodes one frame to the output file.
func (v *VideoFile) Present(f *frame.Frame) error {
	mat, err := gocv.ImageToMatRGBA(f.RGBA())
	if err != nil {
		return fmt.Errorf("convert frame %d: %w", f.Seq, err)
	}
	defer mat.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(mat, &bgr, gocv.ColorRGBAToBGR)

	if err := v.writer.Write(bgr); err != nil {
		return fmt.Errorf("write frame %d: %w", f.Seq, err)
	}
	v.count++
	return nil
}

// Frames returns how many frames were written.
func (v *VideoFile) Frames() int {
	return v.count
}

// Close finalizes the output file.
func (v *VideoFile) Close() error {
	return v.writer.Close()
}
