package sink

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"log/slog"
	"net/http"
	"sync"

	"github.com/okulab/visionsim/internal/frame"
)

// MJPEG broadcasts presented frames to any number of HTTP clients as a
// multipart/x-mixed-replace stream. Encoding happens once per presented
// frame in Present; clients each hold a one-deep mailbox so a stalled
// client only ever skips frames, never backs up the pipeline.
type MJPEG struct {
	quality int
	logger  *slog.Logger

	mu      sync.Mutex
	clients map[chan []byte]struct{}
	last    []byte
}

// NewMJPEG creates a broadcaster with the given JPEG quality (1-100).
func NewMJPEG(quality int, logger *slog.Logger) *MJPEG {
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MJPEG{
		quality: quality,
		logger:  logger,
		clients: make(map[chan []byte]struct{}),
	}
}

// Present encodes the frame and fans it out. With no clients attached the
// frame is dropped after caching, keeping Present cheap.
func (m *MJPEG) Present(f *frame.Frame) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.RGBA(), &jpeg.Options{Quality: m.quality}); err != nil {
		return fmt.Errorf("encode preview frame: %w", err)
	}
	data := buf.Bytes()

	m.mu.Lock()
	m.last = data
	for ch := range m.clients {
		select {
		case ch <- data:
		default:
			// client mailbox full, it will pick up a later frame
		}
	}
	m.mu.Unlock()
	return nil
}

// ClientCount returns the number of attached preview clients.
func (m *MJPEG) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

func (m *MJPEG) subscribe() (chan []byte, func()) {
	ch := make(chan []byte, 1)
	m.mu.Lock()
	if m.last != nil {
		ch <- m.last
	}
	m.clients[ch] = struct{}{}
	m.mu.Unlock()

	return ch, func() {
		m.mu.Lock()
		delete(m.clients, ch)
		m.mu.Unlock()
	}
}

// ServeHTTP implements the MJPEG streaming endpoint.
func (m *MJPEG) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const boundary = "visionsimframe"
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-store")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch, unsubscribe := m.subscribe()
	defer unsubscribe()
	m.logger.Debug("Preview client attached", "remote", r.RemoteAddr)

	for {
		select {
		case <-r.Context().Done():
			m.logger.Debug("Preview client detached", "remote", r.RemoteAddr)
			return
		case data := <-ch:
			if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", boundary, len(data)); err != nil {
				return
			}
			if _, err := w.Write(data); err != nil {
				return
			}
			if _, err := fmt.Fprint(w, "\r\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
