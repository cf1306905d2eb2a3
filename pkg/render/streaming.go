package render

import (
	"io"
	"net/http"
)

// StreamingRenderer renders pages to an http.ResponseWriter and flushes
// after the head so the browser can start fetching stylesheets and scripts
// while the body renders.
type StreamingRenderer struct {
	*Renderer
	flusher http.Flusher
	w       io.Writer
}

// NewStreamingRenderer creates a streaming renderer. If w does not implement
// http.Flusher, it behaves like Renderer.RenderPage.
func NewStreamingRenderer(w io.Writer, config RendererConfig) *StreamingRenderer {
	flusher, _ := w.(http.Flusher)
	return &StreamingRenderer{
		Renderer: NewRenderer(config),
		flusher:  flusher,
		w:        w,
	}
}

// RenderPage renders a complete HTML document, flushing after the head and
// after the body.
func (s *StreamingRenderer) RenderPage(page PageData) error {
	hw := &htmlWriter{w: s.w}

	s.writePageStart(hw, page)
	if hw.err != nil {
		return hw.err
	}
	s.flush()

	if err := s.writePageBody(hw, page); err != nil {
		return err
	}
	s.writePageEnd(hw, page)
	if hw.err != nil {
		return hw.err
	}
	s.flush()
	return nil
}

func (s *StreamingRenderer) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}
