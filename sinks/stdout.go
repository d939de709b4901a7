package sinks

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/simon020286/go-manifest/models"
)

// WriterSink prints reports to an io.Writer, one JSON document per write.
// Nothing but the document is written, so the output can be piped to jq.
type WriterSink struct {
	w io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Write(ctx context.Context, report *models.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := models.Encode(report)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to print report: %w", err)
	}
	return nil
}

func (s *WriterSink) Close() error {
	return nil
}

func init() {
	Register(SchemeStdout, func(*url.URL) (Sink, error) {
		return NewWriterSink(os.Stdout), nil
	})
}
