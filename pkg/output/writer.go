// Package output persists a graph as newline-delimited JSON records.
package output

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ajitpratap0/memgraph/pkg/builderrors"
	"github.com/ajitpratap0/memgraph/pkg/compression"
	"github.com/ajitpratap0/memgraph/pkg/json"
	"github.com/ajitpratap0/memgraph/pkg/logger"
	"github.com/ajitpratap0/memgraph/pkg/models"
)

const defaultBufferSize = 64 * 1024

// Config configures a Writer.
type Config struct {
	Path        string
	Compression compression.Algorithm
	Level       compression.Level
	BufferSize  int
}

// Summary describes a completed write.
type Summary struct {
	Path      string
	Entities  int
	Relations int
	// Bytes is the uncompressed size of the record stream.
	Bytes int64
}

// Writer writes every entity then every relation, one record per line.
type Writer struct {
	cfg    Config
	logger *zap.Logger
}

// NewWriter creates a Writer. The compression extension, if any, is
// appended to cfg.Path.
func NewWriter(cfg Config, log *zap.Logger) *Writer {
	if cfg.Compression == "" {
		cfg.Compression = compression.None
	}
	if cfg.Level == 0 {
		cfg.Level = compression.Default
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	cfg.Path += cfg.Compression.Extension()
	return &Writer{cfg: cfg, logger: logger.OrNop(log)}
}

// Path returns the final output path.
func (w *Writer) Path() string {
	return w.cfg.Path
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Write persists graph. The records go to a temporary file in the target
// directory which is renamed over the output path only once complete.
func (w *Writer) Write(ctx context.Context, graph *models.Graph) (*Summary, error) {
	dir := filepath.Dir(w.cfg.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // output directory is user facing
		return nil, w.ioError(err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.cfg.Path)+".*.tmp")
	if err != nil {
		return nil, w.ioError(err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	buffered := bufio.NewWriterSize(tmp, w.cfg.BufferSize)
	compressed, err := compression.NewWriter(buffered, w.cfg.Compression, w.cfg.Level)
	if err != nil {
		return nil, w.ioError(err)
	}
	counter := &countingWriter{w: compressed}

	if err := encode(ctx, counter, graph); err != nil {
		return nil, w.ioError(err)
	}
	if err := compressed.Close(); err != nil {
		return nil, w.ioError(err)
	}
	if err := buffered.Flush(); err != nil {
		return nil, w.ioError(err)
	}
	if err := tmp.Close(); err != nil {
		return nil, w.ioError(err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil { //nolint:gosec // output is meant to be shared
		return nil, w.ioError(err)
	}
	if err := os.Rename(tmpPath, w.cfg.Path); err != nil {
		return nil, w.ioError(err)
	}
	committed = true

	summary := &Summary{
		Path:      w.cfg.Path,
		Entities:  len(graph.Entities),
		Relations: len(graph.Relations),
		Bytes:     counter.n,
	}
	w.logger.Debug("wrote output",
		zap.String("path", summary.Path),
		zap.Int("entities", summary.Entities),
		zap.Int("relations", summary.Relations),
		zap.Int64("bytes", summary.Bytes),
		zap.String("compression", string(w.cfg.Compression)))
	return summary, nil
}

// encode writes the record stream. An empty graph is a single newline.
func encode(ctx context.Context, out io.Writer, graph *models.Graph) error {
	enc := json.NewLineEncoder(out)
	for _, e := range graph.Entities {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(e.Record()); err != nil {
			return err
		}
	}
	for _, r := range graph.Relations {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(r.Record()); err != nil {
			return err
		}
	}
	if enc.Lines() == 0 {
		_, err := out.Write([]byte{'\n'})
		return err
	}
	return nil
}

func (w *Writer) ioError(err error) error {
	return builderrors.Wrap(err, builderrors.ErrorTypeIO, "Failed to write output file: "+w.cfg.Path).
		WithDetail("path", w.cfg.Path)
}
