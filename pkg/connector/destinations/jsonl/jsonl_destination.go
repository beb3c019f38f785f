// Package jsonl implements the newline-delimited JSON file destination
// connector. Rows serialize through goccy/go-json.
package jsonl

import (
	"context"
	"io"
	"os"
	"sync"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/tidemark-io/tidemark/pkg/compression"
	"github.com/tidemark-io/tidemark/pkg/config"
	"github.com/tidemark-io/tidemark/pkg/connector/base"
	"github.com/tidemark-io/tidemark/pkg/connector/core"
	"github.com/tidemark-io/tidemark/pkg/errors"
	"github.com/tidemark-io/tidemark/pkg/models"
)

// JSONLDestination implements core.Destination for JSON Lines files
type JSONLDestination struct {
	*base.BaseConnector

	path string

	file       *os.File
	compressor io.WriteCloser
	encoder    *json.Encoder

	mu          sync.Mutex
	rowsWritten int64
}

// NewJSONLDestination creates a new JSON Lines destination connector
func NewJSONLDestination(_ *config.BaseConfig) (core.Destination, error) {
	return &JSONLDestination{
		BaseConnector: base.NewBaseConnector("jsonl", core.ConnectorTypeDestination, "1.0.0"),
	}, nil
}

// Initialize opens the output file
func (d *JSONLDestination) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
	if err := d.BaseConnector.Initialize(ctx, cfg); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize base connector")
	}
	if cfg.Output.Path == "" {
		return errors.New(errors.ErrorTypeConfig, "output.path is required")
	}

	alg, err := compression.ParseAlgorithm(cfg.Output.Compression)
	if err != nil {
		return err
	}

	d.path = cfg.Output.Path

	flags := os.O_WRONLY | os.O_CREATE
	if cfg.Output.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(d.path, flags, 0o644) //nolint:gosec
	if err != nil {
		return errors.Wrapf(err, errors.ErrorTypeConnection, "failed to open %s", d.path)
	}
	d.file = file

	cw, err := compression.NewWriter(alg, file)
	if err != nil {
		_ = file.Close()
		return err
	}
	d.compressor = cw
	d.encoder = json.NewEncoder(cw)

	d.GetLogger().Info("jsonl destination initialized",
		zap.String("path", d.path),
		zap.String("compression", string(alg)))
	return nil
}

// Write appends one JSON object per record
func (d *JSONLDestination) Write(_ context.Context, rs *models.RecordSet) error {
	if rs == nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.encoder == nil {
		return errors.New(errors.ErrorTypeState, "destination not initialized")
	}

	for _, rec := range rs.Records {
		if err := d.encoder.Encode(rec.Data); err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to encode record")
		}
		d.rowsWritten++
	}
	return nil
}

// Close flushes and closes the file
func (d *JSONLDestination) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.encoder = nil
	if d.compressor != nil {
		if err := d.compressor.Close(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to close compressor")
		}
		d.compressor = nil
	}
	if d.file != nil {
		if err := d.file.Close(); err != nil {
			return errors.Wrapf(err, errors.ErrorTypeConnection, "failed to close %s", d.path)
		}
		d.file = nil
	}

	d.GetLogger().Info("jsonl destination closed",
		zap.String("path", d.path),
		zap.Int64("rows_written", d.rowsWritten))
	return d.BaseConnector.Close(ctx)
}

// Health reports whether the destination is writable
func (d *JSONLDestination) Health(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.encoder == nil {
		return errors.New(errors.ErrorTypeState, "destination not initialized")
	}
	return nil
}
