// Package csv implements the CSV file destination connector with
// optional gzip, zstd or lz4 compression.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tidemark-io/tidemark/pkg/compression"
	"github.com/tidemark-io/tidemark/pkg/config"
	"github.com/tidemark-io/tidemark/pkg/connector/base"
	"github.com/tidemark-io/tidemark/pkg/connector/core"
	"github.com/tidemark-io/tidemark/pkg/errors"
	"github.com/tidemark-io/tidemark/pkg/models"
)

// CSVDestination implements core.Destination for CSV files
type CSVDestination struct {
	*base.BaseConnector

	path      string
	appending bool

	file       *os.File
	compressor compressionWriter
	writer     *csv.Writer

	mu            sync.Mutex
	headerWritten bool
	rowsWritten   int64
}

type compressionWriter interface {
	Write(p []byte) (int, error)
	Close() error
}

// NewCSVDestination creates a new CSV destination connector
func NewCSVDestination(_ *config.BaseConfig) (core.Destination, error) {
	return &CSVDestination{
		BaseConnector: base.NewBaseConnector("csv", core.ConnectorTypeDestination, "1.0.0"),
	}, nil
}

// Initialize opens the output file
func (d *CSVDestination) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
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
	d.appending = cfg.Output.Append

	flags := os.O_WRONLY | os.O_CREATE
	if d.appending {
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
	d.writer = csv.NewWriter(cw)

	// an appended file already carries its header
	if d.appending {
		if info, err := file.Stat(); err == nil && info.Size() > 0 {
			d.headerWritten = true
		}
	}

	d.GetLogger().Info("csv destination initialized",
		zap.String("path", d.path),
		zap.String("compression", string(alg)),
		zap.Bool("append", d.appending))
	return nil
}

// Write appends the record set to the file, emitting the header first
func (d *CSVDestination) Write(_ context.Context, rs *models.RecordSet) error {
	if rs == nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.writer == nil {
		return errors.New(errors.ErrorTypeState, "destination not initialized")
	}

	if !d.headerWritten && len(rs.Columns) > 0 {
		if err := d.writer.Write(rs.Columns); err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to write header")
		}
		d.headerWritten = true
	}

	row := make([]string, len(rs.Columns))
	for _, rec := range rs.Records {
		for i, col := range rs.Columns {
			row[i] = formatValue(rec.Data[col])
		}
		if err := d.writer.Write(row); err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to write row")
		}
		d.rowsWritten++
	}

	d.writer.Flush()
	if err := d.writer.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to flush rows")
	}
	return nil
}

// Close flushes and closes the file
func (d *CSVDestination) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.writer != nil {
		d.writer.Flush()
		if err := d.writer.Error(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to flush rows")
		}
		d.writer = nil
	}
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

	d.GetLogger().Info("csv destination closed",
		zap.String("path", d.path),
		zap.Int64("rows_written", d.rowsWritten))
	return d.BaseConnector.Close(ctx)
}

// Health reports whether the destination is writable
func (d *CSVDestination) Health(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writer == nil {
		return errors.New(errors.ErrorTypeState, "destination not initialized")
	}
	return nil
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}
