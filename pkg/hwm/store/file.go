package store

import (
	"context"
	"crypto/md5" //nolint:gosec // used for stable filenames, not security
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/tidemark-io/tidemark/pkg/errors"
	"github.com/tidemark-io/tidemark/pkg/hwm"
	"github.com/tidemark-io/tidemark/pkg/logger"
)

// FileStore persists one JSON record per qualified name under a base
// directory. Records carry a kind discriminator so marks written by an
// unknown future kind fail loudly on load instead of being misread.
// Concurrent writers to the same directory are out of scope.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// fileRecord is the on-disk layout of one high-water-mark
type fileRecord struct {
	QualifiedName string    `json:"qualified_name"`
	Kind          string    `json:"kind"`
	Value         string    `json:"value"`
	Expression    string    `json:"expression"`
	Entity        string    `json:"entity"`
	Instance      string    `json:"instance"`
	Process       string    `json:"process,omitempty"`
	ModifiedAt    time.Time `json:"modified_at"`
}

// NewFileStore creates a file-backed store rooted at dir, creating the
// directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "file store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeState, "failed to create HWM store directory")
	}
	return &FileStore{
		dir:    dir,
		logger: logger.With(zap.String("component", "hwm_file_store"), zap.String("dir", dir)),
	}, nil
}

// Get implements Store
func (s *FileStore) Get(_ context.Context, qualifiedName string) (*hwm.HWM, error) {
	data, err := os.ReadFile(s.path(qualifiedName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrorTypeState, "failed to read HWM record")
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "malformed HWM record")
	}

	value, err := hwm.ParseValue(hwm.Kind(rec.Kind), rec.Value)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode HWM record "+rec.QualifiedName)
	}

	return &hwm.HWM{
		Entity:     rec.Entity,
		Expression: rec.Expression,
		Instance:   rec.Instance,
		Process:    rec.Process,
		Value:      value,
	}, nil
}

// Set implements Store. The record is written atomically via a temp file
// rename so a crash mid-write never leaves a truncated record behind.
func (s *FileStore) Set(_ context.Context, h *hwm.HWM) error {
	if h == nil || h.Value == nil {
		return errors.New(errors.ErrorTypeValidation, "cannot persist a high-water-mark without a value")
	}

	rec := fileRecord{
		QualifiedName: h.QualifiedName(),
		Kind:          string(h.Value.Kind()),
		Value:         h.Value.String(),
		Expression:    h.Expression,
		Entity:        h.Entity,
		Instance:      h.Instance,
		Process:       h.Process,
		ModifiedAt:    time.Now().UTC(),
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode HWM record")
	}

	target := s.path(h.QualifiedName())
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeState, "failed to write HWM record")
	}
	if err := os.Rename(tmp, target); err != nil {
		return errors.Wrap(err, errors.ErrorTypeState, "failed to replace HWM record")
	}

	s.logger.Debug("high-water-mark persisted",
		zap.String("qualified_name", rec.QualifiedName),
		zap.String("kind", rec.Kind),
		zap.String("value", rec.Value))
	return nil
}

// path maps a qualified name to a stable filename: a readable slug plus a
// digest so distinct names never collide after sanitization
func (s *FileStore) path(qualifiedName string) string {
	sum := md5.Sum([]byte(qualifiedName)) //nolint:gosec
	name := slug(qualifiedName) + "__" + hex.EncodeToString(sum[:])[:8] + ".json"
	return filepath.Join(s.dir, name)
}

func slug(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
