package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

var ErrSQLiteUnavailable = errors.New("storage: sqlite backend unavailable in this build")

// Format selects the on-disk layout of a saved tree.
type Format string

const (
	// FormatAuto uses SQLite when the build includes it and the archive
	// otherwise.
	FormatAuto    Format = "auto"
	FormatSQLite  Format = "sqlite"
	FormatArchive Format = "archive"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatSQLite, FormatArchive:
		return f, nil
	}
	return "", fmt.Errorf("unknown store format: %s", s)
}

// Ext is the file extension used for data files of this format.
func (f Format) Ext() string {
	if f == FormatArchive {
		return ".zip"
	}
	return ".sqlite"
}

// SQLiteAvailable reports whether this build includes the SQLite backend.
func SQLiteAvailable() bool { return sqliteAvailable }

type options struct {
	format Format
	logger *zap.Logger
}

type Option func(*options)

func WithFormat(f Format) Option {
	return func(o *options) { o.format = f }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{format: FormatAuto, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Resolve returns the concrete format Save would use.
func (f Format) Resolve() (Format, error) {
	switch f {
	case FormatAuto, "":
		if sqliteAvailable {
			return FormatSQLite, nil
		}
		return FormatArchive, nil
	case FormatSQLite:
		if !sqliteAvailable {
			return "", ErrSQLiteUnavailable
		}
		return f, nil
	case FormatArchive:
		return f, nil
	}
	return "", fmt.Errorf("unknown store format: %s", f)
}

// Save writes tree to path and returns the format used. Every key and leaf
// is validated before the file is touched; unsupported leaves fail with
// dynamo.ErrUnsupportedValueType naming the key path and type.
func Save(ctx context.Context, path string, tree map[string]any, opts ...Option) (Format, error) {
	o := buildOptions(opts)
	nodes, err := flatten(tree)
	if err != nil {
		return "", err
	}
	format, err := o.format.Resolve()
	if err != nil {
		return "", err
	}
	if o.format == FormatAuto && format == FormatArchive {
		o.logger.Warn("sqlite unavailable, falling back to archive", zap.String("path", path))
	}

	switch format {
	case FormatSQLite:
		err = writeSQLite(ctx, path, nodes)
	default:
		err = writeArchive(path, nodes)
	}
	if err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	o.logger.Debug("tree saved",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("nodes", len(nodes)))
	return format, nil
}

var (
	sqliteMagic  = []byte("SQLite format 3\x00")
	archiveMagic = []byte("PK")
)

// Detect identifies the format of an existing file from its header.
func Detect(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, len(sqliteMagic))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	head = head[:n]
	switch {
	case bytes.Equal(head, sqliteMagic):
		return FormatSQLite, nil
	case bytes.HasPrefix(head, archiveMagic):
		return FormatArchive, nil
	}
	return "", fmt.Errorf("%w: %s is neither sqlite nor archive", ErrCorruptPayload, path)
}

// Load reads a tree written by Save in either format.
func Load(ctx context.Context, path string, opts ...Option) (map[string]any, error) {
	o := buildOptions(opts)
	format, err := Detect(path)
	if err != nil {
		return nil, err
	}
	var nodes []node
	switch format {
	case FormatSQLite:
		nodes, err = readSQLite(ctx, path)
	default:
		nodes, err = readArchive(path)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	tree, err := unflatten(nodes)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	o.logger.Debug("tree loaded", zap.String("path", path), zap.String("format", string(format)))
	return tree, nil
}
