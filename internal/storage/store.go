package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
)

const (
	metadataFile = "metadata.json"
	dataFile     = "data"
)

// Store keeps one directory per run holding metadata.json and the saved
// ensemble averages.
type Store struct {
	baseDir string
	opts    options
}

func New(baseDir string, opts ...Option) *Store {
	return &Store{baseDir: baseDir, opts: buildOptions(opts)}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Sampler    string             `json:"sampler"`
	Timestamp  time.Time          `json:"timestamp"`
	NumTrajs   int                `json:"num_trajs"`
	BatchSize  int                `json:"batch_size"`
	Workers    int                `json:"workers"`
	Dt         float64            `json:"dt"`
	Tmax       float64            `json:"tmax"`
	DtCollectN int                `json:"dt_collect_n"`
	Format     Format             `json:"format"`
	Keys       []string           `json:"keys"`
	Summary    map[string]float64 `json:"summary,omitempty"`
}

func (s *Store) runDir(id string) string { return filepath.Join(s.baseDir, id) }

func (s *Store) dataPath(meta *RunMetadata) string {
	return filepath.Join(s.runDir(meta.ID), dataFile+meta.Format.Ext())
}

// SaveRun writes tree and meta under a new run directory and returns the
// run ID. meta.ID, Timestamp and Format are filled in.
func (s *Store) SaveRun(ctx context.Context, meta RunMetadata, tree map[string]any) (string, error) {
	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Model, now.UnixNano())
	meta.Timestamp = now

	runDir := s.runDir(meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	format, err := s.opts.format.Resolve()
	if err != nil {
		return "", err
	}
	meta.Format = format
	used, err := Save(ctx, s.dataPath(&meta), tree, WithFormat(s.opts.format), WithLogger(s.opts.logger))
	if err != nil {
		_ = os.RemoveAll(runDir)
		return "", err
	}
	meta.Format = used

	if err := writeMetadata(filepath.Join(runDir, metadataFile), &meta); err != nil {
		return "", err
	}
	s.opts.logger.Info("run saved",
		zap.String("id", meta.ID),
		zap.String("format", string(used)),
		zap.Int("num_trajs", meta.NumTrajs))
	return meta.ID, nil
}

func writeMetadata(path string, meta *RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// List returns every readable run, oldest first. Directories without valid
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			s.opts.logger.Debug("skipping run directory", zap.String("dir", entry.Name()), zap.Error(err))
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.runDir(runID), metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadData reads the saved tree of a run.
func (s *Store) LoadData(ctx context.Context, runID string) (map[string]any, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	return Load(ctx, s.dataPath(meta), WithLogger(s.opts.logger))
}
