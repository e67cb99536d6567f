package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/san-kum/qclab/internal/dynamo"
)

var tensorCmp = cmp.Comparer(func(a, b *dynamo.Tensor) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b)
})

func sampleTree() map[string]any {
	series, _ := dynamo.FromSlice([]complex128{1, 2i, -3, 4 + 0.5i, 0, 1e-300}, 3, 2)
	return map[string]any{
		"seed":        []int64{0, 1, 2, 3},
		"norm_factor": 4.0,
		"energy":      series,
		"scalar":      dynamo.Scalar(0.25 - 1i),
		"count":       int64(7),
		"flag":        true,
		"phase":       complex(0.5, -0.5),
		"label":       "harmonic",
		"raw":         []byte{0, 1, 2, 255},
		"ratios":      []float64{0.5, 1.5},
		"amplitudes":  []complex128{1i, -1},
		"empty_group": map[string]any{},
		"nested": map[string]any{
			"level": 2.0,
			"deeper": map[string]any{
				"values": []float64{},
				"name":   "",
			},
		},
	}
}

func formats(t *testing.T) []Format {
	t.Helper()
	if SQLiteAvailable() {
		return []Format{FormatSQLite, FormatArchive}
	}
	return []Format{FormatArchive}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, format := range formats(t) {
		t.Run(string(format), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data"+format.Ext())
			used, err := Save(ctx, path, sampleTree(), WithFormat(format))
			if err != nil {
				t.Fatalf("save: %v", err)
			}
			if used != format {
				t.Errorf("used format %s, want %s", used, format)
			}

			detected, err := Detect(path)
			if err != nil || detected != format {
				t.Errorf("detect = %s, %v", detected, err)
			}

			got, err := Load(ctx, path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if diff := cmp.Diff(sampleTree(), got, tensorCmp, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
			if _, ok := got["empty_group"].(map[string]any); !ok {
				t.Errorf("empty group restored as %T", got["empty_group"])
			}
		})
	}
}

func TestSaveNormalizesIntsAndLists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.zip")
	tree := map[string]any{
		"n":      3,
		"floats": []any{1.0, 2.5},
		"ints":   []any{1, int64(2)},
		"cplx":   []any{1i, complex(2, 0)},
	}
	if _, err := Save(ctx, path, tree, WithFormat(FormatArchive)); err != nil {
		t.Fatal(err)
	}
	got, err := Load(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"n":      int64(3),
		"floats": []float64{1, 2.5},
		"ints":   []int64{1, 2},
		"cplx":   []complex128{1i, 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveRejectsUnsupportedLeaves(t *testing.T) {
	tests := []struct {
		name string
		tree map[string]any
		key  string
		want error
	}{
		{"struct leaf", map[string]any{"ok": 1.0, "bad": struct{}{}}, "bad", dynamo.ErrUnsupportedValueType},
		{"nested float32", map[string]any{"g": map[string]any{"x": float32(1)}}, "g/x", dynamo.ErrUnsupportedValueType},
		{"mixed list", map[string]any{"l": []any{1.0, "two"}}, "l", dynamo.ErrUnsupportedValueType},
		{"string list", map[string]any{"l": []any{"a"}}, "l", dynamo.ErrUnsupportedValueType},
		{"nil tensor", map[string]any{"t": (*dynamo.Tensor)(nil)}, "t", dynamo.ErrUnsupportedValueType},
		{"slash in key", map[string]any{"a/b": 1.0}, "a/b", ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.zip")
			_, err := Save(context.Background(), path, tt.tree, WithFormat(FormatArchive))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error %q does not name key %q", err, tt.key)
			}
			if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
				t.Error("file must not be created when validation fails")
			}
		})
	}
}

func TestLoadRejectsUnknownFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk")
	if err := os.WriteFile(path, []byte("not a store"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(context.Background(), path); !errors.Is(err, ErrCorruptPayload) {
		t.Errorf("expected ErrCorruptPayload, got %v", err)
	}
}

func TestDecodeRejectsTruncatedPayloads(t *testing.T) {
	kind, payload, err := encodeLeaf(dynamo.NewTensor(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := decodeLeaf(kind, payload[:len(payload)-3]); !errors.Is(err, ErrCorruptPayload) {
		t.Errorf("tensor: expected ErrCorruptPayload, got %v", err)
	}
	if _, err := decodeLeaf(kindFloats, []byte{1, 2, 3}); !errors.Is(err, ErrCorruptPayload) {
		t.Errorf("floats: expected ErrCorruptPayload, got %v", err)
	}
	if _, err := decodeLeaf("float16", nil); !errors.Is(err, ErrCorruptPayload) {
		t.Errorf("unknown kind: expected ErrCorruptPayload, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatAuto, false},
		{"auto", FormatAuto, false},
		{"sqlite", FormatSQLite, false},
		{"archive", FormatArchive, false},
		{"hdf5", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestAutoFormatFollowsBuild(t *testing.T) {
	got, err := FormatAuto.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	want := FormatArchive
	if SQLiteAvailable() {
		want = FormatSQLite
	}
	if got != want {
		t.Errorf("auto resolved to %s, want %s", got, want)
	}
	if !SQLiteAvailable() {
		if _, err := FormatSQLite.Resolve(); !errors.Is(err, ErrSQLiteUnavailable) {
			t.Errorf("expected ErrSQLiteUnavailable, got %v", err)
		}
	}
}
