package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/san-kum/qclab/internal/dynamo"
)

type ExportData struct {
	Run    RunMetadata            `json:"run"`
	Times  []float64              `json:"times"`
	Series map[string][][]float64 `json:"series"`
	Imag   map[string][][]float64 `json:"imag,omitempty"`
}

// ExportJSON writes every time series in tree whose leading axis matches
// times. Real and imaginary parts are written separately; imaginary parts
// are omitted for real-valued series.
func ExportJSON(w io.Writer, meta *RunMetadata, times []float64, tree map[string]any) error {
	data := ExportData{
		Run:    *meta,
		Times:  times,
		Series: make(map[string][][]float64),
		Imag:   make(map[string][][]float64),
	}

	keys := make([]string, 0, len(tree))
	for k := range tree {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t, ok := tree[k].(*dynamo.Tensor)
		if !ok || t.Rank() == 0 || t.Len() != len(times) {
			continue
		}
		re, im, complexValued := rows(t)
		data.Series[k] = re
		if complexValued {
			data.Imag[k] = im
		}
	}
	if len(data.Series) == 0 {
		return fmt.Errorf("run %s: no time series with %d points", meta.ID, len(times))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func rows(t *dynamo.Tensor) (re, im [][]float64, complexValued bool) {
	re = make([][]float64, t.Len())
	im = make([][]float64, t.Len())
	for i := range re {
		row := t.RowView(i)
		re[i] = make([]float64, len(row))
		im[i] = make([]float64, len(row))
		for j, v := range row {
			re[i][j], im[i][j] = real(v), imag(v)
			if imag(v) != 0 {
				complexValued = true
			}
		}
	}
	return re, im, complexValued
}
