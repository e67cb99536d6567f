package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/qclab/internal/dynamo"
)

var (
	ErrInvalidKey     = errors.New("storage: invalid key")
	ErrCorruptPayload = errors.New("storage: corrupt payload")
)

// Leaf kinds as recorded next to every stored value.
const (
	kindGroup     = "group"
	kindFloat     = "float64"
	kindInt       = "int64"
	kindBool      = "bool"
	kindComplex   = "complex128"
	kindString    = "string"
	kindBytes     = "bytes"
	kindFloats    = "float64[]"
	kindInts      = "int64[]"
	kindComplexes = "complex128[]"
	kindTensor    = "tensor"
	pathSeparator = "/"
)

// node is one entry of a flattened tree. Groups carry no payload.
type node struct {
	path    string
	kind    string
	payload []byte
}

// flatten validates and encodes every group and leaf of tree in path order.
// Nothing is returned unless the whole tree is storable.
func flatten(tree map[string]any) ([]node, error) {
	var nodes []node
	if err := flattenInto(&nodes, "", tree); err != nil {
		return nil, err
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].path < nodes[j].path })
	return nodes, nil
}

func flattenInto(nodes *[]node, prefix string, tree map[string]any) error {
	for key, v := range tree {
		if key == "" || strings.Contains(key, pathSeparator) {
			return fmt.Errorf("%w: %q under %q", ErrInvalidKey, key, prefix)
		}
		path := key
		if prefix != "" {
			path = prefix + pathSeparator + key
		}
		if sub, ok := v.(map[string]any); ok {
			*nodes = append(*nodes, node{path: path, kind: kindGroup})
			if err := flattenInto(nodes, path, sub); err != nil {
				return err
			}
			continue
		}
		kind, payload, err := encodeLeaf(v)
		if err != nil {
			return fmt.Errorf("key %s: %w", path, err)
		}
		if payload == nil {
			payload = []byte{}
		}
		*nodes = append(*nodes, node{path: path, kind: kind, payload: payload})
	}
	return nil
}

// unflatten rebuilds the nested mapping. Parents are created on demand so
// the input order does not matter.
func unflatten(nodes []node) (map[string]any, error) {
	root := make(map[string]any)
	for _, n := range nodes {
		parts := strings.Split(n.path, pathSeparator)
		parent := root
		for _, part := range parts[:len(parts)-1] {
			next, ok := parent[part]
			if !ok {
				child := make(map[string]any)
				parent[part] = child
				parent = child
				continue
			}
			child, ok := next.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s is nested under a leaf", ErrCorruptPayload, n.path)
			}
			parent = child
		}
		name := parts[len(parts)-1]
		if n.kind == kindGroup {
			if _, ok := parent[name]; !ok {
				parent[name] = make(map[string]any)
			}
			continue
		}
		v, err := decodeLeaf(n.kind, n.payload)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", n.path, err)
		}
		parent[name] = v
	}
	return root, nil
}

// normalizeList turns a uniformly typed []any into the matching typed slice.
func normalizeList(list []any) (any, error) {
	if len(list) == 0 {
		return []float64{}, nil
	}
	switch list[0].(type) {
	case float64:
		out := make([]float64, len(list))
		for i, e := range list {
			f, ok := e.(float64)
			if !ok {
				return nil, mixedList(i, list[0], e)
			}
			out[i] = f
		}
		return out, nil
	case int, int64:
		out := make([]int64, len(list))
		for i, e := range list {
			switch n := e.(type) {
			case int:
				out[i] = int64(n)
			case int64:
				out[i] = n
			default:
				return nil, mixedList(i, list[0], e)
			}
		}
		return out, nil
	case complex128:
		out := make([]complex128, len(list))
		for i, e := range list {
			c, ok := e.(complex128)
			if !ok {
				return nil, mixedList(i, list[0], e)
			}
			out[i] = c
		}
		return out, nil
	}
	return nil, fmt.Errorf("list of %T: %w", list[0], dynamo.ErrUnsupportedValueType)
}

func mixedList(i int, first, got any) error {
	return fmt.Errorf("list element %d is %T, list holds %T: %w", i, got, first, dynamo.ErrUnsupportedValueType)
}

func encodeLeaf(v any) (string, []byte, error) {
	var buf bytes.Buffer
	w := func(x any) { _ = binary.Write(&buf, binary.LittleEndian, x) }

	switch x := v.(type) {
	case float64:
		w(x)
		return kindFloat, buf.Bytes(), nil
	case int:
		w(int64(x))
		return kindInt, buf.Bytes(), nil
	case int64:
		w(x)
		return kindInt, buf.Bytes(), nil
	case bool:
		w(x)
		return kindBool, buf.Bytes(), nil
	case complex128:
		w(x)
		return kindComplex, buf.Bytes(), nil
	case string:
		return kindString, []byte(x), nil
	case []byte:
		return kindBytes, append([]byte{}, x...), nil
	case []float64:
		w(x)
		return kindFloats, buf.Bytes(), nil
	case []int64:
		w(x)
		return kindInts, buf.Bytes(), nil
	case []complex128:
		w(x)
		return kindComplexes, buf.Bytes(), nil
	case []any:
		typed, err := normalizeList(x)
		if err != nil {
			return "", nil, err
		}
		return encodeLeaf(typed)
	case *dynamo.Tensor:
		if x == nil {
			break
		}
		shape := x.Shape()
		w(uint32(len(shape)))
		for _, d := range shape {
			w(int64(d))
		}
		w(x.Data())
		return kindTensor, buf.Bytes(), nil
	}
	return "", nil, fmt.Errorf("type %T: %w", v, dynamo.ErrUnsupportedValueType)
}

func decodeLeaf(kind string, payload []byte) (any, error) {
	r := bytes.NewReader(payload)
	read := func(x any) error {
		if err := binary.Read(r, binary.LittleEndian, x); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorruptPayload, kind, err)
		}
		return nil
	}
	count := func(elem int) (int, error) {
		if len(payload)%elem != 0 {
			return 0, fmt.Errorf("%w: %s payload of %d bytes", ErrCorruptPayload, kind, len(payload))
		}
		return len(payload) / elem, nil
	}

	switch kind {
	case kindFloat:
		var f float64
		if err := read(&f); err != nil {
			return nil, err
		}
		return f, nil
	case kindInt:
		var n int64
		if err := read(&n); err != nil {
			return nil, err
		}
		return n, nil
	case kindBool:
		var b bool
		if err := read(&b); err != nil {
			return nil, err
		}
		return b, nil
	case kindComplex:
		var c complex128
		if err := read(&c); err != nil {
			return nil, err
		}
		return c, nil
	case kindString:
		return string(payload), nil
	case kindBytes:
		return append([]byte{}, payload...), nil
	case kindFloats:
		n, err := count(8)
		if err != nil {
			return nil, err
		}
		out := make([]float64, n)
		if err := read(out); err != nil {
			return nil, err
		}
		return out, nil
	case kindInts:
		n, err := count(8)
		if err != nil {
			return nil, err
		}
		out := make([]int64, n)
		if err := read(out); err != nil {
			return nil, err
		}
		return out, nil
	case kindComplexes:
		n, err := count(16)
		if err != nil {
			return nil, err
		}
		out := make([]complex128, n)
		if err := read(out); err != nil {
			return nil, err
		}
		return out, nil
	case kindTensor:
		var rank uint32
		if err := read(&rank); err != nil {
			return nil, err
		}
		if int(rank)*8 > r.Len() {
			return nil, fmt.Errorf("%w: tensor rank %d", ErrCorruptPayload, rank)
		}
		shape := make([]int, rank)
		size := 1
		for i := range shape {
			var d int64
			if err := read(&d); err != nil {
				return nil, err
			}
			if d < 0 {
				return nil, fmt.Errorf("%w: tensor dimension %d", ErrCorruptPayload, d)
			}
			shape[i] = int(d)
			size *= int(d)
		}
		if size*16 != r.Len() {
			return nil, fmt.Errorf("%w: tensor %v with %d data bytes", ErrCorruptPayload, shape, r.Len())
		}
		data := make([]complex128, size)
		if err := read(data); err != nil {
			return nil, err
		}
		return dynamo.FromSlice(data, shape...)
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrCorruptPayload, kind)
}
