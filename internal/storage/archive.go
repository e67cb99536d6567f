package storage

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"strings"
)

// writeArchive stores one zip entry per fully-qualified key. Groups become
// directory entries and each leaf records its kind in the entry comment.
func writeArchive(path string, nodes []node) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(f)
	for _, n := range nodes {
		hdr := &zip.FileHeader{Name: n.path, Method: zip.Deflate}
		if n.kind == kindGroup {
			hdr.Name += "/"
			hdr.Method = zip.Store
		} else {
			hdr.Comment = n.kind
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("write %s: %w", n.path, err)
		}
		if n.kind == kindGroup {
			continue
		}
		if _, err := w.Write(n.payload); err != nil {
			return fmt.Errorf("write %s: %w", n.path, err)
		}
	}
	return zw.Close()
}

func readArchive(path string) ([]node, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	nodes := make([]node, 0, len(zr.File))
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			nodes = append(nodes, node{path: strings.TrimSuffix(f.Name, "/"), kind: kindGroup})
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		payload, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		nodes = append(nodes, node{path: f.Name, kind: f.Comment, payload: payload})
	}
	return nodes, nil
}
