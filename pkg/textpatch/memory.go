package textpatch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// ApplyToMemory applies patches to an in-memory document store represented by a map.
// Replacement files are looked up in the same map. The provided map is copied before
// mutation and the updated snapshot is returned.
func ApplyToMemory(ctx context.Context, patches []Patch, files map[string]string, opts Options) (map[string]string, []Result, error) {
	snapshot := make(map[string]string, len(files))
	for k, v := range files {
		snapshot[k] = v
	}
	ws := newMemoryWorkspace(snapshot)
	results, err := apply(ctx, patches, ws, opts, true)
	if err != nil {
		return nil, nil, err
	}
	return ws.files, results, nil
}

type memoryWorkspace struct {
	files map[string]string
	docs  map[string]*document
}

func newMemoryWorkspace(files map[string]string) *memoryWorkspace {
	return &memoryWorkspace{
		files: files,
		docs:  make(map[string]*document),
	}
}

func cleanKey(path string) (string, error) {
	rel := filepath.Clean(strings.TrimSpace(path))
	if rel == "" || rel == "." {
		return "", fmt.Errorf("invalid patch path")
	}
	return rel, nil
}

func (ws *memoryWorkspace) Ensure(path string) (*document, error) {
	rel, err := cleanKey(path)
	if err != nil {
		return nil, err
	}
	if doc, ok := ws.docs[rel]; ok {
		return doc, nil
	}
	content, ok := ws.files[rel]
	if !ok {
		return nil, fmt.Errorf("failed to read %s: file does not exist", rel)
	}
	doc := &document{
		path:         rel,
		relativePath: rel,
		content:      content,
	}
	ws.docs[rel] = doc
	return doc, nil
}

func (ws *memoryWorkspace) ReadSource(path string) (string, error) {
	rel, err := cleanKey(path)
	if err != nil {
		return "", err
	}
	content, ok := ws.files[rel]
	if !ok {
		return "", fmt.Errorf("failed to read %s: file does not exist", rel)
	}
	return content, nil
}

func (ws *memoryWorkspace) Commit() error {
	for key, doc := range ws.docs {
		if !doc.touched {
			continue
		}
		ws.files[key] = doc.content
	}
	return nil
}
