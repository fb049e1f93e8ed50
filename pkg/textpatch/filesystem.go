package textpatch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ApplyFilesystem applies patches to files on the OS filesystem. Every target and
// replacement file is read before any step runs; changed targets are written back
// atomically only after every patch succeeded.
func ApplyFilesystem(ctx context.Context, patches []Patch, opts FilesystemOptions) ([]Result, error) {
	ws, err := newFilesystemWorkspace(opts)
	if err != nil {
		return nil, err
	}
	return apply(ctx, patches, ws, opts.Options, !opts.DryRun)
}

type filesystemWorkspace struct {
	workingDir string
	docs       map[string]*document
	order      []string
}

func newFilesystemWorkspace(opts FilesystemOptions) (*filesystemWorkspace, error) {
	workingDir := strings.TrimSpace(opts.WorkingDir)
	if workingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		workingDir = wd
	}
	if abs, err := filepath.Abs(workingDir); err == nil {
		workingDir = abs
	}
	return &filesystemWorkspace{
		workingDir: workingDir,
		docs:       make(map[string]*document),
	}, nil
}

func (ws *filesystemWorkspace) Ensure(path string) (*document, error) {
	abs, rel, err := ws.resolvePath(path)
	if err != nil {
		return nil, err
	}
	if doc, ok := ws.docs[abs]; ok {
		return doc, nil
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cannot patch directory %s", rel)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	doc := &document{
		path:         abs,
		relativePath: rel,
		content:      string(content),
		mode:         info.Mode(),
	}
	ws.docs[abs] = doc
	ws.order = append(ws.order, abs)
	return doc, nil
}

func (ws *filesystemWorkspace) ReadSource(path string) (string, error) {
	abs, rel, err := ws.resolvePath(path)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return string(content), nil
}

// Commit writes touched documents in the order they were first loaded.
func (ws *filesystemWorkspace) Commit() error {
	for _, key := range ws.order {
		doc := ws.docs[key]
		if !doc.touched {
			continue
		}
		perm := doc.mode & (fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)
		if perm == 0 {
			perm = 0o644
		}
		if err := writeFileAtomic(doc.path, []byte(doc.content), perm); err != nil {
			return &Error{Code: CodeIO, Message: fmt.Sprintf("failed to write %s: %v", doc.relativePath, err), Path: doc.relativePath, Err: err}
		}
	}
	return nil
}

func (ws *filesystemWorkspace) resolvePath(relative string) (string, string, error) {
	rel := strings.TrimSpace(relative)
	if rel == "" {
		return "", "", fmt.Errorf("invalid patch path")
	}
	cleaned := filepath.Clean(rel)
	var abs string
	if filepath.IsAbs(cleaned) {
		abs = cleaned
	} else {
		abs = filepath.Clean(filepath.Join(ws.workingDir, cleaned))
	}
	return abs, cleaned, nil
}

// writeFileAtomic replaces dest with data through a temporary file in the same
// directory, so readers observe either the old or the new content.
func writeFileAtomic(dest string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".patchkit-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	syncDir(dir)
	return nil
}

// syncDir flushes directory metadata where the platform allows it.
func syncDir(dir string) {
	f, err := os.Open(dir)
	if err != nil {
		return
	}
	defer f.Close()
	_ = f.Sync()
}
