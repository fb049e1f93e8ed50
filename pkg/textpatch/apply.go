package textpatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// workspace loads documents and replacement sources and persists the documents a run
// touched. Documents are cached so that several patches against one target compose.
type workspace interface {
	Ensure(path string) (*document, error)
	ReadSource(path string) (string, error)
	Commit() error
}

type document struct {
	path         string
	relativePath string
	content      string
	mode         fs.FileMode
	touched      bool
}

type preparedPatch struct {
	patch    Patch
	doc      *document
	pipeline *Pipeline
}

// apply loads every target and replacement source before any step runs, runs each patch
// in order, and commits only when every pipeline succeeded.
func apply(ctx context.Context, patches []Patch, ws workspace, opts Options, write bool) ([]Result, error) {
	if ws == nil {
		return nil, errors.New("nil workspace")
	}

	prepared := make([]preparedPatch, 0, len(patches))
	for _, p := range patches {
		if strings.TrimSpace(p.Target) == "" {
			return nil, &Error{Code: CodeIO, Message: fmt.Sprintf("patch %q has no target", p.Name)}
		}
		doc, err := ws.Ensure(p.Target)
		if err != nil {
			return nil, ioError(err, p.Target)
		}
		steps, err := resolveReplacements(p, ws)
		if err != nil {
			return nil, err
		}
		options := opts
		if p.Options != nil {
			options = *p.Options
		}
		pipeline, err := NewPipeline(steps, options)
		if err != nil {
			pe := asPatchError(err)
			pe.Path = doc.relativePath
			return nil, pe
		}
		prepared = append(prepared, preparedPatch{patch: p, doc: doc, pipeline: pipeline})
	}

	results := make([]Result, 0, len(prepared))
	for _, pp := range prepared {
		if ctx.Err() != nil {
			return nil, &Error{Code: CodeCanceled, Message: ctx.Err().Error(), Path: pp.doc.relativePath, Err: ctx.Err()}
		}
		before := pp.doc.content
		out, report, err := pp.pipeline.Run(ctx, before)
		if err != nil {
			pe := asPatchError(err)
			pe.Path = pp.doc.relativePath
			return nil, pe
		}
		if report.Changed {
			pp.doc.content = out
			pp.doc.touched = true
		}
		status := "="
		if report.Changed {
			status = "P"
			if write {
				status = "M"
			}
		}
		results = append(results, Result{
			Name:     pp.patch.Name,
			Path:     pp.doc.relativePath,
			Status:   status,
			Report:   report,
			Original: before,
			Updated:  out,
		})
	}

	if !write {
		return results, nil
	}
	if err := ws.Commit(); err != nil {
		return nil, ioError(err, "")
	}
	return results, nil
}

func resolveReplacements(p Patch, ws workspace) ([]Step, error) {
	steps := append([]Step(nil), p.Steps...)
	for index, source := range p.ReplacementFiles {
		if index < 0 || index >= len(steps) {
			return nil, &Error{
				Code:    CodeIO,
				Message: fmt.Sprintf("replacement file %s bound to missing step %d", source, index+1),
				Path:    p.Target,
			}
		}
		text, err := ws.ReadSource(source)
		if err != nil {
			return nil, ioError(err, source)
		}
		if p.TrimReplacementFiles[index] {
			text = strings.TrimSpace(text)
		}
		steps[index].Replacement = text
	}
	return steps, nil
}

func ioError(err error, path string) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		if pe.Code == "" {
			pe.Code = CodeIO
		}
		if pe.Path == "" {
			pe.Path = path
		}
		return pe
	}
	return &Error{Code: CodeIO, Message: err.Error(), Path: path, Err: err}
}
