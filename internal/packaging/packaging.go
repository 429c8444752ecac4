// Package packaging turns a generated file map into one downloadable
// resource: a zip archive when an archiver is available, otherwise a flat
// text transcript the user can reconstruct by hand.
package packaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/viant/afs"
	"github.com/viant/afs/url"

	"github.com/matthewbaird/uibuilder/internal/codegen"
)

// ErrUnavailable reports that archiving cannot be done in this environment.
// Package recovers from it by producing a transcript.
var ErrUnavailable = errors.New("packaging: archiver unavailable")

// Kind says which packaging path produced a Result.
type Kind string

const (
	KindArchive    Kind = "archive"
	KindTranscript Kind = "transcript"
)

// Archiver builds an archive of files in memory.
type Archiver interface {
	Archive(ctx context.Context, files codegen.FileMap) ([]byte, error)
}

// Result is a packaged file map ready to download.
type Result struct {
	Kind        Kind   `json:"kind"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// Package archives files with archiver. A nil archiver, an archiver failing
// with ErrUnavailable, or one that runs past the context deadline falls back
// to a transcript; callers must check Kind to tell the user which one they
// got. Any other archiver error is returned.
func Package(ctx context.Context, name string, files codegen.FileMap, archiver Archiver) (Result, error) {
	if name == "" {
		name = "generated-app"
	}

	if archiver != nil {
		data, err := archiver.Archive(ctx, files)
		switch {
		case err == nil:
			return Result{Kind: KindArchive, Filename: name + ".zip", ContentType: "application/zip", Data: data}, nil
		case errors.Is(err, ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
			log.Printf("packaging: archive unavailable, falling back to transcript: %v", err)
		default:
			return Result{}, fmt.Errorf("archiving %s: %w", name, err)
		}
	}

	return Result{
		Kind:        KindTranscript,
		Filename:    name + ".txt",
		ContentType: "text/plain; charset=utf-8",
		Data:        []byte(Transcript(name, files)),
	}, nil
}

// Export writes every file beneath baseURL, which may be any afs URL
// (file://, mem://, and so on). Files are written in sorted path order.
func Export(ctx context.Context, fs afs.Service, baseURL string, files codegen.FileMap) error {
	for _, p := range files.Paths() {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := url.Join(baseURL, p)
		if err := fs.Upload(ctx, target, 0644, bytes.NewReader([]byte(files[p]))); err != nil {
			return fmt.Errorf("writing %s: %w", target, err)
		}
	}
	return nil
}
