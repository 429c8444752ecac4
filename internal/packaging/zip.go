package packaging

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/matthewbaird/uibuilder/internal/codegen"
)

// zipEpoch is the modification time stamped on every entry so identical file
// maps produce identical archives.
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// ZipArchiver writes a zip archive. Root, when set, nests every file under
// that folder inside the archive.
type ZipArchiver struct {
	Root string
}

func (z ZipArchiver) Archive(ctx context.Context, files codegen.FileMap) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range files.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := p
		if z.Root != "" {
			name = path.Join(z.Root, p)
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: zipEpoch,
		})
		if err != nil {
			return nil, fmt.Errorf("adding %s: %w", name, err)
		}
		if _, err := w.Write([]byte(files[p])); err != nil {
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}
	return buf.Bytes(), nil
}
