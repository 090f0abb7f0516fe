package storage

import (
	"archive/zip"
	"context"
	"io"
	"path"

	"github.com/medimg-lab/apiserver/types"
)

// WriteZip streams the given samples' files into w as a zip archive.
// Entries are named by the file's base name; the archive is produced on
// the fly, so nothing is buffered beyond one object at a time.
func WriteZip(ctx context.Context, w io.Writer, st *Storage, samples []types.Sample) error {
	zw := zip.NewWriter(w)

	for _, sample := range samples {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return err
		}

		reader, err := st.Get(ctx, sample.FilePath)
		if err != nil {
			_ = zw.Close()
			return err
		}

		entry, err := zw.Create(path.Base(sample.FilePath))
		if err != nil {
			_ = reader.Close()
			_ = zw.Close()
			return err
		}
		if _, err := io.Copy(entry, reader); err != nil {
			_ = reader.Close()
			_ = zw.Close()
			return err
		}
		_ = reader.Close()
	}

	return zw.Close()
}
