package minio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"logstream-srv/internal/archive"
	"logstream-srv/pkg/compress"
	pkgLog "logstream-srv/pkg/log"
	pkgMinio "logstream-srv/pkg/minio"
)

const (
	contentType     = "application/x-ndjson"
	contentEncoding = "zstd"
)

type archiver struct {
	l      pkgLog.Logger
	store  pkgMinio.MinIO
	bucket string
}

var _ archive.Archiver = &archiver{}

// New archives batches as zstd-compressed NDJSON objects in bucket.
func New(l pkgLog.Logger, store pkgMinio.MinIO, bucket string) archive.Archiver {
	return &archiver{l: l, store: store, bucket: bucket}
}

// ObjectKey is raw/<project>/<connection>/<yyyy>/<mm>/<dd>/<unix-nanos>.ndjson.zst.
func ObjectKey(projectID, connectionID string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("raw/%s/%s/%04d/%02d/%02d/%d.ndjson.zst",
		projectID, connectionID, at.Year(), int(at.Month()), at.Day(), at.UnixNano())
}

func (a *archiver) ArchiveBatch(ctx context.Context, input archive.BatchInput) error {
	if len(input.Events) == 0 {
		return nil
	}
	at := input.At
	if at.IsZero() {
		at = time.Now()
	}

	buf, err := compress.Buffer(func(w io.Writer) error {
		return writeNDJSON(w, input)
	})
	if err != nil {
		a.l.Errorf(ctx, "internal.archive.minio.ArchiveBatch.compress: %v", err)
		return fmt.Errorf("encode archive: %w", err)
	}

	key := ObjectKey(input.ProjectID, input.ConnectionID, at)
	_, err = a.store.PutObject(ctx, pkgMinio.PutRequest{
		Bucket:          a.bucket,
		Object:          key,
		Reader:          buf,
		Size:            int64(buf.Len()),
		ContentType:     contentType,
		ContentEncoding: contentEncoding,
		Metadata: map[string]string{
			"project-id":    input.ProjectID,
			"connection-id": input.ConnectionID,
			"events":        fmt.Sprint(len(input.Events)),
		},
	})
	if err != nil {
		a.l.Errorf(ctx, "internal.archive.minio.ArchiveBatch.PutObject: key=%s: %v", key, err)
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// writeNDJSON writes one line per event: the raw provider payload when
// present, the normalized event otherwise.
func writeNDJSON(w io.Writer, input archive.BatchInput) error {
	bw := bufio.NewWriter(w)
	for _, e := range input.Events {
		line := []byte(e.Raw)
		if len(line) == 0 || !json.Valid(line) {
			var err error
			if line, err = json.Marshal(e); err != nil {
				return err
			}
		}
		if _, err := bw.Write(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
