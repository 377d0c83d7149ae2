package minio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"logstream-srv/internal/archive"
	"logstream-srv/internal/model"
	"logstream-srv/pkg/compress"
	pkgLog "logstream-srv/pkg/log"
	pkgMinio "logstream-srv/pkg/minio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	pkgMinio.MinIO
	puts []pkgMinio.PutRequest
	body [][]byte
	err  error
}

func (s *fakeStore) PutObject(_ context.Context, req pkgMinio.PutRequest) (*pkgMinio.ObjectInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	b, err := io.ReadAll(req.Reader)
	if err != nil {
		return nil, err
	}
	s.puts = append(s.puts, req)
	s.body = append(s.body, b)
	return &pkgMinio.ObjectInfo{Bucket: req.Bucket, Object: req.Object, Size: req.Size}, nil
}

func TestObjectKey(t *testing.T) {
	at := time.Date(2024, 3, 7, 23, 59, 0, 5, time.FixedZone("x", 2*3600))
	assert.Equal(t, "raw/p1/c1/2024/03/07/1709848740000000005.ndjson.zst", ObjectKey("p1", "c1", at))
}

func TestArchiveBatch(t *testing.T) {
	store := &fakeStore{}
	a := New(pkgLog.NewNop(), store, "archive")

	events := []model.LogEvent{
		{ID: "1", Message: "from raw", Raw: json.RawMessage(`{"msg":"from raw"}`)},
		{ID: "2", Message: "no raw", Level: model.LevelWarn},
	}
	at := time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)
	require.NoError(t, a.ArchiveBatch(context.Background(), archive.BatchInput{
		ProjectID: "p1", ConnectionID: "c1", Events: events, At: at,
	}))

	require.Len(t, store.puts, 1)
	put := store.puts[0]
	assert.Equal(t, "archive", put.Bucket)
	assert.Equal(t, ObjectKey("p1", "c1", at), put.Object)
	assert.Equal(t, "zstd", put.ContentEncoding)
	assert.Equal(t, int64(len(store.body[0])), put.Size)

	plain, err := compress.Decode(store.body[0])
	require.NoError(t, err)

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(plain))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"msg":"from raw"}`, lines[0])

	var ev model.LogEvent
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &ev))
	assert.Equal(t, "no raw", ev.Message)
}

func TestArchiveBatchEmptyAndErrors(t *testing.T) {
	store := &fakeStore{err: errors.New("s3 down")}
	a := New(pkgLog.NewNop(), store, "archive")

	assert.NoError(t, a.ArchiveBatch(context.Background(), archive.BatchInput{}))
	err := a.ArchiveBatch(context.Background(), archive.BatchInput{
		ProjectID: "p", ConnectionID: "c", Events: []model.LogEvent{{ID: "1"}},
	})
	assert.Error(t, err)
}
