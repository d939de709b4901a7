package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simon020286/go-manifest/models"
)

func testReport() *models.Report {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &models.Report{
		ID:      "run-1",
		Start:   start,
		End:     start.Add(time.Minute),
		Inputs:  []string{"a.csv"},
		Outputs: []string{"out.json"},
		Git:     models.GitFailure("no git repository found"),
	}
}

func TestParseDestination(t *testing.T) {
	tests := []struct {
		in     string
		scheme string
		path   string
	}{
		{"", SchemeStdout, ""},
		{"  -  ", SchemeStdout, ""},
		{"out/report.json", SchemeFile, "out/report.json"},
		{"/var/run/report.json", SchemeFile, "/var/run/report.json"},
		{`C:\runs\report.json`, SchemeFile, `C:\runs\report.json`},
		{"file:///tmp/report.json", SchemeFile, "/tmp/report.json"},
		{"file://runs/report.json", SchemeFile, "runs/report.json"},
		{"s3://bucket/runs/", SchemeS3, "/runs/"},
		{"postgresql://db/audit", SchemePostgres, "/audit"},
		{"POSTGRES://db/audit", SchemePostgres, "/audit"},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			u := ParseDestination(tc.in)
			assert.Equal(t, tc.scheme, u.Scheme)
			assert.Equal(t, tc.path, u.Path)
		})
	}
}

func TestOpen_UnknownScheme(t *testing.T) {
	_, err := Open("ftp://example.com/report.json")

	var unknown *models.UnknownSinkError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "ftp", unknown.Scheme)
}

func TestListSchemes(t *testing.T) {
	assert.Equal(t, []string{SchemeFile, SchemePostgres, SchemeS3, SchemeStdout}, ListSchemes())
}

func TestOpen_StdoutAndFile(t *testing.T) {
	sink, err := Open("-")
	require.NoError(t, err)
	assert.IsType(t, &WriterSink{}, sink)

	sink, err = Open(filepath.Join(t.TempDir(), "r.json"))
	require.NoError(t, err)
	assert.IsType(t, &FileSink{}, sink)
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)

	require.NoError(t, sink.Write(context.Background(), testReport()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{\n"), "stdout carries only the JSON document")
	assert.Contains(t, out, "\n    \"id\": \"run-1\"")
	assert.Equal(t, byte('\n'), out[len(out)-1])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, map[string]any{"error": "no git repository found"}, decoded["git"])
}

func TestWriterSink_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	assert.ErrorIs(t, NewWriterSink(&buf).Write(ctx, testReport()), context.Canceled)
	assert.Zero(t, buf.Len())
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "report.json")
	sink := NewFileSink(path)

	require.NoError(t, sink.Write(context.Background(), testReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded models.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded.ID)
	assert.Equal(t, []string{"a.csv"}, decoded.Inputs)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")

	// overwriting keeps a single complete document
	report := testReport()
	report.Outputs = []string{"out.json", "second.json"}
	require.NoError(t, sink.Write(context.Background(), report))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []string{"out.json", "second.json"}, decoded.Outputs)
}

type fakeObjectStore struct {
	buckets map[string]bool
	objects map[string][]byte
	types   map[string]string
	made    []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		buckets: map[string]bool{},
		objects: map[string][]byte{},
		types:   map[string]string{},
	}
}

func (f *fakeObjectStore) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeObjectStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.buckets[bucket] = true
	f.made = append(f.made, bucket)
	return nil
}

func (f *fakeObjectStore) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	if int64(len(data)) != size {
		return minio.UploadInfo{}, errors.New("size mismatch")
	}
	f.objects[bucket+"/"+key] = data
	f.types[bucket+"/"+key] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func TestS3Sink(t *testing.T) {
	store := newFakeObjectStore()
	sink, err := NewS3Sink(store, "manifests", "/runs/", "eu-west-1")
	require.NoError(t, err)

	require.NoError(t, sink.Write(context.Background(), testReport()))
	require.NoError(t, sink.Write(context.Background(), testReport()))

	assert.Equal(t, []string{"manifests"}, store.made, "bucket is created once")
	require.Contains(t, store.objects, "manifests/runs/run-1.json")
	assert.Equal(t, "application/json", store.types["manifests/runs/run-1.json"])
}

func TestNewS3Sink_RequiresBucket(t *testing.T) {
	_, err := NewS3Sink(newFakeObjectStore(), "", "key.json", "")

	var missing *models.MissingConfigError
	assert.True(t, errors.As(err, &missing))
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "run-1.json", ObjectKey("", "run-1"))
	assert.Equal(t, "runs/run-1.json", ObjectKey("/runs/", "run-1"))
	assert.Equal(t, "runs/fixed.json", ObjectKey("/runs/fixed.json", "run-1"))
}

func TestS3Config(t *testing.T) {
	t.Setenv(EnvS3Endpoint, "minio:9000")
	t.Setenv(EnvS3AccessKey, "access")
	t.Setenv(EnvS3SecretKey, "secret")
	t.Setenv(EnvS3UseSSL, "false")

	target, err := url.Parse("s3://bucket/key.json?region=us-east-2&ssl=true")
	require.NoError(t, err)

	cfg, err := s3ConfigFor(target)
	require.NoError(t, err)
	assert.Equal(t, "minio:9000", cfg.Endpoint)
	assert.Equal(t, "us-east-2", cfg.Region)
	assert.True(t, cfg.UseSSL)
	assert.NoError(t, cfg.Validate())

	cfg.SecretKey = ""
	assert.Error(t, cfg.Validate())

	target, err = url.Parse("s3://bucket/key.json?ssl=sometimes")
	require.NoError(t, err)
	_, err = s3ConfigFor(target)
	assert.Error(t, err)
}

func TestOpen_S3RequiresCredentials(t *testing.T) {
	t.Setenv(EnvS3AccessKey, "")
	t.Setenv(EnvS3SecretKey, "")

	_, err := Open("s3://bucket/runs/")
	assert.Error(t, err)
}

type execCall struct {
	sql  string
	args []any
}

type fakeExecer struct {
	calls []execCall
	err   error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, f.err
}

func TestPostgresSink(t *testing.T) {
	conn := &fakeExecer{}
	sink, err := NewPostgresSinkWithConn(conn, "audit.runs")
	require.NoError(t, err)

	report := testReport()
	require.NoError(t, sink.Write(context.Background(), report))
	require.NoError(t, sink.Write(context.Background(), report))

	require.Len(t, conn.calls, 3, "table is created once")
	assert.Contains(t, conn.calls[0].sql, `CREATE TABLE IF NOT EXISTS "audit"."runs"`)
	assert.Contains(t, conn.calls[1].sql, `INSERT INTO "audit"."runs"`)
	assert.Equal(t, "run-1", conn.calls[1].args[0])
	assert.Equal(t, report.Start, conn.calls[1].args[1])
	assert.Equal(t, report.End, conn.calls[1].args[2])

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(conn.calls[1].args[3].(string)), &doc))
	assert.Equal(t, "run-1", doc["id"])

	assert.NoError(t, sink.Close())
}

func TestPostgresSink_LazyConnect(t *testing.T) {
	conn := &fakeExecer{}
	closed := false
	sink, err := NewPostgresSink("postgres://db/audit", "")
	require.NoError(t, err)
	sink.connect = func(_ context.Context, dsn string) (Execer, func(context.Context) error, error) {
		assert.Equal(t, "postgres://db/audit", dsn)
		return conn, func(context.Context) error { closed = true; return nil }, nil
	}

	require.NoError(t, sink.Write(context.Background(), testReport()))
	assert.Contains(t, conn.calls[0].sql, `"run_manifests"`)

	require.NoError(t, sink.Close())
	assert.True(t, closed)
}

func TestPostgresSink_Errors(t *testing.T) {
	conn := &fakeExecer{err: errors.New("boom")}
	sink, err := NewPostgresSinkWithConn(conn, "")
	require.NoError(t, err)

	assert.ErrorContains(t, sink.Write(context.Background(), testReport()), "boom")

	report := testReport()
	report.ID = ""
	var missing *models.MissingConfigError
	assert.True(t, errors.As(sink.Write(context.Background(), report), &missing))
}

func TestParseTable(t *testing.T) {
	ident, err := ParseTable("")
	require.NoError(t, err)
	assert.Equal(t, `"run_manifests"`, ident.Sanitize())

	for _, bad := range []string{"a.b.c", "runs; DROP TABLE x", "1runs", "a..b"} {
		_, err := ParseTable(bad)
		assert.Error(t, err, bad)
	}
}

func TestSplitTable(t *testing.T) {
	target, err := url.Parse("postgres://u:p@db:5432/audit?sslmode=disable&table=runs")
	require.NoError(t, err)

	dsn, table := splitTable(target)
	assert.Equal(t, "runs", table)
	assert.Equal(t, "postgres://u:p@db:5432/audit?sslmode=disable", dsn)
}
