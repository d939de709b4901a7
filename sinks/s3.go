package sinks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/simon020286/go-manifest/config"
	"github.com/simon020286/go-manifest/models"
)

const (
	EnvS3Endpoint  = "MANIFEST_S3_ENDPOINT"
	EnvS3AccessKey = "MANIFEST_S3_ACCESS_KEY"
	EnvS3SecretKey = "MANIFEST_S3_SECRET_KEY"
	EnvS3Region    = "MANIFEST_S3_REGION"
	EnvS3UseSSL    = "MANIFEST_S3_USE_SSL"
)

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

func S3ConfigFromEnv() (S3Config, error) {
	useSSL, err := config.Bool(EnvS3UseSSL, true)
	if err != nil {
		return S3Config{}, err
	}

	cfg := S3Config{
		Endpoint:  config.String(EnvS3Endpoint, "s3.amazonaws.com"),
		AccessKey: config.String(EnvS3AccessKey, ""),
		SecretKey: config.String(EnvS3SecretKey, ""),
		Region:    config.String(EnvS3Region, ""),
		UseSSL:    useSSL,
	}
	return cfg, nil
}

func (c S3Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New(EnvS3Endpoint + " is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New(EnvS3AccessKey + " is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New(EnvS3SecretKey + " is required")
	}
	return nil
}

// ObjectStore is the subset of *minio.Client the S3 sink uses
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Sink uploads reports to an S3-compatible bucket
type S3Sink struct {
	store  ObjectStore
	bucket string
	key    string
	region string
}

func NewS3Sink(store ObjectStore, bucket, key, region string) (*S3Sink, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, models.ErrMissingConfig("bucket")
	}
	return &S3Sink{store: store, bucket: bucket, key: key, region: region}, nil
}

func (s *S3Sink) Write(ctx context.Context, report *models.Report) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket %s: %w", s.bucket, err)
	}

	data, err := models.Encode(report)
	if err != nil {
		return err
	}

	key := ObjectKey(s.key, report.ID)
	opts := minio.PutObjectOptions{ContentType: "application/json"}
	if _, err := s.store.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *S3Sink) Close() error {
	return nil
}

func (s *S3Sink) ensureBucket(ctx context.Context) error {
	exists, err := s.store.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.store.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
}

// ObjectKey names the object for a report. A key that is empty or ends in
// "/" is treated as a prefix and completed with "<run id>.json".
func ObjectKey(key, runID string) string {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		return path.Join(key, runID+".json")
	}
	return key
}

func newMinIOClient(cfg S3Config) (*minio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	}
	return minio.New(cfg.Endpoint, opts)
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// s3ConfigFor applies per-destination overrides (?endpoint=, ?region=, ?ssl=) to the env config
func s3ConfigFor(target *url.URL) (S3Config, error) {
	cfg, err := S3ConfigFromEnv()
	if err != nil {
		return S3Config{}, err
	}

	q := target.Query()
	if v := q.Get("endpoint"); v != "" {
		cfg.Endpoint = v
	}
	if v := q.Get("region"); v != "" {
		cfg.Region = v
	}
	if v := q.Get("ssl"); v != "" {
		useSSL, err := strconv.ParseBool(v)
		if err != nil {
			return S3Config{}, fmt.Errorf("parse ssl: %w", err)
		}
		cfg.UseSSL = useSSL
	}
	return cfg, nil
}

func init() {
	Register(SchemeS3, func(target *url.URL) (Sink, error) {
		cfg, err := s3ConfigFor(target)
		if err != nil {
			return nil, err
		}
		client, err := newMinIOClient(cfg)
		if err != nil {
			return nil, err
		}
		return NewS3Sink(client, target.Host, target.Path, cfg.Region)
	})
}
