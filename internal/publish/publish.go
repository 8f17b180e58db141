// Package publish uploads batch reports to an S3-compatible object store.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/me/gosweep/pkg/model"
)

// Config describes the target bucket. An empty Endpoint disables publishing.
type Config struct {
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	Region       string `yaml:"region"`
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	UseSSL       bool   `yaml:"use_ssl"`
	CreateBucket bool   `yaml:"create_bucket"`
}

// Enabled reports whether a publish target is configured.
func (c Config) Enabled() bool {
	return c.Endpoint != ""
}

// Validate checks that an enabled Config is complete.
func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if strings.Contains(c.Endpoint, "://") {
		return model.NewSetupError("publish.endpoint", "must be host[:port] without a scheme, got %q", c.Endpoint)
	}
	if c.Bucket == "" {
		return model.NewSetupError("publish.bucket", "is required when publish.endpoint is set")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return model.NewSetupError("publish", "access_key and secret_key are required")
	}
	return nil
}

// ObjectKey returns the key of file name for batchID under prefix.
func ObjectKey(prefix, batchID, name string) string {
	return strings.TrimPrefix(path.Join(prefix, batchID, name), "/")
}

// Publisher uploads report files.
type Publisher struct {
	client *minio.Client
	cfg    Config
	logger *slog.Logger
}

// New creates a Publisher for cfg.
func New(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		return nil, model.NewSetupError("publish.endpoint", "is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &Publisher{
		client: client,
		cfg:    cfg,
		logger: logger.With("component", "publish"),
	}, nil
}

// Publish uploads the report at reportPath and returns its object key.
func (p *Publisher) Publish(ctx context.Context, batchID, reportPath string) (string, error) {
	if p.cfg.CreateBucket {
		if err := p.ensureBucket(ctx); err != nil {
			return "", fmt.Errorf("ensure bucket %s: %w", p.cfg.Bucket, err)
		}
	}

	key := ObjectKey(p.cfg.Prefix, batchID, filepath.Base(reportPath))
	info, err := p.client.FPutObject(ctx, p.cfg.Bucket, key, reportPath, minio.PutObjectOptions{
		ContentType: "text/csv",
		UserMetadata: map[string]string{
			"batch-id": batchID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", reportPath, err)
	}
	p.logger.Info("report published", "bucket", p.cfg.Bucket, "key", key, "size", info.Size)
	return key, nil
}

func (p *Publisher) ensureBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.cfg.Bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return p.client.MakeBucket(ctx, p.cfg.Bucket, minio.MakeBucketOptions{Region: p.cfg.Region})
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
