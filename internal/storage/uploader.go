package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/samber/lo"

	"github.com/digkill/artbox/internal/config"
	"github.com/digkill/artbox/internal/download"
)

const defaultPrefix = "downloads"

type Config struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
	UsePathStyle  bool
	Prefix        string
}

// FromAppConfig extracts the object storage settings.
func FromAppConfig(cfg config.Config) Config {
	return Config{
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		Bucket:        cfg.S3Bucket,
		PublicBaseURL: cfg.S3PublicBaseURL,
		UsePathStyle:  cfg.S3UsePathStyle,
		Prefix:        cfg.S3Prefix,
	}
}

type putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader mirrors downloaded images into an S3-compatible bucket.
type Uploader struct {
	cfg    Config
	client putter
	now    func() time.Time
}

// NewUploader builds the S3 client for the mirror. Every connection setting
// except the endpoint is mandatory.
func NewUploader(cfg Config) (*Uploader, error) {
	required := []lo.Tuple2[string, string]{
		lo.T2("bucket", cfg.Bucket),
		lo.T2("region", cfg.Region),
		lo.T2("access key", cfg.AccessKey),
		lo.T2("secret key", cfg.SecretKey),
		lo.T2("public base url", cfg.PublicBaseURL),
	}
	missing := lo.FilterMap(required, func(field lo.Tuple2[string, string], _ int) (string, bool) {
		return field.A, strings.TrimSpace(field.B) == ""
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("s3 mirror: missing %s", strings.Join(missing, ", "))
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	client := s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: cfg.UsePathStyle,
		BaseEndpoint: lo.Ternary[*string](cfg.Endpoint != "", aws.String(cfg.Endpoint), nil),
	})
	return &Uploader{cfg: cfg, client: client, now: time.Now}, nil
}

// Upload mirrors one downloaded image. The object key is derived from the
// bytes, so mirroring the same image twice on one day reuses its object.
func (u *Uploader) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("mirror upload: empty image")
	}
	contentType = download.DetectContentType(contentType, data)
	key := u.objectKey(data, contentType)

	if _, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		ACL:           types.ObjectCannedACLPublicRead,
	}); err != nil {
		return "", fmt.Errorf("mirror upload %s: %w", key, err)
	}
	return u.cfg.PublicBaseURL + "/" + key, nil
}

// objectKey lays images out as <prefix>/<yyyy>/<mm>/<dd>/<digest><ext>.
func (u *Uploader) objectKey(data []byte, contentType string) string {
	sum := sha256.Sum256(data)
	day := u.now().UTC().Format("2006/01/02")
	return path.Join(u.cfg.Prefix, day, hex.EncodeToString(sum[:12])+download.Extension(contentType))
}
