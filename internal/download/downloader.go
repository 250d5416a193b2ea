package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/digkill/artbox/pkg/logger"
)

// DefaultPath is where downloads land when nothing else is configured. Each
// download overwrites the previous one.
const DefaultPath = "downloaded_image.jpg"

// MaxImageBytes caps a single download unless Config.MaxBytes says otherwise.
const MaxImageBytes int64 = 32 << 20

// Mirror receives a copy of every downloaded image and returns its public URL.
type Mirror interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

type Config struct {
	Path        string
	UniqueNames bool
	Timeout     time.Duration
	MaxBytes    int64
}

type Result struct {
	Path        string
	ContentType string
	Bytes       []byte
	MirrorURL   string
}

type Downloader struct {
	cfg        Config
	httpClient *http.Client
	mirror     Mirror
	log        *slog.Logger
}

func New(cfg Config, mirror Mirror, log *slog.Logger) *Downloader {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = MaxImageBytes
	}
	return &Downloader{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		mirror:     mirror,
		log:        log,
	}
}

// Save fetches rawURL and writes it to disk. The body is fully read before
// the file is touched and the write goes through a rename, so a failed
// download leaves any previous file intact.
func (d *Downloader) Save(ctx context.Context, rawURL string) (*Result, error) {
	data, contentType, err := d.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	target := d.cfg.Path
	if d.cfg.UniqueNames {
		target = filepath.Join(filepath.Dir(d.cfg.Path), uuid.NewString()+Extension(contentType))
	}
	if err := writeFileAtomic(target, data); err != nil {
		return nil, err
	}

	res := &Result{
		Path:        target,
		ContentType: contentType,
		Bytes:       data,
	}
	if d.mirror != nil {
		publicURL, err := d.mirror.Upload(ctx, data, contentType)
		if err != nil {
			d.logger(ctx).Error("mirror upload failed", "err", err)
		} else {
			res.MirrorURL = publicURL
		}
	}
	return res, nil
}

func (d *Downloader) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("image status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, d.cfg.MaxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image body: %w", err)
	}
	if int64(len(body)) > d.cfg.MaxBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", d.cfg.MaxBytes)
	}
	if len(body) == 0 {
		return nil, "", fmt.Errorf("empty image body")
	}
	return body, DetectContentType(resp.Header.Get("Content-Type"), body), nil
}

func (d *Downloader) logger(ctx context.Context) *slog.Logger {
	return logger.FromContextOr(ctx, d.log)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
