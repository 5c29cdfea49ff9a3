package local

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"compliance-backend/internal/shared/storage/object"
)

// RoutePrefix is where the API serves signed PUTs for the local backend.
const RoutePrefix = "/api/v1/uploads/local/"

var (
	ErrSignatureInvalid = errors.New("upload signature invalid")
	ErrGrantExpired     = errors.New("upload grant expired")
)

// Store implements object.Bucket on the local filesystem. Uploads go through
// HMAC-signed URLs served by this API, mimicking presigned S3 PUTs.
type Store struct {
	baseDir string
	baseURL string
	secret  []byte
	now     func() time.Time
}

// New creates a local store rooted at baseDir whose grants point at publicBaseURL.
func New(baseDir, publicBaseURL, secret string) *Store {
	return &Store{
		baseDir: baseDir,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		secret:  []byte(secret),
		now:     time.Now,
	}
}

// PresignPut returns a signed URL accepting one PUT until ttl elapses.
func (s *Store) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (object.PresignedPut, error) {
	if err := ctx.Err(); err != nil {
		return object.PresignedPut{}, err
	}
	clean, err := cleanKey(key)
	if err != nil {
		return object.PresignedPut{}, err
	}
	expiresAt := s.now().Add(ttl).UTC().Truncate(time.Second)
	expires := strconv.FormatInt(expiresAt.Unix(), 10)

	q := url.Values{}
	q.Set("expires", expires)
	q.Set("sig", s.sign(clean, expires))
	return object.PresignedPut{
		URL:       s.baseURL + RoutePrefix + escapePath(clean) + "?" + q.Encode(),
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks a signed PUT. Expired grants fail before any bytes are read.
func (s *Store) Verify(key, expires, sig string) error {
	clean, err := cleanKey(key)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(sig), []byte(s.sign(clean, expires))) {
		return ErrSignatureInvalid
	}
	unix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}
	if s.now().After(time.Unix(unix, 0)) {
		return ErrGrantExpired
	}
	return nil
}

// Put writes the body at key, replacing any previous object only once the
// whole body has been received.
func (s *Store) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	clean, err := cleanKey(key)
	if err != nil {
		return 0, err
	}
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := f.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		return 0, fmt.Errorf("write body: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return 0, fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		return 0, fmt.Errorf("rename: %w", err)
	}
	committed = true
	return written, nil
}

// Stat reports size and sniffed content type of a stored object.
func (s *Store) Stat(ctx context.Context, key string) (object.Info, error) {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return object.Info{}, err
	}
	defer rc.Close()

	f := rc.(*os.File)
	fi, err := f.Stat()
	if err != nil {
		return object.Info{}, fmt.Errorf("stat: %w", err)
	}
	var sniff [512]byte
	n, _ := io.ReadFull(f, sniff[:])
	return object.Info{
		Key:         key,
		Size:        fi.Size(),
		ContentType: http.DetectContentType(sniff[:n]),
	}, nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.baseDir, filepath.FromSlash(clean)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, object.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *Store) sign(key, expires string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(key + "\n" + expires))
	return hex.EncodeToString(mac.Sum(nil))
}

func cleanKey(key string) (string, error) {
	clean := filepath.ToSlash(filepath.Clean(strings.TrimLeft(key, "/")))
	if clean == "." || clean == "" || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", object.ErrInvalidKey
	}
	return clean, nil
}

func escapePath(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

var _ object.Bucket = (*Store)(nil)
