package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"bookmarket/internal/access"
	"bookmarket/internal/apperr"
	"bookmarket/internal/ids"
	"bookmarket/internal/media/sniffer"
	"bookmarket/internal/security"
	"bookmarket/internal/storage"
)

// ImageHost stores uploaded images and serves them from public URLs.
type ImageHost interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
	KeyFor(rawURL string) (string, bool)
}

type UploadOptions struct {
	MaxBytes     int64
	MaxBatchSize int
	Secret       string
}

// UploadedImage is what a client keeps to reference and later delete an image.
type UploadedImage struct {
	URL        string
	DeleteHash string
}

type UploadService struct {
	host ImageHost
	opts UploadOptions
	log  zerolog.Logger
	now  func() time.Time
}

func NewUploadService(host ImageHost, opts UploadOptions, log zerolog.Logger) *UploadService {
	return &UploadService{
		host: host,
		opts: opts,
		log:  log,
		now:  time.Now,
	}
}

func (s *UploadService) Upload(ctx context.Context, caller access.Caller, file *multipart.FileHeader) (UploadedImage, error) {
	if caller.Anonymous() {
		return UploadedImage{}, apperr.Authentication("authentication required")
	}
	if err := s.checkSize(file); err != nil {
		return UploadedImage{}, err
	}
	return s.store(ctx, caller, file)
}

// UploadBatch stores all files or fails. Objects already stored when another
// file fails are not removed.
func (s *UploadService) UploadBatch(ctx context.Context, caller access.Caller, files []*multipart.FileHeader) ([]UploadedImage, error) {
	if caller.Anonymous() {
		return nil, apperr.Authentication("authentication required")
	}
	if len(files) == 0 {
		return nil, apperr.Validation("no images provided")
	}
	if s.opts.MaxBatchSize > 0 && len(files) > s.opts.MaxBatchSize {
		return nil, apperr.Validation("at most %d images per batch", s.opts.MaxBatchSize)
	}
	for _, file := range files {
		if err := s.checkSize(file); err != nil {
			return nil, err
		}
	}

	results := make([]UploadedImage, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			uploaded, err := s.store(gctx, caller, file)
			if err != nil {
				return err
			}
			results[i] = uploaded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Delete removes an image uploaded earlier, given the hash returned with it.
func (s *UploadService) Delete(ctx context.Context, caller access.Caller, url, deleteHash string) error {
	if caller.Anonymous() {
		return apperr.Authentication("authentication required")
	}
	key, ok := s.host.KeyFor(url)
	if !ok {
		return apperr.Validation("url does not reference an uploaded image")
	}
	if deleteHash == "" || !security.VerifyResource(s.opts.Secret, deleteHash, key) {
		return apperr.Authorization("invalid delete hash")
	}
	if err := s.host.Remove(ctx, key); err != nil {
		return apperr.Upstream(err, "image deletion failed")
	}
	s.log.Info().Str("user_id", caller.UserID).Str("key", key).Msg("image deleted")
	return nil
}

func (s *UploadService) checkSize(file *multipart.FileHeader) error {
	if file == nil {
		return apperr.Validation("image is required")
	}
	if file.Size > s.opts.MaxBytes {
		return apperr.Validation("file too large")
	}
	if file.Size == 0 {
		return apperr.Validation("file is empty")
	}
	return nil
}

func (s *UploadService) store(ctx context.Context, caller access.Caller, file *multipart.FileHeader) (UploadedImage, error) {
	declared := sniffer.MimeTypeFromHTTP(http.Header(file.Header))
	if declared != "" && !sniffer.Allowed(declared) {
		return UploadedImage{}, apperr.Validation("unsupported file type %s", declared)
	}

	f, err := file.Open()
	if err != nil {
		return UploadedImage{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	// Never trust the declared size when reading.
	data, err := io.ReadAll(io.LimitReader(f, s.opts.MaxBytes+1))
	if err != nil {
		return UploadedImage{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.opts.MaxBytes {
		return UploadedImage{}, apperr.Validation("file too large")
	}

	detected, err := sniffer.DetectHead(data)
	if err != nil {
		if errors.Is(err, sniffer.ErrUnknownType) {
			return UploadedImage{}, apperr.Validation("unsupported file type")
		}
		return UploadedImage{}, fmt.Errorf("detect type: %w", err)
	}
	if declared != "" && declared != detected.MIME {
		return UploadedImage{}, apperr.Validation("content type mismatch: declared %s, actual %s", declared, detected.MIME)
	}

	key := s.objectKey(caller.UserID, detected.Extension())
	url, err := s.host.Put(ctx, key, bytes.NewReader(data), int64(len(data)), detected.MIME)
	if err != nil {
		return UploadedImage{}, apperr.Upstream(err, "image upload failed")
	}

	s.log.Info().
		Str("user_id", caller.UserID).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("image uploaded")

	return UploadedImage{
		URL:        url,
		DeleteHash: security.SignResource(s.opts.Secret, key),
	}, nil
}

// objectKey places uploads under the uploader's prefix so listing cleanup can
// tell whose object a URL points at.
func (s *UploadService) objectKey(ownerID, ext string) string {
	return storage.OwnerPrefix(ownerID) + path.Join(s.now().UTC().Format("2006/01/02"), ids.New()+"."+ext)
}
