// Package images proxies remote images behind stable local URLs.
package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/koumale-backend/pkg/db"
	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
)

// CacheControl is sent with every proxied upstream body.
const CacheControl = "public, max-age=31536000, immutable"

const fallbackContentType = "image/png"

// FallbackPNG is a 1x1 transparent image served when the upstream fails.
var FallbackPNG = mustDecode("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

func mustDecode(s string) []byte {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

type imagesRepository interface {
	Create(ctx context.Context, image *models.Image) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Image, error)
}

type upstream interface {
	Head(ctx context.Context, url string) (*http.Response, error)
	Get(ctx context.Context, url string) (*http.Response, error)
	RecordFallback()
}

// Content is an image body ready to stream. Fallback marks the placeholder.
type Content struct {
	ContentType string
	Body        io.ReadCloser
	Fallback    bool
}

// Service registers and serves proxied images.
type Service interface {
	Register(ctx context.Context, rawURL string) (*models.Image, error)
	Open(ctx context.Context, id string) (*Content, error)
}

type service struct {
	repo     imagesRepository
	upstream upstream
	maxBytes int64
	logg     *logger.Logger
}

// NewService wires the image proxy.
func NewService(repo imagesRepository, upstream upstream, maxBytes int64, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("images repository required")
	}
	if upstream == nil {
		return nil, fmt.Errorf("upstream client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max bytes must be positive")
	}
	return &service{repo: repo, upstream: upstream, maxBytes: maxBytes, logg: logg}, nil
}

// Register probes rawURL with HEAD, then GET when HEAD is refused, and stores
// it with the extension derived from its content type.
func (s *service) Register(ctx context.Context, rawURL string) (*models.Image, error) {
	remote, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithField(ctx, "remote_url", remote)

	ext, reachable := s.probe(ctx, remote)
	if !reachable {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "unable to fetch remote image")
	}

	image := &models.Image{RemoteURL: remote, Ext: ext}
	if err := s.repo.Create(ctx, image); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store image")
	}
	return image, nil
}

func (s *service) probe(ctx context.Context, remote string) (string, bool) {
	resp, err := s.upstream.Head(ctx, remote)
	if err == nil && isOK(resp) {
		resp.Body.Close()
		if ext, ok := extForContentType(resp.Header.Get("Content-Type")); ok {
			return ext, true
		}
		ext, _ := s.sniff(ctx, remote)
		return ext, true
	}
	if err == nil {
		resp.Body.Close()
	}
	return s.sniff(ctx, remote)
}

// sniff issues a GET and derives the extension from its header or, failing
// that, from the leading bytes. Unknown types default to jpg.
func (s *service) sniff(ctx context.Context, remote string) (string, bool) {
	resp, err := s.upstream.Get(ctx, remote)
	if err != nil {
		s.logg.Warn(ctx, "image.probe_failed")
		return defaultExt, false
	}
	defer resp.Body.Close()
	if !isOK(resp) {
		return defaultExt, false
	}
	if ext, ok := extForContentType(resp.Header.Get("Content-Type")); ok {
		return ext, true
	}
	if ext, ok := sniffExt(io.LimitReader(resp.Body, s.maxBytes)); ok {
		return ext, true
	}
	return defaultExt, true
}

// Open streams the upstream body of image id. Upstream failures yield the
// fallback image rather than an error.
func (s *service) Open(ctx context.Context, id string) (*Content, error) {
	imageID, err := uuid.Parse(id)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
	}
	image, err := s.repo.FindByID(ctx, imageID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load image")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"image_id": image.ID.String(), "remote_url": image.RemoteURL})
	resp, err := s.upstream.Get(ctx, image.RemoteURL)
	if err != nil || !isOK(resp) {
		if err == nil {
			resp.Body.Close()
			err = fmt.Errorf("upstream status %d", resp.StatusCode)
		}
		s.logg.Error(ctx, "image.upstream_failed", err)
		s.upstream.RecordFallback()
		return fallback(), nil
	}

	return &Content{
		ContentType: resp.Header.Get("Content-Type"),
		Body:        limitedBody{Reader: io.LimitReader(resp.Body, s.maxBytes), Closer: resp.Body},
	}, nil
}

func fallback() *Content {
	return &Content{
		ContentType: fallbackContentType,
		Body:        io.NopCloser(bytes.NewReader(FallbackPNG)),
		Fallback:    true,
	}
}

type limitedBody struct {
	io.Reader
	io.Closer
}

func isOK(resp *http.Response) bool {
	return resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "missing url")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "url must be an absolute http(s) url").
			WithDetails(map[string]string{"url": raw})
	}
	return parsed.String(), nil
}

// LocalURL is the proxied address of image under base.
func LocalURL(base string, image *models.Image) string {
	return fmt.Sprintf("%s/api/image/%s.%s", strings.TrimRight(base, "/"), image.ID, image.Ext)
}
