package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/koumale-backend/api/responses"
	"github.com/angelmondragon/koumale-backend/api/validators"
	"github.com/angelmondragon/koumale-backend/internal/images"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
)

type registerImageRequest struct {
	URL string `json:"url" validate:"required"`
}

// ImageRegister stores a remote image and returns its proxied URL.
func ImageRegister(svc images.Service, publicURL string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body registerImageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		image, err := svc.Register(r.Context(), body.URL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{
			"localUrl": images.LocalURL(publicURL, image),
		})
	}
}

// ImageServe streams the upstream image, or the fallback pixel when the
// upstream cannot be reached.
func ImageServe(svc images.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file := chi.URLParam(r, "file")
		if dot := strings.LastIndexByte(file, '.'); dot > 0 {
			file = file[:dot]
		}

		content, err := svc.Open(r.Context(), file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer content.Body.Close()

		if content.ContentType != "" {
			w.Header().Set("Content-Type", content.ContentType)
		}
		if !content.Fallback {
			w.Header().Set("Cache-Control", images.CacheControl)
		}
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, content.Body); err != nil && logg != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "image.stream_interrupted")
		}
	}
}
