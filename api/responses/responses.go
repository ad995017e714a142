package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
	"github.com/angelmondragon/koumale-backend/pkg/pagination"
	"github.com/angelmondragon/koumale-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.Envelope{Success: true, Data: data})
}

// WriteMessage writes a success envelope carrying a human readable message.
func WriteMessage(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, types.Envelope{Success: true, Message: message, Data: data})
}

// WritePage writes a paginated list with count, total and the pagination block.
func WritePage[T any](w http.ResponseWriter, items []T, total int64, params pagination.Params) {
	if items == nil {
		items = []T{}
	}
	count := len(items)
	info := pagination.InfoFor(params, total)
	writeJSON(w, http.StatusOK, types.Envelope{
		Success: true,
		Data:    items,
		Count:   &count,
		Total:   &total,
		Pagination: &types.PageInfo{
			Page:       info.Page,
			Limit:      info.Limit,
			TotalPages: info.TotalPages,
		},
	})
}

// WriteList writes an unpaginated list with its count.
func WriteList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	count := len(items)
	writeJSON(w, http.StatusOK, types.Envelope{Success: true, Data: items, Count: &count})
}

// WriteJSON writes an arbitrary payload for endpoints with a bespoke shape.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, status, payload)
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	switch typed.Code() {
	case pkgerrors.CodeInternal, pkgerrors.CodeDependency:
	default:
		if m := typed.Message(); m != "" {
			msg = m
		}
	}

	payload := types.Envelope{
		Success: false,
		Message: msg,
		Code:    string(typed.Code()),
	}

	if meta.DetailsAllowed {
		if details := typed.Details(); details != nil {
			payload.Details = details
		}
	}

	if logg != nil && meta.HTTPStatus >= http.StatusInternalServerError {
		fields := pkgerrors.LogFields(err)
		ctx = logg.WithFields(ctx, fields)
		logg.Error(ctx, "request.error", err)
	} else if logg != nil {
		ctx = logg.WithField(ctx, "error_code", string(typed.Code()))
		logg.Info(ctx, "request.rejected: "+msg)
	}

	writeJSON(w, meta.HTTPStatus, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
