package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/logging"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

type errorBody struct {
	Error   domain.Kind `json:"error"`
	Message string      `json:"message"`
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindInvalidSignature:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUpstream:
		return http.StatusBadGateway
	case kindUnauthorized:
		return http.StatusUnauthorized
	case kindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeKind(w http.ResponseWriter, kind domain.Kind, msg string) {
	writeJSON(w, statusFor(kind), errorBody{Error: kind, Message: msg})
}

// writeError renders err as {"error": kind, "message": msg}. Internal errors
// are logged with their cause and rendered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, err error) {
	kind := domain.KindOf(err)
	l := logging.With(r.Context(), logger)
	if kind == domain.KindInternal || kind == domain.KindUpstream {
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		l.Debug().Err(err).Str("kind", string(kind)).Msg("request rejected")
	}
	msg := domain.Message(err)
	if kind == domain.KindInternal {
		msg = "internal error"
	}
	writeKind(w, kind, msg)
}

// decodeJSON reads a typed body, rejecting unknown fields, and runs the
// struct's validate tags.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", domain.ErrInvalidArgument)
		}
		return &domain.Error{Kind: domain.KindValidation, Msg: "malformed request body: " + err.Error()}
	}
	if dec.More() {
		return &domain.Error{Kind: domain.KindValidation, Msg: "request body must hold a single JSON object"}
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return &domain.Error{Kind: domain.KindValidation, Msg: err.Error()}
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return &domain.Error{Kind: domain.KindValidation, Msg: "invalid request: " + strings.Join(parts, "; ")}
}
