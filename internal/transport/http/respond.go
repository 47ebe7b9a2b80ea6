package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"trivia-board-service/internal/domain"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    domain.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

type statusBody struct {
	Status string `json:"status"`
}

var okBody = statusBody{Status: "ok"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a domain error kind to its status code. Internal details are
// logged with the request id, not returned.
func writeError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	kind := domain.KindOf(err)
	message := err.Error()
	if kind == domain.KindInternal {
		log.WithError(err).WithField("request_id", RequestID(r.Context())).Error("request failed")
		message = "internal server error"
	}
	writeJSON(w, statusFor(kind), errorBody{Error: errorDetail{Kind: kind, Message: message}})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Validation("request body is required")
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return domain.Validation("%s must be a %s", typeErr.Field, typeErr.Type)
		}
		return domain.Validation("invalid JSON body: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validation("invalid %s %q", name, raw)
	}
	return id, nil
}
