package http

import (
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/globe/coverage"
	"github.com/aukilabs/globe/geocodec"
	"github.com/aukilabs/globe/models"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeBadRequest = "bad_request"
	ErrTypeDisabled   = "feature_disabled"
)

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		writeError(w, errors.New("encoding response failed").Wrap(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(b)
}

func writeBody(w http.ResponseWriter, contentType string, b []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// writeError writes err with the status code matching its type.
func writeError(w http.ResponseWriter, err error) {
	statusCode := statusCodeFromError(err)
	if statusCode == http.StatusInternalServerError {
		logs.Error(err)
	} else {
		logs.Debug(err)
	}

	b, _ := json.Marshal(errorResponse{
		Error: http.StatusText(statusCode),
		Type:  errors.Type(err),
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(b)
}

func statusCodeFromError(err error) int {
	switch errors.Type(err) {
	case ErrTypeBadRequest,
		geocodec.ErrTypeMalformedGeometry,
		geocodec.ErrTypeUnsupportedGeometry,
		geocodec.ErrTypeUnsupportedFormat,
		coverage.ErrTypeInvalidDepth,
		models.ErrTypeInvalidTileLevel:
		return http.StatusBadRequest

	case models.ErrTypeRegionNotFound, ErrTypeDisabled:
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}
