// Package respond writes the JSON envelopes of the gateway API.
//
// Successful calls answer {"success": true, "data": ...}. Failures answer
// {"success": false, "error": {...}} with a status code derived from the
// [fiscalerr.Kind] of the error.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sirosfoundation/go-fiscal/internal/logger"
	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

// maxRawDetail bounds the upstream body echoed in error details.
const maxRawDetail = 4096

// Envelope is the body of every API response.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string   `json:"code"`
	SubCode string   `json:"subCode,omitempty"`
	Message string   `json:"message"`
	Field   string   `json:"field,omitempty"`
	Details *Details `json:"details,omitempty"`
	Soap    any      `json:"soap,omitempty"`
}

// Details carries diagnostic data that is only exposed outside production.
type Details struct {
	Cause          string `json:"cause,omitempty"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
	Raw            string `json:"raw,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("Failed to write response", slog.String("error", err.Error()))
	}
}

// OK writes a success envelope around data.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Success: true, Data: data})
}

// Error writes the error envelope for err. Details are included only when
// withDetails is set.
func Error(w http.ResponseWriter, r *http.Request, err error, withDetails bool) {
	fe, ok := fiscalerr.As(err)
	if !ok {
		fe = classify(err)
	}
	status := Status(fe)

	body := &ErrorBody{
		Code:    string(fe.Kind),
		SubCode: string(fe.SubKind),
		Message: fe.Message,
		Field:   fe.Field,
		Soap:    fe.Debug,
	}
	if body.Message == "" {
		body.Message = http.StatusText(status)
	}
	if withDetails {
		body.Details = details(fe)
	}

	log := logger.ContextRequestLogger(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("Request failed",
			slog.String("code", body.Code),
			slog.String("sub_code", body.SubCode),
			slog.String("error", err.Error()))
	} else {
		log.Info("Request rejected",
			slog.String("code", body.Code),
			slog.String("field", body.Field))
	}
	logger.ContextWithLogAttrs(r.Context(), slog.String("error_code", body.Code))

	JSON(w, status, Envelope{Error: body})
}

// classify wraps errors raised outside the pipeline.
func classify(err error) *fiscalerr.Error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &fiscalerr.Error{Kind: fiscalerr.KindRequestTooLarge, Message: "request body too large", Err: err}
	}
	return &fiscalerr.Error{Kind: fiscalerr.KindInternal, Message: "internal error", Err: err}
}

func details(fe *fiscalerr.Error) *Details {
	d := &Details{UpstreamStatus: fe.StatusCode}
	if fe.Err != nil {
		d.Cause = fe.Err.Error()
	}
	if len(fe.Raw) > 0 {
		raw := fe.Raw
		if len(raw) > maxRawDetail {
			raw = raw[:maxRawDetail]
		}
		d.Raw = string(raw)
	}
	if *d == (Details{}) {
		return nil
	}
	return d
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch fiscalerr.KindOf(err) {
	case fiscalerr.KindDocumentBuild,
		fiscalerr.KindInvalidKeyLength,
		fiscalerr.KindValidation,
		fiscalerr.KindMissingField,
		fiscalerr.KindUnsupportedLayout,
		fiscalerr.KindInvalidCertificate,
		fiscalerr.KindInvalidPassword:
		return http.StatusBadRequest
	case fiscalerr.KindInvalidAPIKey:
		return http.StatusUnauthorized
	case fiscalerr.KindAccountNotFound, fiscalerr.KindCertificateNotFound:
		return http.StatusNotFound
	case fiscalerr.KindAccountExists:
		return http.StatusConflict
	case fiscalerr.KindRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case fiscalerr.KindRateLimit:
		return http.StatusTooManyRequests
	case fiscalerr.KindTransport:
		if fiscalerr.SubKindOf(err) == fiscalerr.SubKindNoResponse {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case fiscalerr.KindUpstreamFault, fiscalerr.KindUpstreamResponseUnparseable:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
