package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/sirosfoundation/go-fiscal/internal/auth"
	"github.com/sirosfoundation/go-fiscal/internal/logger"
	"github.com/sirosfoundation/go-fiscal/internal/server/respond"
	"github.com/sirosfoundation/go-fiscal/internal/service"
	"github.com/sirosfoundation/go-fiscal/internal/tenant"
	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

// Multipart field names of certificate uploads
const (
	formCertificate = "certificado"
	formPassword    = "senha"
)

// multipartMemory is the part of a multipart body kept in memory.
const multipartMemory = tenant.MaxCertificateBytes + 1<<20

// handle decodes a JSON request of type T, runs op for the authenticated
// tenant and writes its outcome. soap points at the includeSoap switch of
// the request so the query parameter can set it.
func handle[T any](s *Server, name string, op func(context.Context, string, *T) (*service.Outcome, error), soap func(*T) *bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.ContextWithLogAttrs(r.Context(), slog.String("route", name))

		req := new(T)
		if err := decodeJSON(r, req); err != nil {
			s.fail(w, r, err)
			return
		}
		if includeSoap(r) {
			*soap(req) = true
		}

		out, err := op(r.Context(), auth.APIKeyFromContext(r.Context()), req)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		respond.OK(w, http.StatusOK, out)
	}
}

// decodeJSON reads the request body into v.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return fiscalerr.Wrap(fiscalerr.KindRequestTooLarge, err, "request body too large")
	case errors.Is(err, io.EOF):
		return fiscalerr.New(fiscalerr.KindValidation, "request body is empty")
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &fiscalerr.Error{
			Kind:    fiscalerr.KindValidation,
			Field:   typeErr.Field,
			Message: "unexpected JSON type for " + typeErr.Field,
			Err:     err,
		}
	}
	return fiscalerr.Wrap(fiscalerr.KindValidation, err, "request body is not valid JSON")
}

// includeSoap reports whether the includeSoap query parameter is set.
func includeSoap(r *http.Request) bool {
	v := r.URL.Query().Get("includeSoap")
	if v == "" {
		return false
	}
	on, err := strconv.ParseBool(v)
	return err == nil && on
}

// Account handlers

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.accounts.Setup(r.Context(), up)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond.OK(w, http.StatusCreated, res)
}

func (s *Server) handleAccountStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.accounts.Status(r.Context(), auth.APIKeyFromContext(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond.OK(w, http.StatusOK, st)
}

func (s *Server) handleRotateCertificate(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	summary, err := s.accounts.RotateCertificate(r.Context(), auth.APIKeyFromContext(r.Context()), up)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond.OK(w, http.StatusOK, map[string]any{"certificado": summary})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.Delete(r.Context(), auth.APIKeyFromContext(r.Context())); err != nil {
		s.fail(w, r, err)
		return
	}
	respond.OK(w, http.StatusOK, map[string]any{"deleted": true})
}

// readUpload extracts the certificate and passphrase of a multipart
// request. Missing parts are left empty for the account service to report.
func readUpload(r *http.Request) (tenant.Upload, error) {
	var up tenant.Upload
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return up, fiscalerr.Wrap(fiscalerr.KindRequestTooLarge, err, "request body too large")
		}
		return up, fiscalerr.Wrap(fiscalerr.KindValidation, err, "expected a multipart/form-data body")
	}
	up.Password = r.FormValue(formPassword)

	file, header, err := r.FormFile(formCertificate)
	if errors.Is(err, http.ErrMissingFile) {
		return up, nil
	}
	if err != nil {
		return up, fiscalerr.Wrap(fiscalerr.KindValidation, err, "reading certificate upload")
	}
	defer file.Close()

	up.Filename = header.Filename
	up.Content, err = readPart(file)
	if err != nil {
		return up, fiscalerr.Wrap(fiscalerr.KindValidation, err, "reading certificate upload")
	}
	return up, nil
}

// readPart reads at most one byte past the certificate limit so the
// account service can reject oversized containers.
func readPart(f multipart.File) ([]byte, error) {
	return io.ReadAll(io.LimitReader(f, tenant.MaxCertificateBytes+1))
}
