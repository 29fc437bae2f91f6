// Package registration exposes the REST API consumed by the frontend:
// student submission, AI form extraction and settings management.
package registration

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"bemisreg-backend/lib/scrapers/bemis"
	"bemisreg-backend/services/extraction"
	"bemisreg-backend/services/keychain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("services/registration")

type Service struct {
	Bemis      *bemis.Client
	Keychain   *keychain.Service
	Extraction *extraction.Service
}

func (s Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/submit-student", s.submitStudent)
	mux.HandleFunc("POST /api/extract-form-data", s.extractFormData)
	mux.HandleFunc("POST /api/settings/apikeys", s.addApiKey)
	mux.HandleFunc("DELETE /api/settings/apikeys", s.removeApiKey)
	mux.HandleFunc("GET /api/settings/apikeys/count", s.countApiKeys)
	mux.HandleFunc("GET /api/settings/apikeys/current", s.currentApiKey)
	mux.HandleFunc("POST /api/settings/session-cookie", s.saveSessionCookie)
}

func writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Error("failed to encode response body", "err", err)
	}
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJson(w, status, errorBody{Success: false, Message: message})
}

type submitRequest struct {
	SchoolId    string              `json:"schoolId"`
	StudentData bemis.StudentRecord `json:"studentData"`
}

// the portal's own status codes (204, 302) make no sense on a JSON
// response, so the outward status is normalized: 200 on success, the
// portal's own 4xx when it classified the failure, 502 otherwise
func outwardStatus(result bemis.Result) int {
	if result.Success {
		return http.StatusOK
	}
	if result.Status >= 400 && result.Status < 500 {
		return result.Status
	}
	return http.StatusBadGateway
}

func (s Service) submitStudent(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handler:submitStudent")
	defer span.End()

	var req submitRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.SchoolId == "" || len(req.StudentData) == 0 {
		writeError(w, http.StatusBadRequest, "school ID and student data are required")
		return
	}
	span.SetAttributes(attribute.String("school_id", req.SchoolId))

	result := s.Bemis.Submit(ctx, req.StudentData, req.SchoolId)
	writeJson(w, outwardStatus(result), result)
}

type extractResponse struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message"`
	StudentData bemis.StudentRecord `json:"studentData"`
}

func (s Service) extractFormData(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handler:extractFormData")
	defer span.End()

	err := r.ParseMultipartForm(32 << 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("formImage")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no image file uploaded or invalid file type")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "error processing image file: "+err.Error())
		return
	}

	record, err := s.Extraction.Extract(
		ctx, image,
		header.Header.Get("Content-Type"),
		r.FormValue("aiModel"),
	)
	if err != nil {
		slog.ErrorContext(ctx, "extraction failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJson(w, http.StatusOK, extractResponse{
		Success:     true,
		Message:     "data extracted successfully",
		StudentData: record,
	})
}

type apiKeyRequest struct {
	ApiKey string `json:"apiKey"`
}

type apiKeyCountBody struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Count   int    `json:"count"`
}

func (s Service) addApiKey(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handler:addApiKey")
	defer span.End()

	var req apiKeyRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil || req.ApiKey == "" {
		writeError(w, http.StatusBadRequest, "API key is required and must be a string")
		return
	}

	err = s.Keychain.AddKey(ctx, req.ApiKey)
	if errors.Is(err, keychain.ErrKeyExists) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := s.Keychain.CountKeys(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJson(w, http.StatusCreated, apiKeyCountBody{
		Success: true,
		Message: "API key added successfully",
		Count:   count,
	})
}

func (s Service) removeApiKey(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handler:removeApiKey")
	defer span.End()

	var req apiKeyRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil || req.ApiKey == "" {
		writeError(w, http.StatusBadRequest, "API key to remove is required and must be a string")
		return
	}

	err = s.Keychain.RemoveKey(ctx, req.ApiKey)
	if errors.Is(err, keychain.ErrKeyNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := s.Keychain.CountKeys(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJson(w, http.StatusOK, apiKeyCountBody{
		Success: true,
		Message: "API key removed successfully",
		Count:   count,
	})
}

func (s Service) countApiKeys(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handler:countApiKeys")
	defer span.End()

	count, err := s.Keychain.CountKeys(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJson(w, http.StatusOK, apiKeyCountBody{Success: true, Count: count})
}

func (s Service) currentApiKey(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handler:currentApiKey")
	defer span.End()

	key, err := s.Keychain.NextKey(ctx)
	if errors.Is(err, keychain.ErrNoApiKeys) {
		writeError(w, http.StatusNotFound, "no API key available")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJson(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		ApiKey  string `json:"apiKey"`
	}{Success: true, ApiKey: key})
}

type sessionCookieRequest struct {
	SessionCookie string `json:"sessionCookie"`
}

func (s Service) saveSessionCookie(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handler:saveSessionCookie")
	defer span.End()

	var req sessionCookieRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	err = s.Keychain.SetSession(ctx, req.SessionCookie)
	if err != nil {
		writeError(w, http.StatusBadRequest, "session cookie is required and must be a non-empty string")
		return
	}
	writeJson(w, http.StatusOK, errorBody{
		Success: true,
		Message: "session cookie saved successfully",
	})
}
