package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"sopdesk/api/internal/assistant"
	"sopdesk/api/internal/attachments"
	"sopdesk/api/internal/auth"
	"sopdesk/api/internal/authpw"
	"sopdesk/api/internal/content"
	"sopdesk/api/internal/export"
	"sopdesk/api/internal/mindmap"
	"sopdesk/api/internal/rbac"
	"sopdesk/api/internal/settings"
	"sopdesk/api/internal/storage"
)

type HTTPServer struct {
	service *Service
	cors    *cors.Cors
}

// NewHTTPServer serves the API. corsOrigin is "*" or a comma-separated list.
func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	origins := make([]string, 0)
	for _, origin := range strings.Split(corsOrigin, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &HTTPServer{
		service: service,
		cors: cors.New(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		}),
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.cors.Handler(s.withMiddleware(http.HandlerFunc(s.handle)))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"store": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["store"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/login" {
		s.handleLogin(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/logout" {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		if err := s.service.Logout(r.Context(), session); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/reset-password/request" {
		s.handleRequestReset(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/reset-password" {
		s.handleResetPassword(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "role": rbac.RoleAgent})
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "role": rbac.RoleAgent})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"role":          session.Role,
			"expiresAt":     session.ExpiresAt.Unix(),
		})
		return
	}

	session := s.optionalSession(r)

	if r.Method == http.MethodGet && r.URL.Path == "/api/bootstrap" {
		payload, err := s.service.Bootstrap(r.Context())
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		payload["session"] = map[string]any{"authenticated": session.IsAdmin(), "role": session.Role}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/teams" {
		teams, err := s.service.Teams(r.Context())
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"teams": teams})
		return
	}

	if r.URL.Path == "/api/theme" {
		switch r.Method {
		case http.MethodGet:
			theme, err := s.service.Theme(r.Context())
			if err != nil {
				s.writeMappedError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"theme": theme})
		case http.MethodPut:
			var body struct {
				Theme settings.Theme `json:"theme"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			theme, err := s.service.SetTheme(r.Context(), body.Theme)
			if err != nil {
				s.writeMappedError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"theme": theme})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/assistant/ask" {
		if !s.service.Can(session, rbac.ActionAsk) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var question assistant.Question
		if err := decodeBody(r, &question); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		answer, err := s.service.Ask(r.Context(), question)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, answer)
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "articles" {
		s.handleArticles(w, r, session, parts[2:])
		return
	}

	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "admin" {
		adminSession, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		if !s.service.Can(adminSession, rbac.ActionAdmin) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		s.handleAdmin(w, r, adminSession, parts[2:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleArticles(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	if !s.service.Can(session, rbac.ActionBrowse) {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
		return
	}

	if len(parts) == 0 && r.Method == http.MethodGet {
		query := r.URL.Query()
		payload, err := s.service.BrowseArticles(r.Context(), session, content.Filter{
			Query:  query.Get("q"),
			TeamID: query.Get("team"),
			Status: query.Get("status"),
		})
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if len(parts) == 1 && r.Method == http.MethodGet {
		payload, err := s.service.ArticleDetail(r.Context(), session, parts[0])
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if len(parts) == 2 && parts[1] == "export" && r.Method == http.MethodPost {
		if !s.service.Can(session, rbac.ActionExport) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var body struct {
			Format string `json:"format"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		format := body.Format
		if format == "" {
			format = r.URL.Query().Get("format")
		}
		if format == "" {
			format = string(export.FormatHTML)
		}
		result, err := s.service.Export(r.Context(), session, parts[0], export.Format(strings.ToLower(format)))
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeFile(w, result)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	resp, err := s.service.Login(r.Context(), body.Password)
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken": resp.Token,
		"role":        rbac.RoleAdmin,
		"expiresAt":   resp.ExpiresAt.Unix(),
	})
}

func (s *HTTPServer) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.RequestPasswordReset(r.Context())
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	response := map[string]any{
		"message": "A reset code has been sent to the recovery email",
		"sentTo":  resp.SentTo,
	}
	// Dev bypass: without SMTP the code is returned instead of mailed.
	if resp.DevCode != "" {
		response["devResetCode"] = resp.DevCode
		response["message"] = "Mail is not configured. Use the reset code in this response."
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code        string `json:"code"`
		NewPassword string `json:"newPassword"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.ResetPassword(r.Context(), body.Code, body.NewPassword); err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password reset successfully",
	})
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		s.service.log.WithError(err).Error("session lookup failed")
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

// optionalSession treats a missing or unusable token as an anonymous agent.
func (s *HTTPServer) optionalSession(r *http.Request) Session {
	session, err := s.service.SessionFromToken(r.Context(), bearerToken(r))
	if err != nil {
		return Session{Role: rbac.RoleAgent}
	}
	return session
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setDefaultHeaders(writer.Header())
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.service.log.WithFields(logrus.Fields{
			"request_id":  requestID,
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      writer.status,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("request")
	})
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setDefaultHeaders(header http.Header) {
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeFile(w http.ResponseWriter, result *export.Result) {
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func (s *HTTPServer) writeMappedError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.service.log.WithError(err).WithFields(logrus.Fields{
			"request_id": requestIDFrom(r.Context()),
			"path":       r.URL.Path,
		}).Error("request failed")
	}
	writeError(w, status, code, message, details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) || errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, export.ErrNotExportable):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid password", nil
	case errors.Is(err, authpw.ErrInvalidResetToken):
		return http.StatusBadRequest, "INVALID_RESET_CODE", "Invalid or expired reset code", nil
	case errors.Is(err, mindmap.ErrNodeNotFound):
		return http.StatusNotFound, "NODE_NOT_FOUND", err.Error(), nil
	case errors.Is(err, mindmap.ErrRootDelete), errors.Is(err, mindmap.ErrChildIndex),
		errors.Is(err, mindmap.ErrDuplicateID), errors.Is(err, mindmap.ErrUnknownField),
		errors.Is(err, mindmap.ErrEmptyNodeID):
		return http.StatusUnprocessableEntity, "INVALID_MINDMAP_EDIT", err.Error(), nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Format must be html, pdf or docx", nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_DEPENDENCY_MISSING", err.Error(), nil
	case errors.Is(err, attachments.ErrUnsupportedType), errors.Is(err, attachments.ErrInvalidName):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil
	case errors.Is(err, attachments.ErrDisabled):
		return http.StatusServiceUnavailable, "ATTACHMENTS_DISABLED", "Attachment storage is not configured", nil
	case errors.Is(err, storage.ErrMalformed):
		return http.StatusInternalServerError, "STORE_MALFORMED", "Stored data is malformed and was not overwritten", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
