package app

import (
	"net/http"
	"strconv"

	"sopdesk/api/internal/content"
	"sopdesk/api/internal/settings"
)

const maxUploadBytes = 32 << 20

func (s *HTTPServer) handleAdmin(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	if len(parts) == 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[0] {
	case "dashboard":
		if len(parts) == 1 && r.Method == http.MethodGet {
			payload, err := s.service.Dashboard(r.Context())
			if err != nil {
				s.writeMappedError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, payload)
			return
		}
	case "articles":
		s.handleAdminArticles(w, r, parts[1:])
		return
	case "mindmap":
		if len(parts) == 2 && parts[1] == "edit" && r.Method == http.MethodPost {
			var input MindMapEditInput
			if err := decodeBody(r, &input); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.EditMindMap(r.Context(), input)
			if err != nil {
				s.writeMappedError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, payload)
			return
		}
	case "teams":
		s.handleAdminTeams(w, r, parts[1:])
		return
	case "settings":
		if len(parts) == 1 {
			s.handleAppSettings(w, r)
			return
		}
	case "ai-settings":
		if len(parts) == 1 {
			s.handleAISettings(w, r)
			return
		}
	case "security":
		if len(parts) == 2 {
			s.handleSecurity(w, r, parts[1])
			return
		}
	case "attachments":
		s.handleAttachments(w, r, parts[1:])
		return
	case "archive":
		s.handleArchive(w, r, parts[1:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleAdminArticles(w http.ResponseWriter, r *http.Request, parts []string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		articles, err := s.service.AdminArticles(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"articles": articles,
			"counts":   content.Count(articles),
		})
	case len(parts) == 0 && r.Method == http.MethodPost:
		var article content.Article
		if err := decodeBody(r, &article); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		created, err := s.service.CreateArticle(r.Context(), article)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"article": created})
	case len(parts) == 1 && parts[0] == "new" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"article": s.service.NewArticleDraft()})
	case len(parts) == 1 && r.Method == http.MethodGet:
		article, err := s.service.AdminArticle(r.Context(), parts[0])
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"article": article})
	case len(parts) == 1 && r.Method == http.MethodPut:
		var article content.Article
		if err := decodeBody(r, &article); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		updated, err := s.service.UpdateArticle(r.Context(), parts[0], article)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"article": updated})
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteArticle(r.Context(), parts[0]); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleAdminTeams(w http.ResponseWriter, r *http.Request, parts []string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		teams, err := s.service.Teams(r.Context())
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"teams": teams})
	case len(parts) == 0 && r.Method == http.MethodPost:
		var team content.Team
		if err := decodeBody(r, &team); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		created, err := s.service.CreateTeam(r.Context(), team)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"team": created})
	case len(parts) == 1 && r.Method == http.MethodPut:
		var team content.Team
		if err := decodeBody(r, &team); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		updated, err := s.service.UpdateTeam(r.Context(), parts[0], team)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"team": updated})
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteTeam(r.Context(), parts[0]); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleAppSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		current, err := s.service.AppSettings(r.Context())
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"settings": current})
	case http.MethodPut:
		var layer settings.AppSettingsLayer
		if err := decodeBody(r, &layer); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		updated, err := s.service.UpdateAppSettings(r.Context(), layer)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"settings": updated})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleAISettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		current, err := s.service.AISettings(r.Context())
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"aiSettings": current})
	case http.MethodPut:
		var layer settings.AIControlSettingsLayer
		if err := decodeBody(r, &layer); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		updated, err := s.service.UpdateAISettings(r.Context(), layer)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"aiSettings": updated})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleSecurity(w http.ResponseWriter, r *http.Request, section string) {
	switch {
	case section == "password" && r.Method == http.MethodPut:
		var body struct {
			NewPassword string `json:"newPassword"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.ChangePassword(r.Context(), body.NewPassword); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case section == "recovery-email" && r.Method == http.MethodGet:
		email, err := s.service.RecoveryEmail(r.Context())
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"email": email})
	case section == "recovery-email" && r.Method == http.MethodPut:
		var body struct {
			Email string `json:"email"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		email, err := s.service.SetRecoveryEmail(r.Context(), body.Email)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"email": email})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleAttachments(w http.ResponseWriter, r *http.Request, parts []string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Expected a multipart upload", nil)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Missing file field", nil)
			return
		}
		defer file.Close()

		attachment, err := s.service.UploadAttachment(r.Context(), r.FormValue("articleId"), header.Filename, file, header.Size, header.Header.Get("Content-Type"))
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"attachment": attachment})
	case len(parts) == 2 && r.Method == http.MethodDelete:
		updated, err := s.service.DeleteAttachment(r.Context(), parts[0], parts[1])
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "articleIds": updated})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleArchive(w http.ResponseWriter, r *http.Request, parts []string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		commits, err := s.service.ArchiveHistory(limit)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"commits": commits})
	case len(parts) == 0 && r.Method == http.MethodPost:
		var body struct {
			Message string `json:"message"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		commit, created, err := s.service.SnapshotArchive(r.Context(), body.Message)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, map[string]any{"commit": commit, "created": created})
	case len(parts) == 1 && r.Method == http.MethodGet:
		entries, err := s.service.ArchiveEntries(parts[0])
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"hash": parts[0], "entries": entries})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}
