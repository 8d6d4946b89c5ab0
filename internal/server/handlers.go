package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const defaultMaxBodyBytes = 1 << 20

type textRequest struct {
	Text *string `json:"text"`
}

type textResponse struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	detector := s.deps.Engine.Detector()
	writeJSON(w, http.StatusOK, map[string]any{
		"name":            "llm-redactor",
		"version":         s.deps.Version,
		"enabled_rules":   detector.EnabledRuleNames(),
		"kinds":           detector.Catalog().Kinds(),
		"active_sessions": s.deps.Engine.Sessions(),
		"export_enabled":  s.config.API.ExportEnabled,
	})
}

func (s *Server) handleRedact(w http.ResponseWriter, r *http.Request) {
	text, ok := s.decodeText(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Engine.Redact(sessionID(r), text))
}

func (s *Server) handleRedactJSON(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	out, refs, err := s.deps.Engine.RedactJSON(sessionID(r), body)
	if err != nil {
		s.requestLogger(r).Error("Failed to encode redacted JSON", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to encode redacted body")
		return
	}

	w.Header().Set("X-Redacted-Tokens", strconv.Itoa(len(refs)))
	writeBody(w, body, out)
}

func (s *Server) handleRestoreJSON(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	out, err := s.deps.Engine.RestoreJSON(sessionID(r), body)
	if err != nil {
		s.requestLogger(r).Error("Failed to encode restored JSON", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to encode restored body")
		return
	}
	writeBody(w, body, out)
}

// writeBody answers with out, typed as JSON when the request body was JSON.
func writeBody(w http.ResponseWriter, in, out []byte) {
	if json.Valid(in) {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	text, ok := s.decodeText(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: s.deps.Engine.Restore(sessionID(r), text)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Engine.Stats(sessionID(r)))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	export := s.deps.Engine.Export(id)

	s.requestLogger(r).Warn("Redaction map exported",
		zap.String("session_id", id),
		zap.Int("tokens", export.Stats.Total),
	)

	writeJSON(w, http.StatusOK, export)
}

func (s *Server) handleDestroy(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	existed, err := s.deps.Lifecycle.Destroy(r.Context(), id)
	if err != nil {
		s.requestLogger(r).Error("Session teardown incomplete", zap.String("session_id", id), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"destroyed":  existed,
	})
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	limit := s.config.Server.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	return body, true
}

func (s *Server) decodeText(w http.ResponseWriter, r *http.Request) (string, bool) {
	body, ok := s.readBody(w, r)
	if !ok {
		return "", false
	}

	var req textRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return "", false
	}
	if req.Text == nil {
		writeError(w, http.StatusBadRequest, `missing "text" field`)
		return "", false
	}
	return *req.Text, true
}

func sessionID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
