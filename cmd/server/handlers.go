package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/p-n-ai/pai-gapfinder/internal/advisor"
	"github.com/p-n-ai/pai-gapfinder/internal/curriculum"
	"github.com/p-n-ai/pai-gapfinder/internal/diagnosis"
)

const (
	maxBodyBytes = 1 << 20
	readyTimeout = 2 * time.Second
)

// server holds what the handlers need.
type server struct {
	svc    *advisor.Service
	checks map[string]func(context.Context) error
}

// topicView is a topic with its category's display name.
type topicView struct {
	curriculum.TopicNode
	CategoryName string `json:"category_name"`
}

// newMux creates the HTTP router.
func newMux(s *server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /v1/catalogue", s.handleCatalogue)
	mux.HandleFunc("GET /v1/topics", s.handleTopics)
	mux.HandleFunc("GET /v1/topics/{code}", s.handleTopic)
	mux.HandleFunc("POST /v1/diagnoses/level", s.handleDiagnoseLevel)
	mux.HandleFunc("POST /v1/diagnoses/known-set", s.handleDiagnoseKnownSet)
	mux.HandleFunc("GET /v1/ws/diagnoses", s.handleDiagnosisStream)
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz pings every connected backend.
func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		slog.Warn("readiness check failed", "backends", failed)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *server) handleCatalogue(w http.ResponseWriter, r *http.Request) {
	cat := s.svc.Catalogue()

	categories := make([]map[string]string, 0, len(curriculum.AllCategories()))
	for _, c := range curriculum.AllCategories() {
		categories = append(categories, map[string]string{"code": string(c), "name": curriculum.CategoryDisplayName(c)})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"version":      cat.Version(),
		"topics":       cat.Len(),
		"gap_patterns": cat.GapPatterns().Len(),
		"grades":       cat.Grades().Labels(),
		"categories":   categories,
	})
}

// handleTopics lists topics by grade or category, or all of them.
func (s *server) handleTopics(w http.ResponseWriter, r *http.Request) {
	engine := s.svc.Engine()
	grade := r.URL.Query().Get("grade")
	category := curriculum.Category(r.URL.Query().Get("category"))

	var topics []curriculum.TopicNode
	switch {
	case grade != "" && category != "":
		writeError(w, http.StatusBadRequest, "use either grade or category, not both")
		return
	case grade != "":
		topics = engine.TopicsByGrade(grade)
	case category != "":
		if !category.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown category %q", category))
			return
		}
		topics = engine.TopicsByCategory(category)
	default:
		topics = s.svc.Catalogue().Topics()
	}

	views := make([]topicView, len(topics))
	for i, t := range topics {
		views[i] = newTopicView(t)
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": views})
}

func (s *server) handleTopic(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	t, ok := s.svc.Catalogue().Topic(code)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("topic %q not found", code))
		return
	}
	writeJSON(w, http.StatusOK, newTopicView(t))
}

func (s *server) handleDiagnoseLevel(w http.ResponseWriter, r *http.Request) {
	var in diagnosis.DiagnosticInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.svc.DiagnoseLevel(r.Context(), in)
	if err != nil {
		slog.Error("level diagnosis failed", "topic", in.CurrentTopicCode, "error", err)
		writeError(w, http.StatusInternalServerError, "diagnosis failed")
		return
	}
	w.Header().Set("X-Diagnosis-Id", res.ID)
	writeJSON(w, http.StatusOK, res.Value)
}

// handleDiagnoseKnownSet returns the closure gaps, or a full plan with
// ?plan=true.
func (s *server) handleDiagnoseKnownSet(w http.ResponseWriter, r *http.Request) {
	var in diagnosis.KnownSetInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.TargetTopicCode == "" {
		writeError(w, http.StatusBadRequest, "target_topic_code is required")
		return
	}

	if r.URL.Query().Get("plan") == "true" {
		res, err := s.svc.PlanKnownSet(r.Context(), in)
		if err != nil {
			slog.Error("plan failed", "topic", in.TargetTopicCode, "error", err)
			writeError(w, http.StatusInternalServerError, "diagnosis failed")
			return
		}
		w.Header().Set("X-Diagnosis-Id", res.ID)
		writeJSON(w, http.StatusOK, res.Value)
		return
	}

	res, err := s.svc.DiagnoseKnownSet(r.Context(), in)
	if errors.Is(err, diagnosis.ErrTopicNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		slog.Error("known-set diagnosis failed", "topic", in.TargetTopicCode, "error", err)
		writeError(w, http.StatusInternalServerError, "diagnosis failed")
		return
	}
	w.Header().Set("X-Diagnosis-Id", res.ID)
	writeJSON(w, http.StatusOK, map[string]any{"gaps": res.Value})
}

func newTopicView(t curriculum.TopicNode) topicView {
	return topicView{TopicNode: t, CategoryName: curriculum.CategoryDisplayName(t.Category)}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encoding response", "error", err)
		status = http.StatusInternalServerError
		data = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
