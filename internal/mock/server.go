// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package mock

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bulkctl/bulkctl/internal/api/dto"
	"github.com/bulkctl/bulkctl/internal/domain"
)

// Server is an in-memory items API: listing, per-item actions, and optionally
// server-side bulk jobs with status polling and an event stream.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	items    []domain.Item
	failIDs  map[string]bool
	jobs     map[string]*job
	requests map[string]int

	apiKey       string
	bulkStatus   int
	pushDisabled bool
	stepInterval time.Duration
}

type job struct {
	id        string
	action    domain.Action
	ids       []string
	done      int
	fail      int
	status    domain.JobStatus
	cancelled bool
}

func (j *job) snapshot() dto.BulkJobResponse {
	return dto.BulkJobResponse{
		JobID:  dto.NewItemID(j.id),
		Total:  len(j.ids),
		Done:   j.done,
		Fail:   j.fail,
		Status: string(j.status),
	}
}

// NewServer starts a server holding items. Callers must Close it.
func NewServer(items []domain.Item) *Server {
	s := &Server{
		items:        append([]domain.Item(nil), items...),
		failIDs:      make(map[string]bool),
		jobs:         make(map[string]*job),
		requests:     make(map[string]int),
		stepInterval: time.Millisecond,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handler))
	return s
}

// FailOn makes every mutation of the given ids fail with 409
func (s *Server) FailOn(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.failIDs[id] = true
	}
}

// RequireAPIKey makes every request without "Bearer key" fail with 401
func (s *Server) RequireAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = key
}

// SetBulkStatus makes start-bulk answer with status. Zero restores normal jobs.
func (s *Server) SetBulkStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulkStatus = status
}

// DisablePush makes the event stream endpoint answer 404
func (s *Server) DisablePush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushDisabled = true
}

// SetStepInterval sets how long a bulk job spends per item
func (s *Server) SetStepInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepInterval = d
}

// Requests returns how many requests hit a route ("list", "mutate", "bulk.start",
// "bulk.status", "bulk.events", "bulk.cancel")
func (s *Server) Requests(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[route]
}

// Items returns a copy of the current items
func (s *Server) Items() []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Item(nil), s.items...)
}

func (s *Server) count(route string) {
	s.mu.Lock()
	s.requests[route]++
	s.mu.Unlock()
}

func (s *Server) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	apiKey := s.apiKey
	s.mu.Unlock()
	if apiKey != "" && r.Header.Get("Authorization") != "Bearer "+apiKey {
		writeError(w, http.StatusUnauthorized, "INVALID_API_KEY", "Invalid API key")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/items")
	switch {
	case path == "" && r.Method == http.MethodGet:
		s.count("list")
		s.handleList(w, r)
	case path == "/bulk" && r.Method == http.MethodPost:
		s.count("bulk.start")
		s.handleBulkStart(w, r)
	case strings.HasPrefix(path, "/bulk/") && strings.HasSuffix(path, "/events") && r.Method == http.MethodGet:
		s.count("bulk.events")
		s.handleBulkEvents(w, r, strings.TrimSuffix(strings.TrimPrefix(path, "/bulk/"), "/events"))
	case strings.HasPrefix(path, "/bulk/") && strings.HasSuffix(path, "/cancel") && r.Method == http.MethodPost:
		s.count("bulk.cancel")
		s.handleBulkCancel(w, strings.TrimSuffix(strings.TrimPrefix(path, "/bulk/"), "/cancel"))
	case strings.HasPrefix(path, "/bulk/") && r.Method == http.MethodGet:
		s.count("bulk.status")
		s.handleBulkStatus(w, strings.TrimPrefix(path, "/bulk/"))
	case strings.HasPrefix(path, "/") && r.Method == http.MethodDelete:
		s.count("mutate")
		s.handleMutate(w, strings.TrimPrefix(path, "/"), domain.ActionDelete)
	case strings.HasPrefix(path, "/") && r.Method == http.MethodPost:
		id, action, ok := strings.Cut(strings.TrimPrefix(path, "/"), "/")
		if !ok {
			http.NotFound(w, r)
			return
		}
		s.count("mutate")
		s.handleMutate(w, id, domain.Action(action))
	default:
		http.NotFound(w, r)
	}
}

func matches(item domain.Item, f domain.Filter) bool {
	if f.Status != "" && item.Status != f.Status {
		return false
	}
	if f.Source != "" && item.Source != f.Source {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		return strings.Contains(strings.ToLower(item.Name), q) || strings.Contains(strings.ToLower(item.ID), q)
	}
	return true
}

func (s *Server) matching(f domain.Filter) []domain.Item {
	var out []domain.Item
	for _, item := range s.items {
		if matches(item, f) {
			out = append(out, item)
		}
	}
	return out
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.Filter{
		Search: q.Get("search"),
		Status: domain.ItemStatus(q.Get("status")),
		Source: domain.ItemSource(q.Get("source")),
	}
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("pageSize"))
	if page < 1 || size < 1 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "page and pageSize must be positive")
		return
	}

	s.mu.Lock()
	all := s.matching(filter)
	s.mu.Unlock()

	start := min((page-1)*size, len(all))
	end := min(start+size, len(all))
	rows := make([]map[string]any, 0, end-start)
	for _, item := range all[start:end] {
		rows = append(rows, map[string]any{
			"id":     item.ID,
			"name":   item.Name,
			"status": string(item.Status),
			"source": string(item.Source),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows, "total": len(all)})
}

// apply mutates one item under s.mu and reports whether it succeeded
func (s *Server) apply(id string, action domain.Action) bool {
	if s.failIDs[id] {
		return false
	}
	for i, item := range s.items {
		if item.ID != id {
			continue
		}
		switch action {
		case domain.ActionDelete:
			s.items = append(s.items[:i], s.items[i+1:]...)
		case domain.ActionPause:
			s.items[i].Status = domain.ItemStatusPaused
		case domain.ActionResume:
			s.items[i].Status = domain.ItemStatusActive
		}
		return true
	}
	return false
}

func (s *Server) handleMutate(w http.ResponseWriter, id string, action domain.Action) {
	s.mu.Lock()
	failing := s.failIDs[id]
	ok := s.apply(id, action)
	s.mu.Unlock()

	switch {
	case ok:
		w.WriteHeader(http.StatusNoContent)
	case failing:
		writeError(w, http.StatusConflict, "CONFLICT", fmt.Sprintf("item %s is locked", id))
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("item %s not found", id))
	}
}

type startRequest struct {
	Action string `json:"action"`
	Scope  struct {
		IDs    []string `json:"ids"`
		Filter *struct {
			Search string `json:"search"`
			Status string `json:"status"`
			Source string `json:"source"`
		} `json:"filter"`
		Excluded []string `json:"excluded"`
	} `json:"scope"`
}

func (s *Server) handleBulkStart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.bulkStatus
	s.mu.Unlock()
	if status != 0 {
		writeError(w, status, "NOT_IMPLEMENTED", "bulk jobs are not available")
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Action == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid bulk request")
		return
	}

	s.mu.Lock()
	ids := req.Scope.IDs
	if req.Scope.Filter != nil {
		excluded := make(map[string]bool, len(req.Scope.Excluded))
		for _, id := range req.Scope.Excluded {
			excluded[id] = true
		}
		filter := domain.Filter{
			Search: req.Scope.Filter.Search,
			Status: domain.ItemStatus(req.Scope.Filter.Status),
			Source: domain.ItemSource(req.Scope.Filter.Source),
		}
		ids = nil
		for _, item := range s.matching(filter) {
			if !excluded[item.ID] {
				ids = append(ids, item.ID)
			}
		}
	}
	j := &job{id: uuid.NewString(), action: domain.Action(req.Action), ids: ids, status: domain.JobRunning}
	s.jobs[j.id] = j
	step := s.stepInterval
	s.mu.Unlock()

	go s.process(j, step)

	writeJSON(w, http.StatusAccepted, dto.StartBulkJobResponse{JobID: dto.NewItemID(j.id), Total: len(ids)})
}

func (s *Server) process(j *job, step time.Duration) {
	for _, id := range j.ids {
		time.Sleep(step)

		s.mu.Lock()
		if j.cancelled {
			j.status = domain.JobCancelled
			s.mu.Unlock()
			return
		}
		if s.apply(id, j.action) {
			j.done++
		} else {
			j.fail++
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	j.status = domain.JobCompleted
	s.mu.Unlock()
}

func (s *Server) lookup(jobID string) (dto.BulkJobResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return dto.BulkJobResponse{}, false
	}
	return j.snapshot(), true
}

func (s *Server) handleBulkStatus(w http.ResponseWriter, jobID string) {
	snap, ok := s.lookup(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "job not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleBulkCancel(w http.ResponseWriter, jobID string) {
	s.mu.Lock()
	j, ok := s.jobs[jobID]
	if ok && j.status == domain.JobRunning {
		j.cancelled = true
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "job not found")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleBulkEvents(w http.ResponseWriter, r *http.Request, jobID string) {
	s.mu.Lock()
	disabled := s.pushDisabled
	s.mu.Unlock()
	if disabled {
		http.NotFound(w, r)
		return
	}
	if _, ok := s.lookup(jobID); !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "job not found")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	var last string
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		snap, _ := s.lookup(jobID)
		data, _ := json.Marshal(snap)
		if string(data) != last {
			last = string(data)
			_, _ = fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
			flusher.Flush()
		}
		if domain.JobStatus(snap.Status).IsTerminal() {
			_, _ = fmt.Fprint(w, "event: end\ndata: {}\n\n")
			flusher.Flush()
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"error": code, "message": message, "statusCode": status})
}
