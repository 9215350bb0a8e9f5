// Package activityclienttest provides an in-memory activities API for tests.
//
// The server answers the same three endpoints as the real backend, with the same
// status codes and message texts, and records every request it receives so tests
// can assert on what was (or was not) sent.
package activityclienttest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/nomis52/signup/catalog"
)

// Request is a request received by the Server.
type Request struct {
	Method    string
	Activity  string
	Email     string
	RequestID string
}

// Fault is a canned response returned instead of the normal handling.
type Fault struct {
	Status int
	Body   string
}

// Server is a fake activities API backed by httptest.Server.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	activities []catalog.Activity
	requests   []Request
	faults     []Fault
}

// DefaultActivities returns a small school activity catalog.
func DefaultActivities() []catalog.Activity {
	return []catalog.Activity{
		{
			Name:            "Chess Club",
			Description:     "Learn strategies and compete in chess tournaments",
			Schedule:        "Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 12,
			Participants:    []string{"michael@mergington.edu", "daniel@mergington.edu"},
		},
		{
			Name:            "Programming Class",
			Description:     "Learn programming fundamentals and build software projects",
			Schedule:        "Tuesdays and Thursdays, 3:30 PM - 4:30 PM",
			MaxParticipants: 20,
			Participants:    []string{"emma@mergington.edu", "sophia@mergington.edu"},
		},
		{
			Name:            "Basketball Team",
			Description:     "Practice and compete in basketball games",
			Schedule:        "Wednesdays, 4:00 PM - 6:00 PM",
			MaxParticipants: 15,
		},
		{
			Name:            "Art Club",
			Description:     "Explore painting, drawing and sculpture",
			Schedule:        "Mondays, 3:30 PM - 5:00 PM",
			MaxParticipants: 10,
		},
	}
}

// NewServer starts a Server seeded with activities. The caller must Close it.
func NewServer(activities ...catalog.Activity) *Server {
	s := &Server{}
	for _, a := range activities {
		a.Participants = slices.Clone(a.Participants)
		s.activities = append(s.activities, a)
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(s.record)
	r.Use(s.injectFaults)

	r.Get("/activities", s.handleList)
	r.Post("/activities/{activity}/signup", s.handleSignup)
	r.Delete("/activities/{activity}/unregister", s.handleUnregister)
	return r
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// CountRequests returns how many requests used method.
func (s *Server) CountRequests(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method {
			n++
		}
	}
	return n
}

// Fail queues a canned response for the next request.
func (s *Server) Fail(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, Fault{Status: status, Body: body})
}

// Catalog returns the current server-side catalog.
func (s *Server) Catalog() catalog.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return catalog.New(s.activities...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    r.Method,
			Activity:  activityFromPath(r.URL),
			Email:     r.URL.Query().Get("email"),
			RequestID: r.Header.Get("X-Request-ID"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var fault *Fault
		if len(s.faults) > 0 {
			f := s.faults[0]
			s.faults = s.faults[1:]
			fault = &f
		}
		s.mu.Unlock()

		if fault == nil {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fault.Status)
		_, _ = w.Write([]byte(fault.Body))
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Catalog())
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	name, email := s.target(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(name)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Activity not found"})
		return
	}
	if slices.Contains(s.activities[i].Participants, email) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Student is already signed up"})
		return
	}
	s.activities[i].Participants = append(s.activities[i].Participants, email)
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Signed up %s for %s", email, name)})
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	name, email := s.target(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(name)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Activity not found"})
		return
	}
	j := slices.Index(s.activities[i].Participants, email)
	if j < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Student is not signed up for this activity"})
		return
	}
	s.activities[i].Participants = slices.Delete(s.activities[i].Participants, j, j+1)
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Unregistered %s from %s", email, name)})
}

// target extracts the activity name and email from a mutation request.
func (s *Server) target(r *http.Request) (string, string) {
	return activityFromPath(r.URL), r.URL.Query().Get("email")
}

// activityFromPath returns the unescaped {activity} segment of
// /activities/{activity}/..., or "" for other paths.
func activityFromPath(u *url.URL) string {
	rest, ok := strings.CutPrefix(u.EscapedPath(), "/activities/")
	if !ok {
		return ""
	}
	segment, _, _ := strings.Cut(rest, "/")
	name, err := url.PathUnescape(segment)
	if err != nil {
		return segment
	}
	return name
}

// indexOf must be called with s.mu held.
func (s *Server) indexOf(name string) int {
	for i, a := range s.activities {
		if a.Name == name {
			return i
		}
	}
	return -1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
