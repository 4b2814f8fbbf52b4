// Package gateway exposes the engine over HTTP: a small query surface for
// conversation lists and history, and the websocket endpoint carrying the
// live channel.
package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"threadly/auth"
	"threadly/contract"
	"threadly/errors"
)

type Server struct {
	service contract.IChatService
	secret  []byte
	router  *mux.Router
	log     *slog.Logger
}

func NewServer(service contract.IChatService, secret []byte, handshakeTimeout time.Duration, sinkBufferSize int, log *slog.Logger) *Server {
	s := &Server{
		service: service,
		secret:  secret,
		router:  mux.NewRouter(),
		log:     log,
	}

	ws := newWSHandler(service, secret, handshakeTimeout, sinkBufferSize, log)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.Handle("/ws", ws).Methods(http.MethodGet)
	v1.HandleFunc("/users/{userID}/conversations", s.authenticated(s.listConversations)).Methods(http.MethodGet)
	v1.HandleFunc("/users/{userID}/online", s.authenticated(s.isOnline)).Methods(http.MethodGet)
	v1.HandleFunc("/conversations/{conversationID}/messages", s.authenticated(s.getMessages)).Methods(http.MethodGet)
	return s
}

// Handler returns the root handler, ready for an http.Server or httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

type authedHandler func(w http.ResponseWriter, r *http.Request, claims *auth.IdentityClaims)

// authenticated validates the bearer token; the claims' subject is the
// caller identity for every query decision downstream.
func (s *Server) authenticated(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		claims, err := auth.ValidateToken(s.secret, raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		next(w, r, claims)
	}
}

// listConversations returns the caller's conversations, most recent
// activity first. Callers can only list their own.
func (s *Server) listConversations(w http.ResponseWriter, r *http.Request, claims *auth.IdentityClaims) {
	userID := mux.Vars(r)["userID"]
	if userID != claims.UserID {
		writeError(w, http.StatusForbidden, errors.ErrNotParticipant)
		return
	}

	conversations, err := s.service.ListConversations(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

func (s *Server) isOnline(w http.ResponseWriter, r *http.Request, _ *auth.IdentityClaims) {
	userID := mux.Vars(r)["userID"]
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"online":  s.service.IsOnline(userID),
	})
}

func (s *Server) getMessages(w http.ResponseWriter, r *http.Request, claims *auth.IdentityClaims) {
	conversationID := mux.Vars(r)["conversationID"]

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	messages, next, err := s.service.GetMessages(conversationID, claims.UserID, cursor)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	payload := map[string]any{"messages": messages}
	if next != nil {
		payload["next_cursor"] = *next
	}
	writeJSON(w, http.StatusOK, payload)
}

func statusFor(err error) int {
	switch err {
	case errors.ErrNotParticipant:
		return http.StatusForbidden
	case errors.ErrUnknownConversation:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
