package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ngochieu276/slack-clone/internal/auth"
	"github.com/ngochieu276/slack-clone/internal/metrics"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	log        zerolog.Logger
}

func NewHTTPServer(service *Service, corsOrigin string, log zerolog.Logger) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin, log: log}
}

func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", s.withMiddleware(http.HandlerFunc(s.handle)))
	return mux
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
			"dependencies": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["dependencies"] = map[string]any{
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

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		session := s.optionalSession(r)
		if !session.Authenticated() {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "userName": session.UserName, "userId": session.UserID})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/logout" {
		session := s.optionalSession(r)
		if err := s.service.Logout(r.Context(), session); err != nil {
			s.log.Warn().Err(err).Str("user_id", session.UserID).Msg("token revocation failed")
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" || parts[1] != "workspaces" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	if len(parts) == 2 {
		s.handleWorkspaces(w, r)
		return
	}

	if len(parts) == 3 && parts[2] == "join" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body struct {
			JoinCode string `json:"joinCode"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.JoinWorkspace(r.Context(), session, body.JoinCode)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	workspaceID := parts[2]
	if len(parts) == 3 {
		s.handleWorkspace(w, r, workspaceID)
		return
	}

	switch parts[3] {
	case "info":
		if len(parts) == 4 && r.Method == http.MethodGet {
			payload, err := s.service.GetWorkspaceInfo(r.Context(), s.optionalSession(r), workspaceID)
			s.writeResult(w, r, payload, err)
			return
		}
	case "join-code":
		if len(parts) == 4 && r.Method == http.MethodPost {
			session, ok := s.requireSession(w, r)
			if !ok {
				return
			}
			payload, err := s.service.NewJoinCode(r.Context(), session, workspaceID)
			s.writeResult(w, r, payload, err)
			return
		}
	case "navigation":
		if len(parts) == 4 && r.Method == http.MethodPut {
			session, ok := s.requireSession(w, r)
			if !ok {
				return
			}
			var body struct {
				Navigation []string `json:"navigation"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.UpdateNavigation(r.Context(), session, workspaceID, body.Navigation)
			s.writeResult(w, r, payload, err)
			return
		}
	case "members":
		s.handleMembers(w, r, workspaceID, parts[4:])
		return
	case "channels":
		s.handleChannels(w, r, workspaceID, parts[4:])
		return
	case "conversations":
		s.handleConversations(w, r, workspaceID, parts[4:])
		return
	case "messages":
		s.handleMessages(w, r, workspaceID, parts[4:])
		return
	case "later":
		s.handleLater(w, r, workspaceID, parts[4:])
		return
	case "notifications":
		s.handleNotifications(w, r, workspaceID, parts[4:])
		return
	case "search":
		if len(parts) == 4 && r.Method == http.MethodGet {
			query := r.URL.Query()
			payload, err := s.service.SearchMessages(r.Context(), s.optionalSession(r), workspaceID, SearchInput{
				Text:      query.Get("q"),
				ChannelID: query.Get("channelId"),
				Limit:     queryInt(r, "limit"),
				Offset:    queryInt(r, "offset"),
			})
			s.writeResult(w, r, payload, err)
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleWorkspaces(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		payload, err := s.service.ListWorkspaces(r.Context(), s.optionalSession(r))
		s.writeResult(w, r, payload, err)
		return
	}

	if r.Method == http.MethodPost {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateWorkspace(r.Context(), session, body.Name)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, payload)
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func (s *HTTPServer) handleWorkspace(w http.ResponseWriter, r *http.Request, workspaceID string) {
	if r.Method == http.MethodGet {
		payload, err := s.service.GetWorkspace(r.Context(), s.optionalSession(r), workspaceID)
		s.writeResult(w, r, payload, err)
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodPut {
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateWorkspace(r.Context(), session, workspaceID, body.Name)
		s.writeResult(w, r, payload, err)
		return
	}

	if r.Method == http.MethodDelete {
		err := s.service.RemoveWorkspace(r.Context(), session, workspaceID)
		s.writeResult(w, r, map[string]any{"id": workspaceID}, err)
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func (s *HTTPServer) handleMembers(w http.ResponseWriter, r *http.Request, workspaceID string, rest []string) {
	if len(rest) == 0 && r.Method == http.MethodGet {
		payload, err := s.service.ListMembers(r.Context(), s.optionalSession(r), workspaceID)
		s.writeResult(w, r, payload, err)
		return
	}

	if len(rest) == 1 && rest[0] == "current" && r.Method == http.MethodGet {
		payload, err := s.service.CurrentMember(r.Context(), s.optionalSession(r), workspaceID)
		s.writeResult(w, r, payload, err)
		return
	}

	if len(rest) == 0 {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	memberID := rest[0]
	if len(rest) == 1 {
		if r.Method == http.MethodGet {
			payload, err := s.service.GetMember(r.Context(), s.optionalSession(r), memberID)
			s.writeResult(w, r, payload, err)
			return
		}
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		switch r.Method {
		case http.MethodPut:
			var body struct {
				Role string `json:"role"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			id, err := s.service.UpdateMemberRole(r.Context(), session, memberID, body.Role)
			s.writeResult(w, r, map[string]any{"id": id}, err)
		case http.MethodDelete:
			result, err := s.service.RemoveMember(r.Context(), session, memberID)
			s.writeResult(w, r, map[string]any{
				"id":              memberID,
				"messageIds":      nonNilStrings(result.MessageIDs),
				"reactionIds":     nonNilStrings(result.ReactionIDs),
				"conversationIds": nonNilStrings(result.ConversationIDs),
			}, err)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	switch {
	case len(rest) == 2 && rest[1] == "online" && r.Method == http.MethodPost:
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		err := s.service.UpdateOnlineStatus(r.Context(), session, memberID)
		s.writeResult(w, r, map[string]any{"id": memberID}, err)
	case len(rest) == 2 && rest[1] == "preferences" && r.Method == http.MethodGet:
		payload, err := s.service.GetPreference(r.Context(), s.optionalSession(r), workspaceID, memberID)
		s.writeResult(w, r, payload, err)
	case len(rest) == 2 && rest[1] == "preferences" && r.Method == http.MethodPut:
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body PreferenceInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdatePreference(r.Context(), session, workspaceID, memberID, body)
		s.writeResult(w, r, payload, err)
	case len(rest) == 3 && rest[1] == "preferences" && rest[2] == "avatar" && r.Method == http.MethodPut:
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body AvatarInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateAvatar(r.Context(), session, workspaceID, memberID, body)
		s.writeResult(w, r, payload, err)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleChannels(w http.ResponseWriter, r *http.Request, workspaceID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.ListChannels(r.Context(), s.optionalSession(r), workspaceID)
			s.writeResult(w, r, payload, err)
		case http.MethodPost:
			session, ok := s.requireSession(w, r)
			if !ok {
				return
			}
			var body struct {
				Name string `json:"name"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.CreateChannel(r.Context(), session, workspaceID, body.Name)
			if err != nil {
				s.writeServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, payload)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(rest) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	channelID := rest[0]
	if r.Method == http.MethodGet {
		payload, err := s.service.GetChannel(r.Context(), s.optionalSession(r), workspaceID, channelID)
		s.writeResult(w, r, payload, err)
		return
	}
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPut:
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateChannel(r.Context(), session, workspaceID, channelID, body.Name)
		s.writeResult(w, r, payload, err)
	case http.MethodDelete:
		err := s.service.RemoveChannel(r.Context(), session, workspaceID, channelID)
		s.writeResult(w, r, map[string]any{"id": channelID}, err)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleConversations(w http.ResponseWriter, r *http.Request, workspaceID string, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		payload, err := s.service.ListConversations(r.Context(), s.optionalSession(r), workspaceID)
		s.writeResult(w, r, payload, err)
	case len(rest) == 0 && r.Method == http.MethodPost:
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body struct {
			MemberID string `json:"memberId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateOrGetConversation(r.Context(), session, workspaceID, body.MemberID)
		s.writeResult(w, r, payload, err)
	case len(rest) == 1 && r.Method == http.MethodGet:
		payload, err := s.service.GetConversation(r.Context(), s.optionalSession(r), workspaceID, rest[0])
		s.writeResult(w, r, payload, err)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleMessages(w http.ResponseWriter, r *http.Request, workspaceID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			query := r.URL.Query()
			payload, err := s.service.ListMessages(r.Context(), s.optionalSession(r), workspaceID, ListMessagesInput{
				ChannelID:       query.Get("channelId"),
				ConversationID:  query.Get("conversationId"),
				ParentMessageID: query.Get("parentMessageId"),
				Cursor:          query.Get("cursor"),
				Limit:           queryInt(r, "limit"),
			})
			s.writeResult(w, r, payload, err)
		case http.MethodPost:
			session, ok := s.requireSession(w, r)
			if !ok {
				return
			}
			var body CreateMessageInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.CreateMessage(r.Context(), session, workspaceID, body)
			if err != nil {
				s.writeServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, payload)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	messageID := rest[0]
	if len(rest) == 2 && rest[1] == "reactions" {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.ListReactions(r.Context(), s.optionalSession(r), workspaceID, messageID)
			s.writeResult(w, r, payload, err)
		case http.MethodPost:
			session, ok := s.requireSession(w, r)
			if !ok {
				return
			}
			var body struct {
				Value string `json:"value"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.ToggleReaction(r.Context(), session, workspaceID, messageID, body.Value)
			s.writeResult(w, r, payload, err)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(rest) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	if r.Method == http.MethodGet {
		payload, err := s.service.GetMessage(r.Context(), s.optionalSession(r), workspaceID, messageID)
		s.writeResult(w, r, payload, err)
		return
	}
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPut:
		var body struct {
			Body string `json:"body"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateMessage(r.Context(), session, workspaceID, messageID, body.Body)
		s.writeResult(w, r, payload, err)
	case http.MethodDelete:
		err := s.service.RemoveMessage(r.Context(), session, workspaceID, messageID)
		s.writeResult(w, r, map[string]any{"id": messageID}, err)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleLater(w http.ResponseWriter, r *http.Request, workspaceID string, rest []string) {
	if len(rest) == 0 && r.Method == http.MethodGet {
		payload, err := s.service.ListSavedLater(r.Context(), s.optionalSession(r), workspaceID, r.URL.Query().Get("status"))
		s.writeResult(w, r, payload, err)
		return
	}
	if len(rest) > 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		var body SaveLaterInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.SaveForLater(r.Context(), session, workspaceID, body)
		s.writeResult(w, r, payload, err)
	case len(rest) == 1 && r.Method == http.MethodPut:
		var body struct {
			Status string `json:"status"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateSavedLaterStatus(r.Context(), session, workspaceID, rest[0], body.Status)
		s.writeResult(w, r, payload, err)
	case len(rest) == 1 && r.Method == http.MethodDelete:
		err := s.service.RemoveSavedLater(r.Context(), session, workspaceID, rest[0])
		s.writeResult(w, r, map[string]any{"id": rest[0]}, err)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleNotifications(w http.ResponseWriter, r *http.Request, workspaceID string, rest []string) {
	query := r.URL.Query()
	unread := queryBool(r, "unread")

	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		payload, err := s.service.ListNotifications(r.Context(), s.optionalSession(r), workspaceID, NotificationQuery{
			ChannelID:      query.Get("channelId"),
			ConversationID: query.Get("conversationId"),
			UnreadOnly:     unread,
		})
		s.writeResult(w, r, payload, err)
	case len(rest) == 1 && rest[0] == "read" && r.Method == http.MethodPost:
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body MarkReadInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		ids, err := s.service.MarkAsRead(r.Context(), session, workspaceID, body)
		s.writeResult(w, r, map[string]any{"ids": ids}, err)
	case len(rest) == 1 && rest[0] == "activities" && r.Method == http.MethodGet:
		payload, err := s.service.Activities(r.Context(), s.optionalSession(r), workspaceID, unread)
		s.writeResult(w, r, payload, err)
	case len(rest) == 1 && rest[0] == "direct" && r.Method == http.MethodGet:
		payload, err := s.service.DirectMessages(r.Context(), s.optionalSession(r), workspaceID, unread)
		s.writeResult(w, r, payload, err)
	case len(rest) == 1 && rest[0] == "unread-count" && r.Method == http.MethodGet:
		count, err := s.service.UnreadCount(r.Context(), s.optionalSession(r), workspaceID)
		s.writeResult(w, r, map[string]any{"count": count}, err)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// optionalSession resolves the caller for queries. A missing or bad token is
// an anonymous caller.
func (s *HTTPServer) optionalSession(r *http.Request) Session {
	token := bearerToken(r)
	if token == "" {
		return Session{}
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if !errors.Is(err, auth.ErrExpiredToken) && !errors.Is(err, auth.ErrInvalidToken) {
			s.log.Error().Err(err).Msg("session lookup failed")
		}
		return Session{}
	}
	return session
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
		s.log.Error().Err(err).Msg("session lookup failed")
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

// writeResult writes payload with 200, or the mapped error when err is set.
func (s *HTTPServer) writeResult(w http.ResponseWriter, r *http.Request, payload any, err error) {
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).
			Str("request_id", requestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", reqID)

		next.ServeHTTP(writer, r)

		elapsed := time.Since(started)
		route := routeLabel(r.URL.Path)
		metrics.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(writer.status)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

		s.log.Info().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", writer.status).
			Int64("duration_ms", elapsed.Milliseconds()).
			Msg("request")
	})
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
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

// routeLabel replaces ids in the path so metrics stay low-cardinality.
func routeLabel(path string) string {
	parts := splitPath(path)
	if len(parts) < 3 || parts[0] != "api" || parts[1] != "workspaces" || parts[2] == "join" {
		return path
	}
	parts[2] = ":ws"
	if len(parts) > 4 && parts[3] != "notifications" && parts[4] != "current" {
		parts[4] = ":id"
	}
	return "/" + strings.Join(parts, "/")
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
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

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
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

func queryInt(r *http.Request, key string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return value
}

func queryBool(r *http.Request, key string) bool {
	value, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return value
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
