package relay

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"go.mau.fi/util/exhttp"
	"go.mau.fi/util/jsontime"
	"go.mau.fi/util/requestlog"

	"ciphercomms/internal/domain"
	cerrors "ciphercomms/internal/errors"
)

// maxBody bounds request bodies. Messages are small; keys are a few KiB.
const maxBody = 1 << 20

// Server serves the store interfaces over HTTP.
type Server struct {
	directory     domain.DirectoryService
	conversations domain.ConversationStore
	messages      domain.MessageStore
	log           zerolog.Logger
}

// NewServer returns a Server backed by the given stores.
func NewServer(
	directory domain.DirectoryService,
	conversations domain.ConversationStore,
	messages domain.MessageStore,
	log zerolog.Logger,
) *Server {
	return &Server{directory: directory, conversations: conversations, messages: messages, log: log}
}

// Handler returns the routed API wrapped in logging middleware.
func (s *Server) Handler() http.Handler {
	router := http.NewServeMux()
	router.HandleFunc("GET /users", s.lookupUser)
	router.HandleFunc("GET /users/{id}", s.getUser)
	router.HandleFunc("PUT /users/{id}", s.putUser)
	router.HandleFunc("PUT /users/{id}/key", s.putKey)
	router.HandleFunc("POST /chats", s.createChat)
	router.HandleFunc("GET /chats", s.listChats)
	router.HandleFunc("GET /chats/{id}", s.getChat)
	router.HandleFunc("PUT /chats/{id}/last", s.setLast)
	router.HandleFunc("POST /chats/{id}/messages", s.appendMessage)
	router.HandleFunc("GET /chats/{id}/messages", s.listMessages)
	router.HandleFunc("DELETE /chats/{id}/messages/{mid}", s.deleteMessage)

	return exhttp.ApplyMiddleware(
		router,
		hlog.NewHandler(s.log.With().Str("component", "relay").Logger()),
		requestlog.AccessLogger(requestlog.Options{TrustXForwardedFor: true}),
	)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id := domain.UserID(r.PathValue("id"))
	rec, ok, err := s.directory.Profile(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	} else if !ok {
		s.fail(w, r, fmt.Errorf("%w: %s", cerrors.ErrUserNotFound, id))
		return
	}
	exhttp.WriteJSONResponse(w, http.StatusOK, rec)
}

func (s *Server) putUser(w http.ResponseWriter, r *http.Request) {
	var rec domain.UserRecord
	if !s.decode(w, r, &rec) {
		return
	}
	rec.ID = domain.UserID(r.PathValue("id"))
	rec.CreatedAt = jsontime.UnixMilli{}
	if err := s.directory.PutProfile(r.Context(), rec); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) putKey(w http.ResponseWriter, r *http.Request) {
	var key domain.ExportedPublicKey
	if !s.decode(w, r, &key) {
		return
	}
	id := domain.UserID(r.PathValue("id"))
	if err := s.directory.SetPublicKey(r.Context(), id, key); err != nil {
		s.fail(w, r, err)
		return
	}
	hlog.FromRequest(r).Info().Str("user_id", id.String()).Msg("Public key updated")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookupUser(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	rec, ok, err := s.directory.LookupEmail(r.Context(), email)
	if err != nil {
		s.fail(w, r, err)
		return
	} else if !ok {
		s.fail(w, r, fmt.Errorf("%w: %s", cerrors.ErrUserNotFound, email))
		return
	}
	exhttp.WriteJSONResponse(w, http.StatusOK, rec)
}

func (s *Server) createChat(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if !s.decode(w, r, &req) {
		return
	}
	conv, ok, err := s.conversations.FindConversation(r.Context(), req.Participants)
	if err == nil && !ok {
		conv, err = s.conversations.CreateConversation(r.Context(), req.Participants)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	exhttp.WriteJSONResponse(w, http.StatusOK, conv)
}

func (s *Server) getChat(w http.ResponseWriter, r *http.Request) {
	id := domain.ConversationID(r.PathValue("id"))
	conv, ok, err := s.conversations.GetConversation(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	} else if !ok {
		s.fail(w, r, fmt.Errorf("%w: %s", cerrors.ErrConversationNotFound, id))
		return
	}
	exhttp.WriteJSONResponse(w, http.StatusOK, conv)
}

func (s *Server) listChats(w http.ResponseWriter, r *http.Request) {
	user := domain.UserID(r.URL.Query().Get("participant"))
	convs, err := s.conversations.ListConversations(r.Context(), user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if convs == nil {
		convs = []domain.Conversation{}
	}
	exhttp.WriteJSONResponse(w, http.StatusOK, convs)
}

func (s *Server) setLast(w http.ResponseWriter, r *http.Request) {
	var req setLastMessageRequest
	if !s.decode(w, r, &req) {
		return
	}
	id := domain.ConversationID(r.PathValue("id"))
	if err := s.conversations.SetLastMessage(r.Context(), id, req.LastMessage); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) appendMessage(w http.ResponseWriter, r *http.Request) {
	var rec domain.MessageRecord
	if !s.decode(w, r, &rec) {
		return
	}
	// The relay assigns identity and order.
	rec.ConversationID = domain.ConversationID(r.PathValue("id"))
	rec.ID = ""
	rec.Timestamp = jsontime.UnixMilli{}
	stored, err := s.messages.AppendMessage(r.Context(), rec)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	hlog.FromRequest(r).Debug().
		Str("conversation_id", stored.ConversationID.String()).
		Str("message_id", stored.ID.String()).
		Int("recipients", len(stored.EncryptedSessionKeys)).
		Msg("Stored message")
	exhttp.WriteJSONResponse(w, http.StatusCreated, stored)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, errorBody{Code: "bad_request", Message: "invalid limit"})
			return
		}
		limit = n
	}
	recs, err := s.messages.ListMessages(r.Context(), domain.ConversationID(r.PathValue("id")), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if recs == nil {
		recs = []domain.MessageRecord{}
	}
	exhttp.WriteJSONResponse(w, http.StatusOK, recs)
}

func (s *Server) deleteMessage(w http.ResponseWriter, r *http.Request) {
	requester := domain.UserID(r.Header.Get(HeaderUserID))
	if requester == "" {
		s.writeError(w, http.StatusBadRequest, errorBody{Code: "bad_request", Message: "missing " + HeaderUserID})
		return
	}
	err := s.messages.DeleteMessage(
		r.Context(),
		domain.ConversationID(r.PathValue("id")),
		domain.MessageID(r.PathValue("mid")),
		requester,
	)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(out); err != nil {
		s.writeError(w, http.StatusBadRequest, errorBody{Code: "bad_request", Message: err.Error()})
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := cerrors.Code(err)
	status := statusOf(code)
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Err(err).Msg("Request failed")
	}
	s.writeError(w, status, errorBody{Code: code, Message: err.Error()})
}

func (s *Server) writeError(w http.ResponseWriter, status int, body errorBody) {
	exhttp.WriteJSONResponse(w, status, body)
}
