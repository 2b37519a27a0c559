// Package authtest runs an in-process stand-in for the hosted auth service.
package authtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// AnonKey is the public key the fake service expects in the apikey header.
const AnonKey = "test-anon-key"

var signingKey = []byte("authtest-secret")

type account struct {
	ID        string
	Email     string
	Password  string
	Metadata  map[string]any
	Confirmed bool
	OTP       string
}

// Server is a fake auth service. Exported fields may be changed between requests.
type Server struct {
	*httptest.Server

	// AutoConfirm signs users in directly at sign-up instead of emailing a code.
	AutoConfirm bool
	// TokenTTL is the lifetime of issued access tokens.
	TokenTTL time.Duration
	// OmitExpiry drops expires_in/expires_at so clients must read the token claims.
	OmitExpiry bool

	mu       sync.Mutex
	accounts map[string]*account
	access   map[string]string
	refresh  map[string]string
	calls    map[string]int
}

// NewServer starts a fake service that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	s := &Server{
		TokenTTL: time.Hour,
		accounts: make(map[string]*account),
		access:   make(map[string]string),
		refresh:  make(map[string]string),
		calls:    make(map[string]int),
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/auth/v1").Subrouter()
	api.Use(s.requireAPIKey)
	api.HandleFunc("/token", s.handleToken).Methods(http.MethodPost)
	api.HandleFunc("/signup", s.handleSignUp).Methods(http.MethodPost)
	api.HandleFunc("/verify", s.handleVerify).Methods(http.MethodPost)
	api.HandleFunc("/resend", s.handleResend).Methods(http.MethodPost)
	api.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/user", s.handleGetUser).Methods(http.MethodGet)
	api.HandleFunc("/user", s.handlePutUser).Methods(http.MethodPut)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// AddUser registers a confirmed account.
func (s *Server) AddUser(email, password string, metadata map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if metadata == nil {
		metadata = map[string]any{}
	}
	id := uuid.NewString()
	s.accounts[email] = &account{ID: id, Email: email, Password: password, Metadata: metadata, Confirmed: true}
	return id
}

// OTP returns the pending sign-up code of email.
func (s *Server) OTP(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[email]; ok {
		return a.OTP
	}
	return ""
}

// Metadata returns the stored profile metadata of email.
func (s *Server) Metadata(email string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[email]; ok {
		return a.Metadata
	}
	return nil
}

// Password returns the stored password of email.
func (s *Server) Password(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[email]; ok {
		return a.Password
	}
	return ""
}

// RevokeAll invalidates every issued access and refresh token.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]string)
	s.refresh = make(map[string]string)
}

// Calls returns how many times the endpoint (e.g. "POST /logout") was hit.
func (s *Server) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.Method+" "+strings.TrimPrefix(r.URL.Path, "/auth/v1")]++
		s.mu.Unlock()

		if r.Header.Get("apikey") != AnonKey {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "Could not parse request body as JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.URL.Query().Get("grant_type") {
	case "password":
		a, ok := s.accounts[body.Email]
		if !ok || a.Password != body.Password {
			writeError(w, http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
			return
		}
		if !a.Confirmed {
			writeError(w, http.StatusBadRequest, "email_not_confirmed", "Email not confirmed")
			return
		}
		writeJSON(w, http.StatusOK, s.issueLocked(a))
	case "refresh_token":
		email, ok := s.refresh[body.RefreshToken]
		if !ok {
			writeError(w, http.StatusBadRequest, "refresh_token_not_found", "Invalid Refresh Token: Refresh Token Not Found")
			return
		}
		delete(s.refresh, body.RefreshToken)
		writeJSON(w, http.StatusOK, s.issueLocked(s.accounts[email]))
	default:
		writeError(w, http.StatusBadRequest, "unsupported_grant_type", "unsupported grant type")
	}
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string         `json:"email"`
		Password string         `json:"password"`
		Data     map[string]any `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "Could not parse request body as JSON")
		return
	}
	if len(body.Password) < 6 {
		writeError(w, http.StatusUnprocessableEntity, "weak_password", "Password should be at least 6 characters.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[body.Email]; exists {
		writeError(w, http.StatusUnprocessableEntity, "user_already_exists", "User already registered")
		return
	}
	if body.Data == nil {
		body.Data = map[string]any{}
	}
	a := &account{
		ID:        uuid.NewString(),
		Email:     body.Email,
		Password:  body.Password,
		Metadata:  body.Data,
		Confirmed: s.AutoConfirm,
		OTP:       fmt.Sprintf("%06d", len(s.accounts)+123456),
	}
	s.accounts[a.Email] = a

	if s.AutoConfirm {
		writeJSON(w, http.StatusOK, s.issueLocked(a))
		return
	}
	writeJSON(w, http.StatusOK, userJSON(a))
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type  string `json:"type"`
		Email string `json:"email"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "Could not parse request body as JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[body.Email]
	if !ok || body.Type != "signup" || a.OTP == "" || a.OTP != body.Token {
		writeError(w, http.StatusForbidden, "otp_expired", "Token has expired or is invalid")
		return
	}
	a.Confirmed = true
	a.OTP = ""
	writeJSON(w, http.StatusOK, s.issueLocked(a))
}

func (s *Server) handleResend(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "Could not parse request body as JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[body.Email]
	if !ok || a.Confirmed {
		writeError(w, http.StatusBadRequest, "validation_failed", "Email already confirmed or unknown")
		return
	}
	a.OTP = fmt.Sprintf("%06d", time.Now().UnixNano()%1000000)
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := bearer(r)
	email, ok := s.access[token]
	if !ok {
		writeError(w, http.StatusUnauthorized, "session_not_found", "Session from session_id claim in JWT does not exist")
		return
	}
	delete(s.access, token)
	for rt, e := range s.refresh {
		if e == email {
			delete(s.refresh, rt)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.userLocked(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "bad_jwt", "invalid JWT")
		return
	}
	writeJSON(w, http.StatusOK, userJSON(a))
}

func (s *Server) handlePutUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string         `json:"password"`
		Data     map[string]any `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "Could not parse request body as JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.userLocked(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "bad_jwt", "invalid JWT")
		return
	}
	if body.Password != "" {
		if body.Password == a.Password {
			writeError(w, http.StatusUnprocessableEntity, "same_password", "New password should be different from the old password.")
			return
		}
		a.Password = body.Password
	}
	for k, v := range body.Data {
		a.Metadata[k] = v
	}
	writeJSON(w, http.StatusOK, userJSON(a))
}

func (s *Server) userLocked(r *http.Request) (*account, bool) {
	email, ok := s.access[bearer(r)]
	if !ok {
		return nil, false
	}
	a, ok := s.accounts[email]
	return a, ok
}

// issueLocked mints a session for a. s.mu must be held.
func (s *Server) issueLocked(a *account) map[string]any {
	exp := time.Now().Add(s.TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   a.ID,
		"email": a.Email,
		"exp":   exp.Unix(),
		"jti":   uuid.NewString(),
	})
	signed, err := token.SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	refresh := uuid.NewString()
	s.access[signed] = a.Email
	s.refresh[refresh] = a.Email

	resp := map[string]any{
		"access_token":  signed,
		"token_type":    "bearer",
		"refresh_token": refresh,
		"user":          userJSON(a),
	}
	if !s.OmitExpiry {
		resp["expires_in"] = int64(s.TokenTTL / time.Second)
		resp["expires_at"] = exp.Unix()
	}
	return resp
}

func userJSON(a *account) map[string]any {
	return map[string]any{
		"id":            a.ID,
		"aud":           "authenticated",
		"email":         a.Email,
		"user_metadata": a.Metadata,
	}
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{"code": status, "error_code": code, "msg": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
