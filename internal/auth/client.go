package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"staybook/internal/domain"
	"staybook/internal/storage"
)

const (
	// SessionKey is where the signed-in session is kept between launches.
	SessionKey = "auth.session"

	sessionSchemaVersion = 1
)

// Client talks to the hosted auth REST API and keeps the current session in
// device storage so a restarted app stays signed in.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	kv      storage.KV
	log     logrus.FieldLogger
	now     func() time.Time

	mu       sync.Mutex
	session  *domain.Session
	restored bool

	// restoreMu is held for the whole storage read so concurrent callers
	// wait for it instead of seeing no session.
	restoreMu sync.Mutex

	lmu       sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock replaces time.Now, for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client for the project at baseURL using the public anon key.
func NewClient(baseURL, anonKey string, kv storage.KV, logger logrus.FieldLogger, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		anonKey:   anonKey,
		http:      &http.Client{Timeout: 15 * time.Second},
		kv:        kv,
		log:       logger.WithField("component", "auth"),
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Provider = (*Client)(nil)

// --- Wire types ---

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	RefreshToken string      `json:"refresh_token"`
	User         domain.User `json:"user"`
}

// signUpResponse is a token response when the project auto-confirms accounts,
// and a bare user object otherwise.
type signUpResponse struct {
	tokenResponse
	ID           string              `json:"id"`
	Email        string              `json:"email"`
	UserMetadata domain.UserMetadata `json:"user_metadata"`
}

// SignIn authenticates with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	log := c.log.WithField("email", email)
	log.Info("Attempting to sign in")

	var tr tokenResponse
	err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", map[string]string{
		"email":    email,
		"password": password,
	}, &tr)
	if err != nil {
		log.WithError(err).Warn("Sign in rejected")
		return nil, err
	}

	session := c.toSession(tr)
	c.setSession(ctx, session, EventSignedIn)
	log.WithField("user_id", session.User.ID).Info("Signed in successfully")
	return session, nil
}

// SignUp creates an account carrying the profile metadata.
func (c *Client) SignUp(ctx context.Context, params SignUpParams) (*SignUpResult, error) {
	log := c.log.WithFields(logrus.Fields{
		"email":    params.Email,
		"is_owner": params.Metadata.IsOwner,
	})
	log.Info("Attempting to sign up")

	var resp signUpResponse
	err := c.do(ctx, http.MethodPost, "/signup", "", map[string]any{
		"email":    params.Email,
		"password": params.Password,
		"data":     params.Metadata,
	}, &resp)
	if err != nil {
		log.WithError(err).Warn("Sign up rejected")
		return nil, err
	}

	if resp.AccessToken != "" {
		session := c.toSession(resp.tokenResponse)
		c.setSession(ctx, session, EventSignedIn)
		log.Info("Signed up and signed in")
		return &SignUpResult{User: session.User, Session: session}, nil
	}

	user := resp.User
	if user.ID == "" {
		user = domain.User{ID: resp.ID, Email: resp.Email, Metadata: resp.UserMetadata}
	}
	log.WithField("user_id", user.ID).Info("Signed up, confirmation code pending")
	return &SignUpResult{User: user}, nil
}

// VerifyOTP confirms a sign-up with the emailed code and signs the user in.
func (c *Client) VerifyOTP(ctx context.Context, email, token string) (*domain.Session, error) {
	log := c.log.WithField("email", email)
	log.Info("Attempting to verify sign-up code")

	var tr tokenResponse
	err := c.do(ctx, http.MethodPost, "/verify", "", map[string]string{
		"type":  "signup",
		"email": email,
		"token": token,
	}, &tr)
	if err != nil {
		log.WithError(err).Warn("Verification rejected")
		return nil, err
	}
	if tr.AccessToken == "" {
		return nil, &APIError{Status: http.StatusOK, Message: "verification returned no session"}
	}

	session := c.toSession(tr)
	c.setSession(ctx, session, EventSignedIn)
	log.Info("Account verified")
	return session, nil
}

// ResendOTP asks the service to send a new sign-up code.
func (c *Client) ResendOTP(ctx context.Context, email string) error {
	err := c.do(ctx, http.MethodPost, "/resend", "", map[string]string{
		"type":  "signup",
		"email": email,
	}, nil)
	if err != nil {
		c.log.WithError(err).WithField("email", email).Warn("Resend rejected")
		return err
	}
	c.log.WithField("email", email).Info("Sign-up code resent")
	return nil
}

// SignOut revokes the session remotely and forgets it locally. A session the
// service no longer knows is forgotten without error.
func (c *Client) SignOut(ctx context.Context) error {
	session, err := c.Session(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	err = c.do(ctx, http.MethodPost, "/logout", session.AccessToken, nil, nil)
	var apiErr *APIError
	if err != nil && !(errors.As(err, &apiErr) && isSessionGone(apiErr.Status)) {
		c.log.WithError(err).Error("Sign out failed")
		return err
	}

	c.setSession(ctx, nil, EventSignedOut)
	c.log.Info("Signed out")
	return nil
}

// Session returns the current session, restoring it from storage on first use
// and refreshing it when the access token has expired.
func (c *Client) Session(ctx context.Context) (*domain.Session, error) {
	c.restore(ctx)

	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return nil, nil
	}
	if !session.Expired(c.now()) {
		return session, nil
	}
	return c.refresh(ctx, session)
}

// User fetches the signed-in user from the service.
func (c *Client) User(ctx context.Context) (*domain.User, error) {
	session, err := c.Session(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoSession
	}

	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/user", session.AccessToken, nil, &user); err != nil {
		c.log.WithError(err).Error("Failed to fetch user")
		return nil, err
	}
	return &user, nil
}

// UpdateUser merges metadata into the user's profile.
func (c *Client) UpdateUser(ctx context.Context, metadata domain.UserMetadata) (*domain.User, error) {
	user, err := c.putUser(ctx, map[string]any{"data": metadata})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	var updated *domain.Session
	if c.session != nil {
		s := *c.session
		s.User = *user
		updated = &s
	}
	c.mu.Unlock()
	if updated != nil {
		c.setSession(ctx, updated, EventUserUpdated)
	}

	c.log.WithField("user_id", user.ID).Info("Profile updated")
	return user, nil
}

// UpdatePassword changes the signed-in user's password.
func (c *Client) UpdatePassword(ctx context.Context, password string) error {
	if _, err := c.putUser(ctx, map[string]any{"password": password}); err != nil {
		return err
	}
	c.log.Info("Password updated")
	return nil
}

func (c *Client) putUser(ctx context.Context, body any) (*domain.User, error) {
	session, err := c.Session(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoSession
	}

	var user domain.User
	if err := c.do(ctx, http.MethodPut, "/user", session.AccessToken, body, &user); err != nil {
		c.log.WithError(err).Error("User update rejected")
		return nil, err
	}
	return &user, nil
}

// Subscribe registers l for session changes.
func (c *Client) Subscribe(l Listener) func() {
	c.lmu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.lmu.Lock()
			delete(c.listeners, id)
			c.lmu.Unlock()
		})
	}
}

// --- Session bookkeeping ---

func (c *Client) refresh(ctx context.Context, expired *domain.Session) (*domain.Session, error) {
	log := c.log.WithField("user_id", expired.User.ID)
	if expired.RefreshToken == "" {
		log.Info("Session expired without refresh token")
		c.setSession(ctx, nil, EventSignedOut)
		return nil, nil
	}

	log.Info("Attempting to refresh session")
	var tr tokenResponse
	err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", map[string]string{
		"refresh_token": expired.RefreshToken,
	}, &tr)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
		log.WithError(err).Warn("Refresh rejected, signing out")
		c.setSession(ctx, nil, EventSignedOut)
		return nil, nil
	}
	if err != nil {
		log.WithError(err).Error("Failed to refresh session")
		return nil, err
	}

	session := c.toSession(tr)
	c.setSession(ctx, session, EventTokenRefreshed)
	log.Info("Session refreshed")
	return session, nil
}

// restore loads the persisted session once per process.
func (c *Client) restore(ctx context.Context) {
	c.restoreMu.Lock()
	defer c.restoreMu.Unlock()

	c.mu.Lock()
	done := c.restored
	c.mu.Unlock()
	if done {
		return
	}

	session := c.readPersisted(ctx)

	c.mu.Lock()
	// A sign-in or sign-out during the read wins over the stored value.
	if !c.restored && session != nil {
		c.session = session
	}
	c.restored = true
	c.mu.Unlock()

	if session != nil {
		c.log.WithField("user_id", session.User.ID).Info("Session restored from storage")
	}
}

func (c *Client) readPersisted(ctx context.Context) *domain.Session {
	blob, found, err := c.kv.Get(ctx, SessionKey)
	if err != nil {
		c.log.WithError(err).Error("Failed to read persisted session")
		return nil
	}
	if !found {
		return nil
	}

	var session domain.Session
	if _, err := storage.Decode(blob, sessionSchemaVersion, &session); err != nil || session.AccessToken == "" {
		c.log.WithError(err).Warn("Discarding unreadable persisted session")
		return nil
	}
	return &session
}

// setSession replaces the current session, mirrors it to storage and notifies listeners.
func (c *Client) setSession(ctx context.Context, session *domain.Session, event Event) {
	c.mu.Lock()
	c.session = session
	c.restored = true
	c.mu.Unlock()

	if session == nil {
		if err := c.kv.Delete(ctx, SessionKey); err != nil {
			c.log.WithError(err).Error("Failed to forget persisted session")
		}
	} else if blob, err := storage.Encode(sessionSchemaVersion, session); err != nil {
		c.log.WithError(err).Error("Failed to encode session")
	} else if err := c.kv.Set(ctx, SessionKey, blob); err != nil {
		c.log.WithError(err).Error("Failed to persist session")
	}

	c.emit(event, session)
}

func (c *Client) emit(event Event, session *domain.Session) {
	c.lmu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.lmu.Unlock()

	c.log.WithField("event", event).Debug("Dispatching auth event")
	for _, l := range listeners {
		l(event, session)
	}
}

// toSession fills gaps in a token response from the access token claims.
func (c *Client) toSession(tr tokenResponse) *domain.Session {
	session := &domain.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		User:         tr.User,
	}
	switch {
	case tr.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(tr.ExpiresAt, 0)
	case tr.ExpiresIn > 0:
		session.ExpiresAt = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	if session.ExpiresAt.IsZero() || session.User.ID == "" {
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(tr.AccessToken, claims); err != nil {
			c.log.WithError(err).Warn("Access token claims unreadable")
			return session
		}
		if session.ExpiresAt.IsZero() {
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				session.ExpiresAt = exp.Time
			}
		}
		if session.User.ID == "" {
			session.User.ID, _ = claims.GetSubject()
			if email, ok := claims["email"].(string); ok && session.User.Email == "" {
				session.User.Email = email
			}
		}
	}
	return session
}

// --- HTTP plumbing ---

// do performs a JSON request against the auth API. token, when empty, falls
// back to the anon key.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/auth/v1"+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read auth response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}
	return nil
}

// decodeAPIError understands the several error shapes the service answers with.
func decodeAPIError(status int, data []byte) error {
	apiErr := &APIError{Status: status}

	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
		return apiErr
	}

	for _, field := range []string{"msg", "message", "error_description", "error"} {
		if s, ok := body[field].(string); ok && s != "" {
			apiErr.Message = s
			break
		}
	}
	for _, field := range []string{"error_code", "code", "error"} {
		switch v := body[field].(type) {
		case string:
			apiErr.Code = v
		case float64:
			apiErr.Code = fmt.Sprintf("%d", int(v))
		default:
			continue
		}
		break
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func isSessionGone(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusNotFound
}
