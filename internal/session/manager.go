package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-meanhost/pkg/config"
)

// ContextKey is the gin context key holding the request's *Session
const ContextKey = "session"

// Manager binds a signed session cookie to records in a Store.
type Manager struct {
	store  Store
	codec  *securecookie.SecureCookie
	cfg    config.SessionConfig
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewManager creates a session manager. The cookie carries only the session
// ID, signed with secret.
func NewManager(store Store, secret string, cfg config.SessionConfig, logger *zap.Logger) *Manager {
	ttl := time.Duration(cfg.TTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "connect.sid"
	}

	codec := securecookie.New([]byte(secret), nil)
	codec.MaxAge(int(ttl.Seconds()))

	return &Manager{
		store:  store,
		codec:  codec,
		cfg:    cfg,
		ttl:    ttl,
		logger: logger.Named("session"),
		now:    time.Now,
	}
}

// Store returns the backing store
func (m *Manager) Store() Store {
	return m.store
}

// Codec returns the cookie codec, shared with the cookie parser so that
// signed cookies are verified with the same secret.
func (m *Manager) Codec() securecookie.Codec {
	return m.codec
}

// CookieName returns the session cookie name
func (m *Manager) CookieName() string {
	return m.cfg.CookieName
}

// Session is the request-scoped view of a session record.
type Session struct {
	data       *Data
	isNew      bool
	modified   bool
	destroyed  bool
	hadCookie  bool
	previousID string
	ttl        time.Duration
	now        func() time.Time
}

// From returns the request's session, or nil when the session middleware
// is not installed.
func From(c *gin.Context) *Session {
	if v, ok := c.Get(ContextKey); ok {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	return nil
}

func (s *Session) ID() string     { return s.data.ID }
func (s *Session) UserID() string { return s.data.UserID }
func (s *Session) IsNew() bool    { return s.isNew }

// ExpiresAt returns the current expiry of the record
func (s *Session) ExpiresAt() time.Time { return s.data.ExpiresAt }

// SetUserID binds the session to a user; an empty ID unbinds it.
func (s *Session) SetUserID(id string) {
	if s.data.UserID != id {
		s.data.UserID = id
		s.modified = true
	}
}

func (s *Session) Get(key string) (string, bool) {
	v, ok := s.data.Values[key]
	return v, ok
}

func (s *Session) Set(key, value string) {
	if s.data.Values == nil {
		s.data.Values = make(map[string]string)
	}
	s.data.Values[key] = value
	s.modified = true
}

func (s *Session) Delete(key string) {
	if _, ok := s.data.Values[key]; ok {
		delete(s.data.Values, key)
		s.modified = true
	}
}

// Regenerate replaces the session with a fresh empty one under a new ID.
// The old record is deleted when the request completes.
func (s *Session) Regenerate() {
	if !s.isNew && s.previousID == "" {
		s.previousID = s.data.ID
	}
	now := s.now()
	s.data = &Data{
		ID:        newID(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.isNew = true
	s.modified = true
	s.destroyed = false
}

// Destroy removes the session and clears the cookie when the request completes.
func (s *Session) Destroy() {
	s.destroyed = true
}

func newID() string {
	return uuid.NewString()
}

// Middleware loads the session named by the request cookie, or starts a new
// one, and persists it after the handler chain returns. The cookie is set
// lazily just before the response headers are written.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := m.load(c)
		if err != nil {
			_ = c.Error(fmt.Errorf("failed to load session: %w", err))
			c.Abort()
			return
		}
		c.Set(ContextKey, sess)

		cw := &cookieWriter{ResponseWriter: c.Writer, before: func(w http.ResponseWriter) {
			m.writeCookie(w, sess)
		}}
		c.Writer = cw

		c.Next()

		// a handler that only set a status would otherwise have its header
		// flushed by gin past the wrapper
		if !c.Writer.Written() && len(c.Errors) == 0 && !c.IsAborted() {
			cw.WriteHeaderNow()
		}

		m.persist(c.Request.Context(), sess)
	}
}

func (m *Manager) load(c *gin.Context) (*Session, error) {
	raw, err := c.Cookie(m.cfg.CookieName)
	hadCookie := err == nil && raw != ""
	if hadCookie {
		var id string
		if err := m.codec.Decode(m.cfg.CookieName, raw, &id); err != nil {
			m.logger.Debug("Ignoring invalid session cookie", zap.Error(err))
		} else {
			data, err := m.store.Get(c.Request.Context(), id)
			switch {
			case err == nil:
				return &Session{data: data, hadCookie: true, ttl: m.ttl, now: m.now}, nil
			case !errors.Is(err, ErrSessionNotFound):
				return nil, err
			}
		}
	}

	now := m.now()
	return &Session{
		data: &Data{
			ID:        newID(),
			CreatedAt: now,
			ExpiresAt: now.Add(m.ttl),
		},
		isNew:     true,
		hadCookie: hadCookie,
		ttl:       m.ttl,
		now:       m.now,
	}, nil
}

func (m *Manager) shouldSave(s *Session) bool {
	if s.isNew {
		return m.cfg.SaveUninitialized || s.modified
	}
	return m.cfg.Resave || s.modified
}

func (m *Manager) persist(ctx context.Context, s *Session) {
	if s.previousID != "" {
		if err := m.store.Delete(ctx, s.previousID); err != nil {
			m.logger.Warn("Failed to delete regenerated session", zap.Error(err))
		}
	}

	if s.destroyed {
		if !s.isNew {
			if err := m.store.Delete(ctx, s.data.ID); err != nil {
				m.logger.Warn("Failed to destroy session", zap.Error(err))
			}
		}
		return
	}

	if !m.shouldSave(s) {
		return
	}

	var err error
	if s.isNew {
		err = m.store.Put(ctx, s.data)
	} else {
		if m.cfg.Resave {
			s.data.ExpiresAt = m.now().Add(m.ttl)
		}
		err = m.store.Update(ctx, s.data)
		if errors.Is(err, ErrSessionNotFound) {
			err = m.store.Put(ctx, s.data)
		}
	}
	if err != nil {
		m.logger.Error("Failed to save session", zap.String("session_id", s.data.ID), zap.Error(err))
	}
}

func (m *Manager) writeCookie(w http.ResponseWriter, s *Session) {
	cookie := &http.Cookie{
		Name:     m.cfg.CookieName,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}

	if s.destroyed {
		if !s.hadCookie {
			return
		}
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
		return
	}

	if !m.shouldSave(s) {
		return
	}
	// existing sessions only need the cookie again when their expiry slides
	if !s.isNew && !m.cfg.Resave {
		return
	}

	value, err := m.codec.Encode(m.cfg.CookieName, s.data.ID)
	if err != nil {
		m.logger.Error("Failed to encode session cookie", zap.Error(err))
		return
	}
	cookie.Value = value
	cookie.MaxAge = int(m.ttl.Seconds())
	http.SetCookie(w, cookie)
}

// cookieWriter runs before once, just before the header is flushed.
type cookieWriter struct {
	gin.ResponseWriter
	before func(http.ResponseWriter)
	done   bool
}

func (w *cookieWriter) flushCookie() {
	if w.done || w.ResponseWriter.Written() {
		return
	}
	w.done = true
	w.before(w.ResponseWriter)
}

func (w *cookieWriter) WriteHeaderNow() {
	w.flushCookie()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *cookieWriter) Write(data []byte) (int, error) {
	w.flushCookie()
	return w.ResponseWriter.Write(data)
}

func (w *cookieWriter) WriteString(s string) (int, error) {
	w.flushCookie()
	return w.ResponseWriter.WriteString(s)
}

func (w *cookieWriter) Flush() {
	w.flushCookie()
	w.ResponseWriter.Flush()
}
