package http

import (
	"net/http"
	"strings"
	"time"

	"wagebook/internal/auth"
	"wagebook/internal/log"
)

// viewer admits any signed-in role.
func (s *Server) viewer(h http.HandlerFunc) http.Handler {
	return s.requireSession(false, h)
}

// admin admits only sessions that may write.
func (s *Server) admin(h http.HandlerFunc) http.Handler {
	return s.requireSession(true, h)
}

func (s *Server) requireSession(write bool, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.auth.Parse(sessionToken(r))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "login required"})
			return
		}
		if write && !sess.CanWrite() {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Write refused for role",
				log.FieldRole, sess.Role, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
			writeJSON(w, http.StatusForbidden, errorBody{Error: "admin role required"})
			return
		}
		ctx := auth.NewContext(r.Context(), sess)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldRole, sess.Role))
		next(w, r.WithContext(ctx))
	})
}

// sessionToken reads the session cookie, or a bearer token for API
// clients.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(auth.CookieName); err == nil {
		return c.Value
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

type loginRequest struct {
	Secret string `json:"secret"`
}

type loginResponse struct {
	Role      auth.Role `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeRequest(r, &req, func(get func(string) string) {
		req.Secret = get("secret")
	}); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	sess, err := s.auth.Login(req.Secret)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Login failed",
			log.FieldOperation, log.OpLogin, log.FieldClientIP, s.detector.ClientIP(r))
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid secret"})
		return
	}
	token, err := s.auth.Sign(sess)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.InfoContext(r.Context(), "Login succeeded",
		log.FieldOperation, log.OpLogin, log.FieldRole, sess.Role)
	writeJSON(w, http.StatusOK, loginResponse{Role: sess.Role, Token: token, ExpiresAt: sess.ExpiresAt})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
