package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the auth endpoints under /auth.
func (s *Service) RegisterRoutes(r *mux.Router) {
	sub := r.PathPrefix("/auth").Subrouter()
	sub.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	sub.HandleFunc("/token", s.handleToken).Methods(http.MethodPost)
	sub.Handle("/verify", s.Require(http.HandlerFunc(s.handleVerify))).Methods(http.MethodGet)
	sub.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
}

// Require rejects requests without a valid bearer token.
func (s *Service) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			unauthorized(w, "Not authenticated")
			return
		}
		u, err := s.VerifyToken(token)
		if err != nil {
			clog.FromContext(r.Context()).Debugf("rejected token: %v", err)
			unauthorized(w, "Invalid authentication credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	s.login(w, r, req.Username, req.Password)
}

// handleToken implements the OAuth2 password grant with a form body.
func (s *Service) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if username == "" || password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}
	s.login(w, r, username, password)
}

func (s *Service) login(w http.ResponseWriter, r *http.Request, username, password string) {
	u, err := s.Authenticate(username, password)
	if err != nil {
		clog.FromContext(r.Context()).With("username", username).Infof("login failed")
		unauthorized(w, "Incorrect username or password")
		return
	}
	tok, err := s.IssueToken(u)
	if err != nil {
		clog.FromContext(r.Context()).Errorf("issuing token: %v", err)
		writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

func (s *Service) handleVerify(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, u)
}

func (s *Service) handleLogout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, detail)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
