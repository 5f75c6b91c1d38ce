package server

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// authorizeAdmin checks the request's bearer token against the
// configured admin token hash. An empty hash disables the privileged
// endpoints entirely.
func (s *Server) authorizeAdmin(r *http.Request) bool {
	hash := s.cfg.Admin.TokenHash
	if hash == "" {
		return false
	}

	token := bearerToken(r)
	if token == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}

// bearerToken extracts the token from an "Authorization: Bearer ..."
// header, or returns an empty string.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
