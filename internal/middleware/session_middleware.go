package middleware

import (
	"context"
	"net/http"
	"strings"

	"smart-reader/internal/session"
	"smart-reader/pkg/jwt"
	"smart-reader/pkg/response"
)

type contextKey string

const UserIDKey contextKey = "userID"

// SessionSource is the device session controller as seen by requests.
type SessionSource interface {
	Await()
	Current() session.Session
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// SessionMiddleware attaches the request session. The session controller
// decides which account the device is signed in to; a bearer token only
// proves the caller is that account. A token for any other account, or any
// token while the device is in guest mode, is rejected so requests never
// reach remote storage without a completed sign-in. No header means guest.
// Requests wait for a running session transition before they touch storage.
func SessionMiddleware(jwtSecret string, source SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var claims *jwt.Claims
			if r.Header.Get("Authorization") != "" {
				token, ok := BearerToken(r)
				if !ok {
					response.Unauthorized(w, "Invalid authorization header format")
					return
				}

				var err error
				claims, err = jwt.ValidateToken(token, jwtSecret)
				if err != nil || claims.TokenType == jwt.TokenTypeRefresh {
					response.Unauthorized(w, "Invalid or expired token")
					return
				}
			}

			source.Await()
			sess := session.NewGuest()
			if claims != nil {
				cur := source.Current()
				if cur.IsGuest() || cur.UserID != claims.UserID {
					response.Unauthorized(w, "Not signed in on this device")
					return
				}
				sess = cur
			}

			reportUser(r.Context(), sess.Key())
			ctx := session.WithSession(r.Context(), sess)
			if !sess.IsGuest() {
				ctx = context.WithValue(ctx, UserIDKey, sess.UserID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects guest requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session.FromContext(r.Context()).IsGuest() {
			response.Unauthorized(w, "Missing authorization header")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetUserID(r *http.Request) string {
	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}
