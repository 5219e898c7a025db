// Package auth identifies the host a request comes from.
package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrUnauthorized = errors.New("unauthorized")

type contextKey string

const HostIDKey contextKey = "hostId"

const devHost = "dev-host"

type Claims struct {
	jwt.RegisteredClaims
	HostID string `json:"hostId"`
}

// Authenticator validates HMAC-signed host tokens. With no secret it trusts
// proxy identity headers and falls back to a development host.
type Authenticator struct {
	secret []byte
}

func New(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Issue signs a token for hostID.
func (a *Authenticator) Issue(hostID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   hostID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		HostID: hostID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Identify returns the host id of r.
func (a *Authenticator) Identify(r *http.Request) (string, error) {
	if len(a.secret) == 0 {
		return headerIdentity(r), nil
	}

	tokenStr := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if tokenStr == "" {
		// browsers cannot set headers on a websocket handshake
		tokenStr = r.URL.Query().Get("token")
	}
	if tokenStr == "" {
		return "", ErrUnauthorized
	}

	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKey
		}
		return a.secret, nil
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, keyFunc)
	if err != nil || !token.Valid {
		return "", ErrUnauthorized
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.HostID == "" {
		return "", ErrUnauthorized
	}
	return claims.HostID, nil
}

func headerIdentity(r *http.Request) string {
	hostID := r.Header.Get("X-Auth-User")

	if hostID == "" {
		hostID = r.Header.Get("X-Forwarded-User")
	}
	if hostID == "" {
		hostID = r.Header.Get("Remote-User")
	}
	if hostID == "" {
		hostID = devHost
		log.Println("Warning: No auth header, using dev-host")
	}
	return hostID
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hostID, err := a.Identify(r)
		if err != nil {
			log.Printf("Authentication failed: %v", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), HostIDKey, hostID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func HostID(r *http.Request) string {
	hostID, ok := r.Context().Value(HostIDKey).(string)
	if !ok {
		return ""
	}
	return hostID
}
