package handlers

import (
	"context"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/text/language"

	"pronounce/internal/security"
	"pronounce/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const UserContextKey ContextKey = "user"

// userClaims are the bearer token claims. The subject is the user id.
type userClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Middleware holds dependencies for middleware functions
type Middleware struct {
	jwtSecret []byte
	limiter   *security.RateLimiter
}

// NewMiddleware creates a new middleware instance. A nil limiter disables
// rate limiting.
func NewMiddleware(jwtSecret string, limiter *security.RateLimiter) *Middleware {
	return &Middleware{jwtSecret: []byte(jwtSecret), limiter: limiter}
}

// RequireAuth is middleware that requires a valid bearer token
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			respondWithJSONError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized, "", nil)
			return
		}

		claims, err := m.parseToken(raw)
		if err != nil {
			respondWithJSONError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized, "Rejected bearer token", err)
			return
		}

		user := &service.User{
			ID:        claims.Subject,
			Email:     claims.Email,
			Name:      claims.Name,
			Languages: acceptLanguages(r.Header.Get("Accept-Language")),
		}

		// Add user to context
		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// RateLimit throttles speech-heavy endpoints per user, or per client address
// before authentication
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter == nil {
			next(w, r)
			return
		}

		key := security.GetClientIP(r)
		if user := GetUserFromContext(r.Context()); user != nil {
			key = "user:" + user.ID
		}

		if !m.limiter.Allow(key) {
			retry := int(math.Ceil(m.limiter.RetryAfter(key).Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			respondWithJSONError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please slow down.", "", nil)
			return
		}
		next(w, r)
	}
}

func (m *Middleware) parseToken(raw string) (*userClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	claims := &userClaims{}

	token, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return m.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// acceptLanguages returns the language tags of an Accept-Language
// header, most preferred first
func acceptLanguages(header string) []string {
	if header == "" {
		return nil
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return nil
	}

	langs := make([]string, 0, len(tags))
	for _, tag := range tags {
		langs = append(langs, tag.String())
	}
	return langs
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Call next handler
		next.ServeHTTP(w, r)

		// Log request
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *service.User {
	user, ok := ctx.Value(UserContextKey).(*service.User)
	if !ok {
		return nil
	}
	return user
}
