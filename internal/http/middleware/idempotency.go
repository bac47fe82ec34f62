// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// IdempotencyValidator makes POST /guide/chat safe to retry. A client that
// resends the same Idempotency-Key for the same conversation gets the reply
// that was already produced instead of a second (billed) generation.
//
// Keys are scoped per (user, conversation). The conversation is only known
// after reading the JSON body, so the scope is computed by a ScopeFunc the
// router supplies; it must leave the body readable (gin's ShouldBindBodyWith
// caches it for the handler).
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the client's key.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemScope  = "idem.scope"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// IdempotencyOptions configures header validation. TTL is enforced by the
// lookup.
type IdempotencyOptions struct {
	MaxLen  int            // defaults to 200
	Pattern *regexp.Regexp // defaults to ^[A-Za-z0-9._~\-:]+$
}

// ScopeFunc returns the conversation scope of a request.
type ScopeFunc func(*gin.Context) string

// IdempotencyLookup reports whether a live result exists for
// (userID, scope, key). Lookup errors never block the request.
type IdempotencyLookup func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error)

// GetIdempotencyKey returns the validated key and its scope.
func GetIdempotencyKey(c *gin.Context) (key, scope string, ok bool) {
	key = c.GetString(ctxKeyIdemKey)
	return key, c.GetString(ctxKeyIdemScope), key != ""
}

// IsReplay reports whether a stored result exists for this request.
func IsReplay(c *gin.Context) bool {
	return c.GetBool(ctxKeyIdemReplay)
}

// IdempotencyValidator is a no-op without the header. An invalid key is
// rejected with 400. A valid key is stashed with its scope; when lookup finds
// a stored result the request is marked as a replay and skips rate limiting.
// Serving the replay is left to the handler.
func IdempotencyValidator(opts IdempotencyOptions, scope ScopeFunc, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid " + HeaderIdempotencyKey,
			})
			return
		}

		s := ""
		if scope != nil {
			s = scope(c)
		}
		c.Set(ctxKeyIdemKey, key)
		c.Set(ctxKeyIdemScope, s)

		if lookup != nil {
			found, err := lookup(c.Request.Context(), UserID(c), s, key, time.Now().UTC())
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			}
			if found {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}
