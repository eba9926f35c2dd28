package security

import (
	"net/http"
	"strings"

	errs "SLProject/tools/errs"
	jwtlib "SLProject/tools/security"

	"github.com/gin-gonic/gin"
)

// Context keys. Downstream handlers read the caller identity from these.
const (
	CtxUserIDKey = "authUserId" // string
	CtxTokenKey  = "authToken"  // string
)

type Options struct {
	HeaderToken               string // default "authorization"
	EnableAuthorizationBearer bool   // default true
	JWT                       jwtlib.Options
}

func DefaultOptions(jwtOpts jwtlib.Options) *Options {
	return &Options{
		HeaderToken:               "authorization",
		EnableAuthorizationBearer: true,
		JWT:                       jwtOpts,
	}
}

// Middleware resolves the authenticated user id from the request token
// and aborts with Unauthenticated when it cannot.
func Middleware(opts *Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c.Request, opts)
		if token == "" {
			abortUnauthenticated(c, "missing token")
			return
		}

		claims, err := jwtlib.Verify(opts.JWT, token)
		if err != nil {
			abortUnauthenticated(c, "invalid token")
			return
		}
		userID, err := claims.Subject()
		if err != nil {
			abortUnauthenticated(c, "token has no subject")
			return
		}

		c.Set(CtxUserIDKey, userID)
		c.Set(CtxTokenKey, token)
		c.Next()
	}
}

// TokenFromRequest extracts the bearer token from the configured header,
// an Authorization: Bearer header, or a ?token= query parameter (the
// websocket handshake path uses the latter).
func TokenFromRequest(r *http.Request, opts *Options) string {
	if token := strings.TrimSpace(r.Header.Get(opts.HeaderToken)); token != "" {
		return token
	}
	if opts.EnableAuthorizationBearer {
		if authz := strings.TrimSpace(r.Header.Get("Authorization")); authz != "" {
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				return strings.TrimSpace(authz[len("bearer "):])
			}
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// UserID returns the authenticated identity set by Middleware.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}

func abortUnauthenticated(c *gin.Context, detail string) {
	e := errs.ErrUnauthenticated.WithDetail(detail)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"status":  "error",
		"code":    e.Code,
		"message": e.Msg,
	})
}
