package middleware

import (
	midsec "SLProject/middleware/security"

	"github.com/gin-gonic/gin"
)

type RouteOpt struct {
	IsAuth bool
}

var authOpts *midsec.Options

// ConfigAuth installs the auth options used by the route wrappers.
// Call once from main() before registering routes.
func ConfigAuth(opts *midsec.Options) {
	authOpts = opts
}

func POST(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.POST(path, midsec.Middleware(authOpts), handler)
	} else {
		r.POST(path, handler)
	}
}

func GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.GET(path, midsec.Middleware(authOpts), handler)
	} else {
		r.GET(path, handler)
	}
}

func PATCH(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.PATCH(path, midsec.Middleware(authOpts), handler)
	} else {
		r.PATCH(path, handler)
	}
}
