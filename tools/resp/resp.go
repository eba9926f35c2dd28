// Package resp is the one place HTTP response envelopes are built, so
// every surface returns the same {status, message, data} shape.
package resp

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"SLProject/logger"
	"SLProject/tools/errs"
)

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "ok",
		"data":    data,
	})
}

func OKMsg(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": message,
		"data":    data,
	})
}

// Fail maps the error's failure kind to an HTTP status. Unrecognized
// errors become 500 and are logged with their stack; coded errors are
// the caller's fault and only surface their message.
func Fail(c *gin.Context, err error) {
	var ce *errs.CodeError
	if !stderrors.As(err, &ce) {
		logger.Errorf("internal error %s %s: %+v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"code":    errs.ServerInternalError,
			"message": "server internal error",
		})
		return
	}
	msg := ce.Msg
	if ce.Detail != "" {
		msg = ce.Detail
	}
	c.JSON(errs.HTTPStatus(ce.Code), gin.H{
		"status":  "error",
		"code":    ce.Code,
		"message": msg,
	})
}

// BadRequest rejects malformed request bodies.
func BadRequest(c *gin.Context, detail string) {
	Fail(c, errs.ErrInvalidArgument.WrapMsg(detail))
}
