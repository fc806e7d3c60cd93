package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/voucher-workflow/internal/domain/entity"
	"github.com/garyjia/voucher-workflow/pkg/utils"
)

// Identity headers set by the fronting login layer
const (
	HeaderUserName         = "X-User-Name"
	HeaderUserPIN          = "X-User-Pin"
	HeaderUserDesignation  = "X-User-Designation"
	HeaderUserOrganization = "X-User-Organization"
)

const actorKey = "actor"

// identityMiddleware reads the acting user from headers.
// Requests without a valid name and PIN are rejected with 401.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := entity.UserInfo{
			Name:         utils.SanitizeString(c.GetHeader(HeaderUserName)),
			PIN:          utils.SanitizeString(c.GetHeader(HeaderUserPIN)),
			Designation:  utils.SanitizeString(c.GetHeader(HeaderUserDesignation)),
			Organization: utils.SanitizeString(c.GetHeader(HeaderUserOrganization)),
		}

		if err := utils.ValidateName(actor.Name); err != nil {
			abortUnauthorized(c, HeaderUserName+": "+err.Error())
			return
		}
		if err := utils.ValidatePIN(actor.PIN); err != nil {
			abortUnauthorized(c, HeaderUserPIN+": "+err.Error())
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
		Success: false,
		Error:   msg,
	})
}

func actorFrom(c *gin.Context) (entity.UserInfo, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return entity.UserInfo{}, false
	}
	actor, ok := v.(entity.UserInfo)
	return actor, ok
}

// corsMiddleware adds CORS headers for browser-based stage views
func corsMiddleware() gin.HandlerFunc {
	allowHeaders := "Content-Type, " + HeaderUserName + ", " + HeaderUserPIN + ", " +
		HeaderUserDesignation + ", " + HeaderUserOrganization
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", allowHeaders)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
