package middlewares

import (
	"context"
	"net/http"
	"strings"

	"bitbucket.org/consolelogwin/veritas_backend/appctx"
	"bitbucket.org/consolelogwin/veritas_backend/utils"
	"github.com/gin-gonic/gin"
)

type authString string

const authKey authString = "auth"

// AuthMiddleware parses the bearer token when present and attaches the
// claims to the request context. Requests without a token pass through;
// RequireAuth gates the routes that need a caller.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		validate, err := utils.JwtValidate(token)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		customClaim, _ := validate.Claims.(*utils.JwtCustomClaim)

		ctx := context.WithValue(c.Request.Context(), authKey, customClaim)
		ctx = appctx.Set(ctx, appctx.ContextKeyUserId, customClaim.ID)
		ctx = appctx.Set(ctx, appctx.ContextKeyUserName, customClaim.Name)
		ctx = appctx.Set(ctx, appctx.ContextKeyRole, customClaim.Role)
		ctx = appctx.Set(ctx, appctx.ContextKeyEntityAccess, customClaim.EntityAccess)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAuth rejects requests that carry no validated claims.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CtxValue(c.Request.Context()) == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func CtxValue(ctx context.Context) *utils.JwtCustomClaim {
	raw, _ := ctx.Value(authKey).(*utils.JwtCustomClaim)
	return raw
}

// bearerToken pulls the token from the Authorization header, or from the
// "token" query parameter for websocket upgrades where headers are awkward.
func bearerToken(c *gin.Context) string {
	auth := c.Request.Header.Get("Authorization")
	if auth != "" {
		bearer := "Bearer "
		if strings.HasPrefix(auth, bearer) {
			return auth[len(bearer):]
		}
		return auth
	}
	return c.Query("token")
}
