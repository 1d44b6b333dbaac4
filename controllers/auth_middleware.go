package controllers

import (
	"net/http"
	"strings"

	"zapdesk/services"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserKey   = "auth_user_id"
	ctxTenantKey = "auth_tenant_id"
)

// AuthRequired valida o Bearer token e resolve o tenant do usuário.
// O websocket do navegador não envia header, então ?access_token= também é aceito.
func AuthRequired(verifier *services.TokenVerifier, resolver *services.TenantResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			RespondError(c, services.ErrUnauthorized.Error(), http.StatusUnauthorized)
			c.Abort()
			return
		}
		userID, err := verifier.Verify(token)
		if err != nil {
			RespondError(c, services.ErrUnauthorized.Error(), http.StatusUnauthorized)
			c.Abort()
			return
		}

		tenantID, err := resolver.Resolve(userID)
		if err != nil {
			RespondServiceError(c, err)
			c.Abort()
			return
		}

		c.Set(ctxUserKey, userID)
		c.Set(ctxTenantKey, tenantID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > len("bearer ") && strings.EqualFold(h[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(h[len("bearer "):])
	}
	return strings.TrimSpace(c.Query("access_token"))
}

// GetUserLogged devolve o usuário autenticado por AuthRequired.
func GetUserLogged(c *gin.Context) (string, bool) {
	v := c.GetString(ctxUserKey)
	return v, v != ""
}

// GetTenant devolve o tenant resolvido por AuthRequired.
func GetTenant(c *gin.Context) (string, bool) {
	v := c.GetString(ctxTenantKey)
	return v, v != ""
}
