package router

import (
	"net/http"

	"zapdesk/controllers"

	"github.com/gin-gonic/gin"
)

// Authorizer bloqueia rotas do console quando o usuário não tem company resolvida.
func Authorizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := controllers.GetUserLogged(c); !ok {
			controllers.RespondError(c, "unauthorized", http.StatusUnauthorized)
			c.Abort()
			return
		}
		if _, ok := controllers.GetTenant(c); !ok {
			controllers.RespondError(c, "User has no company", http.StatusForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
