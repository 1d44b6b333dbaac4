package controllers

import (
	"net/http"

	"zapdesk/services"

	"github.com/gin-gonic/gin"
)

// POST /api/evolution
func EvolutionCommand(proxy *services.Proxy) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, ok := GetTenant(c)
		if !ok {
			RespondError(c, services.ErrNoTenant.Error(), http.StatusForbidden)
			return
		}

		var cmd services.Command
		if err := c.ShouldBindJSON(&cmd); err != nil {
			RespondError(c, "json inválido", http.StatusBadRequest)
			return
		}

		result, err := proxy.Execute(c.Request.Context(), tenantID, cmd)
		if err != nil {
			RespondServiceError(c, err)
			return
		}
		RespondSuccess(c, result)
	}
}
