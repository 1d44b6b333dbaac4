package controllers

import (
	"net/http"

	"zapdesk/services"

	"github.com/gin-gonic/gin"
)

// GET /api/instances
func GetInstances(instances services.InstanceStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, ok := GetTenant(c)
		if !ok {
			RespondError(c, services.ErrNoTenant.Error(), http.StatusForbidden)
			return
		}
		list, err := instances.ListByTenant(tenantID)
		if err != nil {
			RespondServiceError(c, err)
			return
		}
		RespondSuccess(c, gin.H{"instances": list})
	}
}
