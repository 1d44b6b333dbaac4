package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func Me(c *gin.Context) {
	userID, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	tenantID, _ := GetTenant(c)
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "tenant_id": tenantID})
}
