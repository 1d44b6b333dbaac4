package controllers

import (
	"net/http"
	"strings"

	"zapdesk/services"

	"github.com/gin-gonic/gin"
)

type conversationStatusInput struct {
	Status string `json:"status"`
}

// PATCH /api/conversations/:id/status
func SetConversationStatus(conversations services.ConversationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, ok := GetTenant(c)
		if !ok {
			RespondError(c, services.ErrNoTenant.Error(), http.StatusForbidden)
			return
		}
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			RespondError(c, "id é obrigatório", http.StatusBadRequest)
			return
		}

		var in conversationStatusInput
		if err := c.ShouldBindJSON(&in); err != nil {
			RespondError(c, "json inválido", http.StatusBadRequest)
			return
		}

		conv, err := conversations.SetStatus(tenantID, id, strings.ToLower(strings.TrimSpace(in.Status)))
		if err != nil {
			RespondServiceError(c, err)
			return
		}
		RespondSuccess(c, gin.H{"conversation": conv})
	}
}
