package controllers

import (
	"net/http"

	"zapdesk/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// POST /api/evolution/webhook
// Sem autenticação: o acesso é restrito na rede ao gateway. Só JSON ilegível gera erro,
// qualquer outra situação responde 200 para o gateway não reenviar.
func EvolutionWebhook(ingestor *services.Ingestor) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.GetRawData()
		if err != nil {
			RespondError(c, "failed to read body", http.StatusInternalServerError)
			return
		}

		ev, err := services.DecodeEvent(raw)
		if err != nil {
			zap.L().Warn("webhook: invalid json", zap.Error(err), zap.Int("size", len(raw)))
			RespondError(c, "invalid json", http.StatusInternalServerError)
			return
		}

		res := ingestor.Ingest(ev)
		zap.L().Debug("webhook: processed",
			zap.String("event", res.Event),
			zap.String("instance", res.Instance),
			zap.Bool("dropped", res.Dropped),
			zap.Int("applied", res.Applied),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed))

		RespondSuccess(c, gin.H{"received": true})
	}
}
