package router

import (
	"zapdesk/config"
	"zapdesk/controllers"
	"zapdesk/feed"
	"zapdesk/middleware"
	"zapdesk/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps agrupa o que as rotas precisam; montado no main.
type Deps struct {
	Proxy         *services.Proxy
	Ingestor      *services.Ingestor
	Instances     services.InstanceStore
	Conversations services.ConversationStore
	Verifier      *services.TokenVerifier
	Tenants       *services.TenantResolver
	Hub           *feed.Hub
}

// Initialize wires all routes and middlewares.
// Public routes (gateway webhook) + authenticated routes + validated routes (Authorizer).
func Initialize(r *gin.Engine, cfg config.Configuration, deps Deps) {
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.Cors.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		controllers.RespondSuccess(c, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Webhook do gateway, sem token
	api.POST("/evolution/webhook", Logger(), controllers.EvolutionWebhook(deps.Ingestor))

	// Authenticated routes (token required)
	auth := api.Group("")
	auth.Use(controllers.AuthRequired(deps.Verifier, deps.Tenants))

	// Validated routes (token + company)
	validated := auth.Group("")
	validated.Use(Authorizer())

	validated.GET("/me", Logger(), controllers.Me)
	validated.POST("/evolution", Logger(), controllers.EvolutionCommand(deps.Proxy))
	validated.GET("/instances", Logger(), controllers.GetInstances(deps.Instances))
	validated.PATCH("/conversations/:id/status", Logger(), controllers.SetConversationStatus(deps.Conversations))
	validated.GET("/realtime", controllers.Realtime(deps.Hub, cfg.Cors.AllowedOrigins))

	zap.S().Info("Routes initialized")
}
