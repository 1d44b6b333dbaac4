package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"zapdesk/config"
	"zapdesk/db"
	"zapdesk/feed"
	"zapdesk/services"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

func TestInitializeRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	database, err := gorm.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	database.DB().SetMaxOpenConns(1)
	database.LogMode(false)
	defer database.Close()
	if err := db.Migrate(database); err != nil {
		t.Fatal(err)
	}

	var cfg config.Configuration
	cfg.Cors.AllowedOrigins = []string{"*"}
	instances := services.NewInstanceRegistry(database, nil)
	conversations := services.NewConversationRepository(database, nil)

	r := gin.New()
	Initialize(r, cfg, Deps{
		Proxy:         services.NewProxy(nil, instances, conversations),
		Ingestor:      services.NewIngestor(instances, conversations),
		Instances:     instances,
		Conversations: conversations,
		Verifier:      services.NewTokenVerifier("segredo"),
		Tenants:       services.NewTenantResolver(database),
		Hub:           feed.NewHub(),
	})

	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodPost, "/api/evolution/webhook", `{"event":"connection.update","instance":"x"}`, http.StatusOK},
		{http.MethodPost, "/api/evolution", `{"action":"status"}`, http.StatusUnauthorized},
		{http.MethodGet, "/api/instances", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/realtime", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, w.Code, tt.want)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var cfg config.Configuration
	cfg.Cors.AllowedOrigins = []string{"https://console.example.com"}

	r := gin.New()
	Initialize(r, cfg, Deps{})

	req := httptest.NewRequest(http.MethodOptions, "/api/evolution", nil)
	req.Header.Set("Origin", "https://console.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://console.example.com" {
		t.Fatalf("allow origin = %q (code %d)", got, w.Code)
	}
}
