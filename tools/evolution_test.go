package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *EvolutionClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewEvolutionClient(srv.URL+"/", "chave", 2*time.Second)
}

func TestCreateInstanceRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/instance/create" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("apikey") != "chave" {
			t.Errorf("apikey header = %q", r.Header.Get("apikey"))
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["instanceName"] != "loja" || body["qrcode"] != true || body["integration"] != "WHATSAPP-BAILEYS" {
			t.Errorf("body = %+v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"instance":{"instanceName":"loja","status":"created"},"hash":"abc"}`))
	})

	p, err := c.CreateInstance(context.Background(), "loja")
	if err != nil {
		t.Fatal(err)
	}
	if p["hash"] != "abc" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestPathEscapesInstanceName(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/instance/connectionState/loja%20centro" {
			t.Errorf("path = %s", r.URL.EscapedPath())
		}
		_, _ = w.Write([]byte(`{"instance":{"state":"open"}}`))
	})
	p, err := c.ConnectionState(context.Background(), "loja centro")
	if err != nil {
		t.Fatal(err)
	}
	if p.State() != "open" {
		t.Fatalf("state = %q", p.State())
	}
}

func TestGatewayErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		notFound bool
	}{
		{"message field", 400, `{"message":"Bad input"}`, "Bad input", false},
		{"nested message list", 404, `{"status":404,"error":"Not Found","response":{"message":["The \"x\" instance does not exist"]}}`, `The "x" instance does not exist`, true},
		{"error only", 500, `{"error":"Internal Server Error"}`, "Internal Server Error", false},
		{"not json", 502, `Bad Gateway`, "Evolution API error: 502 Bad Gateway", false},
		{"embedded error on 200", 200, `{"error":true,"message":"falhou"}`, "falhou", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Logout(context.Background(), "x")
			var gwErr *GatewayError
			if !errors.As(err, &gwErr) {
				t.Fatalf("err = %v, want GatewayError", err)
			}
			if gwErr.Message != tt.wantMsg {
				t.Fatalf("message = %q, want %q", gwErr.Message, tt.wantMsg)
			}
			if gwErr.IsNotFound() != tt.notFound {
				t.Fatalf("IsNotFound = %v", gwErr.IsNotFound())
			}
		})
	}
}

func TestUnreachableGateway(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewEvolutionClient(srv.URL, "chave", time.Second)

	_, err := c.Delete(context.Background(), "x")
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) || gwErr.StatusCode != 0 {
		t.Fatalf("err = %v", err)
	}
}

func TestSendTextAndNonObjectResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.URL.Path != "/message/sendText/loja" || body["number"] != "5511999998888" || body["text"] != "oi" {
			t.Errorf("got %s %+v", r.URL.Path, body)
		}
		_, _ = w.Write([]byte(`[1,2]`))
	})
	p, err := c.SendText(context.Background(), "loja", "5511999998888", "oi")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p["response"]; !ok {
		t.Fatalf("payload = %+v", p)
	}
}

func TestPayloadHelpers(t *testing.T) {
	if !(Payload{"qrcode": map[string]any{"base64": "AAA"}}).HasPairingArtifact() {
		t.Fatal("nested qrcode not detected")
	}
	if !(Payload{"pairingCode": "WZYEH1YY"}).HasPairingArtifact() {
		t.Fatal("pairing code not detected")
	}
	if (Payload{"instance": map[string]any{"state": "open"}}).HasPairingArtifact() {
		t.Fatal("open state is not an artifact")
	}

	base := Payload{"a": 1}
	merged := base.Merge(map[string]any{"b": 2})
	if len(base) != 1 || merged["a"] != 1 || merged["b"] != 2 {
		t.Fatalf("merge = %+v, base = %+v", merged, base)
	}
}
