package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Payload é o corpo JSON devolvido pelo gateway, repassado sem alteração ao cliente.
type Payload map[string]any

// GatewayError indica que o gateway rejeitou ou não completou a chamada.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return e.Message
}

// IsNotFound reconhece "instância não existe" tanto pelo status quanto pela mensagem.
func (e *GatewayError) IsNotFound() bool {
	if e.StatusCode == http.StatusNotFound {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "does not exist") || strings.Contains(msg, "not found")
}

// EvolutionClient is a thin client for the Evolution API instance and message endpoints.
// One HTTP request per call, no retries.
type EvolutionClient struct {
	BaseURL    string
	ApiKey     string
	HTTPClient *http.Client
}

func NewEvolutionClient(baseURL, apiKey string, timeout time.Duration) *EvolutionClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &EvolutionClient{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		ApiKey:     strings.TrimSpace(apiKey),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (c *EvolutionClient) do(ctx context.Context, method, path string, body any) (Payload, error) {
	endpoint := c.BaseURL + path

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.ApiKey)

	zap.L().Debug("evolution api call", zap.String("method", method), zap.String("url", endpoint))

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &GatewayError{Message: fmt.Sprintf("Evolution API unreachable: %v", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("Evolution API read error: %v", err)}
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	payload, decodeErr := decodePayload(raw)
	if decodeErr != nil {
		if ok {
			return nil, &GatewayError{StatusCode: resp.StatusCode, Message: "Evolution API returned an invalid response"}
		}
		return nil, &GatewayError{StatusCode: resp.StatusCode, Message: fallbackMessage(resp.StatusCode, string(raw))}
	}

	zap.L().Debug("evolution api response", zap.Int("status", resp.StatusCode), zap.ByteString("body", raw))

	if !ok || hasEmbeddedError(payload) {
		msg := errorMessage(payload)
		if msg == "" {
			msg = fallbackMessage(resp.StatusCode, "")
		}
		return nil, &GatewayError{StatusCode: resp.StatusCode, Message: msg}
	}
	return payload, nil
}

func decodePayload(raw []byte) (Payload, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Payload{}, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	if m, ok := v.(map[string]any); ok {
		return Payload(m), nil
	}
	return Payload{"response": v}, nil
}

func hasEmbeddedError(p Payload) bool {
	switch e := p["error"].(type) {
	case string:
		return strings.TrimSpace(e) != ""
	case bool:
		return e
	}
	return false
}

// errorMessage segue a ordem message -> response.message -> error.
func errorMessage(p Payload) string {
	if msg := strings.TrimSpace(cast.ToString(p["message"])); msg != "" {
		return msg
	}
	if resp, ok := p["response"].(map[string]any); ok {
		switch m := resp["message"].(type) {
		case string:
			if strings.TrimSpace(m) != "" {
				return m
			}
		case []any:
			parts := make([]string, 0, len(m))
			for _, item := range m {
				if s := strings.TrimSpace(cast.ToString(item)); s != "" {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, "; ")
			}
		}
	}
	if e, ok := p["error"].(string); ok {
		return strings.TrimSpace(e)
	}
	return ""
}

func fallbackMessage(status int, body string) string {
	body = strings.TrimSpace(body)
	if body != "" && len(body) <= 200 {
		return fmt.Sprintf("Evolution API error: %d %s", status, body)
	}
	return fmt.Sprintf("Evolution API error: %d", status)
}

func instancePath(prefix, name string) string {
	return prefix + url.PathEscape(name)
}

// CreateInstance creates a Baileys instance with QR pairing enabled.
func (c *EvolutionClient) CreateInstance(ctx context.Context, name string) (Payload, error) {
	return c.do(ctx, http.MethodPost, "/instance/create", map[string]any{
		"instanceName": name,
		"qrcode":       true,
		"integration":  "WHATSAPP-BAILEYS",
	})
}

// Connect returns either a pairing artifact (base64 QR / code) or the already-open state.
func (c *EvolutionClient) Connect(ctx context.Context, name string) (Payload, error) {
	return c.do(ctx, http.MethodGet, instancePath("/instance/connect/", name), nil)
}

func (c *EvolutionClient) ConnectionState(ctx context.Context, name string) (Payload, error) {
	return c.do(ctx, http.MethodGet, instancePath("/instance/connectionState/", name), nil)
}

func (c *EvolutionClient) Logout(ctx context.Context, name string) (Payload, error) {
	return c.do(ctx, http.MethodDelete, instancePath("/instance/logout/", name), nil)
}

func (c *EvolutionClient) Delete(ctx context.Context, name string) (Payload, error) {
	return c.do(ctx, http.MethodDelete, instancePath("/instance/delete/", name), nil)
}

// SendText envia texto para um número já normalizado (apenas dígitos).
func (c *EvolutionClient) SendText(ctx context.Context, name string, to string, text string) (Payload, error) {
	return c.do(ctx, http.MethodPost, instancePath("/message/sendText/", name), map[string]any{
		"number": to,
		"text":   text,
	})
}

// State lê o token de estado: "state" no topo ou dentro de "instance".
func (p Payload) State() string {
	if s := strings.TrimSpace(cast.ToString(p["state"])); s != "" {
		return s
	}
	if inst, ok := p["instance"].(map[string]any); ok {
		return strings.TrimSpace(cast.ToString(inst["state"]))
	}
	return ""
}

// HasPairingArtifact diz se a resposta do connect traz QR/código de pareamento.
func (p Payload) HasPairingArtifact() bool {
	for _, k := range []string{"base64", "code", "pairingCode"} {
		if strings.TrimSpace(cast.ToString(p[k])) != "" {
			return true
		}
	}
	if qr, ok := p["qrcode"].(map[string]any); ok {
		return strings.TrimSpace(cast.ToString(qr["base64"])) != "" || strings.TrimSpace(cast.ToString(qr["code"])) != ""
	}
	return false
}

// Merge devolve uma cópia do payload com os campos locais sobrepostos.
func (p Payload) Merge(fields map[string]any) Payload {
	out := make(Payload, len(p)+len(fields))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}
