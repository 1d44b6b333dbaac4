package services

import (
	"encoding/json"
	"strings"

	"zapdesk/models"
	"zapdesk/tools"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const (
	EventConnectionUpdate = "connection.update"
	EventMessagesUpsert   = "messages.upsert"
	EventMessagesUpdate   = "messages.update"
)

// Event é o corpo do webhook enviado pelo gateway.
type Event struct {
	Event    string `json:"event"`
	Instance string `json:"instance"`
	Data     any    `json:"data"`
}

// Result resume o que um evento produziu; usado em logs e testes.
type Result struct {
	Event    string
	Instance string
	Dropped  bool
	Applied  int
	Skipped  int
	Failed   int
}

// DecodeEvent só falha em JSON sintaticamente inválido. Corpo que não é objeto ou campos
// com tipo inesperado viram um evento vazio, que é descartado com 200.
func DecodeEvent(raw []byte) (Event, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Event{}, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return Event{}, nil
	}
	return Event{
		Event:    scalarString(m["event"]),
		Instance: scalarString(m["instance"]),
		Data:     m["data"],
	}, nil
}

// scalarString aceita string ou número; objetos e listas viram "".
func scalarString(v any) string {
	switch v.(type) {
	case map[string]any, []any, nil:
		return ""
	}
	return cast.ToString(v)
}

type envelope struct {
	Key struct {
		RemoteJid string `mapstructure:"remoteJid"`
		FromMe    bool   `mapstructure:"fromMe"`
		ID        string `mapstructure:"id"`
	} `mapstructure:"key"`
	PushName string         `mapstructure:"pushName"`
	Message  map[string]any `mapstructure:"message"`
}

// Ingestor traduz eventos do gateway em mutações locais. Nunca devolve erro ao gateway.
type Ingestor struct {
	instances     InstanceStore
	conversations ConversationStore
}

func NewIngestor(instances InstanceStore, conversations ConversationStore) *Ingestor {
	return &Ingestor{instances: instances, conversations: conversations}
}

// NormalizeEventType aceita tanto "CONNECTION_UPDATE" quanto "connection.update".
func NormalizeEventType(event string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(event)), "_", ".")
}

func (in *Ingestor) Ingest(ev Event) Result {
	res := Result{Event: NormalizeEventType(ev.Event), Instance: strings.TrimSpace(ev.Instance)}
	if res.Event == "" || res.Instance == "" {
		zap.L().Debug("webhook: event without type or instance, ignoring", zap.String("event", ev.Event))
		res.Dropped = true
		return res
	}

	inst, err := in.instances.FindByName(res.Instance)
	if err != nil {
		if IsNotFound(err) {
			zap.L().Info("webhook: unknown instance, dropping", zap.String("instance", res.Instance), zap.String("event", res.Event))
		} else {
			zap.L().Error("webhook: instance lookup failed", zap.String("instance", res.Instance), zap.Error(err))
		}
		res.Dropped = true
		return res
	}

	switch res.Event {
	case EventConnectionUpdate:
		in.connectionUpdate(inst, ev.Data, &res)
	case EventMessagesUpsert:
		in.messagesUpsert(inst, ev.Data, &res)
	default:
		zap.L().Debug("webhook: event ignored", zap.String("event", res.Event), zap.String("instance", inst.Name))
	}
	return res
}

func (in *Ingestor) connectionUpdate(inst *models.Instance, data any, res *Result) {
	m := cast.ToStringMap(data)
	state := strings.TrimSpace(cast.ToString(m["state"]))
	if state == "" {
		state = strings.TrimSpace(cast.ToString(m["status"]))
	}
	status := models.StatusFromGatewayState(state)

	if err := in.instances.ApplyStatus(inst.ID, "", status); err != nil {
		zap.L().Error("webhook: status update failed",
			zap.String("instance", inst.Name), zap.String("status", status), zap.Error(err))
		res.Failed++
		return
	}
	zap.L().Info("webhook: connection update",
		zap.String("instance", inst.Name), zap.String("state", state), zap.String("status", status))
	res.Applied++
}

// envelopes aceita data.messages, um único envelope ou uma lista direta.
func envelopes(data any) []any {
	if items, ok := data.([]any); ok {
		return items
	}
	m := cast.ToStringMap(data)
	if len(m) == 0 {
		return nil
	}
	if items, ok := m["messages"]; ok {
		return cast.ToSlice(items)
	}
	return []any{m}
}

func (in *Ingestor) messagesUpsert(inst *models.Instance, data any, res *Result) {
	for i, raw := range envelopes(data) {
		applied, err := in.ingestEnvelope(inst, raw)
		switch {
		case err != nil:
			zap.L().Error("webhook: envelope failed",
				zap.String("instance", inst.Name), zap.Int("index", i), zap.Error(err))
			res.Failed++
		case applied:
			res.Applied++
		default:
			res.Skipped++
		}
	}
}

func (in *Ingestor) ingestEnvelope(inst *models.Instance, raw any) (bool, error) {
	var env envelope
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &env,
	})
	if err != nil {
		return false, err
	}
	if err := decoder.Decode(raw); err != nil {
		return false, validation("envelope inválido: %v", err)
	}

	if env.Key.FromMe || len(env.Message) == 0 {
		return false, nil
	}
	phone := tools.PhoneFromJID(env.Key.RemoteJid)
	if phone == "" {
		return false, nil
	}

	content := ParseContent(env.Message)
	if u, ok := content.(UnrecognizedContent); ok {
		zap.L().Info("webhook: unrecognized message type, skipping",
			zap.String("instance", inst.Name), zap.Strings("fields", u.Fields))
		return false, nil
	}

	conv, err := ResolveOrCreate(in.conversations, inst.TenantID, phone, inst.ID)
	if err != nil {
		return false, err
	}
	body := content.Body()
	if _, err := in.conversations.AppendMessage(conv.ID, false, body); err != nil {
		return false, err
	}

	zap.L().Info("webhook: message stored",
		zap.String("instance", inst.Name),
		zap.String("conversation_id", conv.ID),
		zap.String("kind", content.Kind()),
		zap.String("body", preview(body, 50)))
	return true, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
