package feed

import (
	"sync"

	"go.uber.org/zap"
)

const subscriberBuffer = 64

// Filter restringe uma assinatura. Campos vazios não filtram.
type Filter struct {
	Table          string
	Type           ChangeType
	ConversationID string
}

func (f Filter) match(ch Change) bool {
	if f.Table != "" && f.Table != ch.Table {
		return false
	}
	if f.Type != "" && f.Type != ch.Type {
		return false
	}
	if f.ConversationID != "" && f.ConversationID != ch.ConversationID {
		return false
	}
	return true
}

type subscriber struct {
	tenantID string
	filter   Filter
	ch       chan Change
}

// Hub faz fan-out em memória das mudanças para assinantes de um tenant.
// Assinante lento é desconectado: o canal é fechado e ele deve se reinscrever.
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscriber
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*subscriber)}
}

type Subscription struct {
	C    <-chan Change
	id   uint64
	hub  *Hub
	once sync.Once
}

func (h *Hub) Subscribe(tenantID string, filter Filter) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	s := &subscriber{tenantID: tenantID, filter: filter, ch: make(chan Change, subscriberBuffer)}
	h.subs[h.nextID] = s
	return &Subscription{C: s.ch, id: h.nextID, hub: h}
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s.id)
	})
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(s.ch)
	}
}

func (h *Hub) Notify(ch Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, s := range h.subs {
		if s.tenantID != ch.TenantID || !s.filter.match(ch) {
			continue
		}
		select {
		case s.ch <- ch:
		default:
			zap.L().Warn("feed: dropping slow subscriber", zap.Uint64("subscriber", id), zap.String("tenant_id", s.tenantID))
			delete(h.subs, id)
			close(s.ch)
		}
	}
}

// Len devolve o número de assinantes ativos.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
