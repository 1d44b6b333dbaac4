package services

import (
	"context"
	"sync"
	"testing"

	"zapdesk/db"
	"zapdesk/feed"
	"zapdesk/tools"

	"github.com/jinzhu/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// uma conexão só, senão cada conexão enxerga um :memory: diferente
	database.DB().SetMaxOpenConns(1)
	database.LogMode(false)
	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

type recorder struct {
	mu      sync.Mutex
	changes []feed.Change
}

func (r *recorder) Notify(ch feed.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ch)
}

func (r *recorder) count(table string, t feed.ChangeType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ch := range r.changes {
		if ch.Table == table && ch.Type == t {
			n++
		}
	}
	return n
}

type gatewayCall struct {
	Method string
	Name   string
	To     string
	Text   string
}

// fakeGateway responde com o payload/erro configurado por método e registra as chamadas.
type fakeGateway struct {
	mu        sync.Mutex
	calls     []gatewayCall
	responses map[string]tools.Payload
	errs      map[string]error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{responses: map[string]tools.Payload{}, errs: map[string]error{}}
}

func (g *fakeGateway) respond(method string, p tools.Payload) { g.responses[method] = p }
func (g *fakeGateway) fail(method string, err error)          { g.errs[method] = err }

func (g *fakeGateway) call(c gatewayCall) (tools.Payload, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, c)
	if err := g.errs[c.Method]; err != nil {
		return nil, err
	}
	if p, ok := g.responses[c.Method]; ok {
		return p, nil
	}
	return tools.Payload{}, nil
}

func (g *fakeGateway) called(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (g *fakeGateway) CreateInstance(_ context.Context, name string) (tools.Payload, error) {
	return g.call(gatewayCall{Method: "create", Name: name})
}

func (g *fakeGateway) Connect(_ context.Context, name string) (tools.Payload, error) {
	return g.call(gatewayCall{Method: "connect", Name: name})
}

func (g *fakeGateway) ConnectionState(_ context.Context, name string) (tools.Payload, error) {
	return g.call(gatewayCall{Method: "state", Name: name})
}

func (g *fakeGateway) Logout(_ context.Context, name string) (tools.Payload, error) {
	return g.call(gatewayCall{Method: "logout", Name: name})
}

func (g *fakeGateway) Delete(_ context.Context, name string) (tools.Payload, error) {
	return g.call(gatewayCall{Method: "delete", Name: name})
}

func (g *fakeGateway) SendText(_ context.Context, name, to, text string) (tools.Payload, error) {
	return g.call(gatewayCall{Method: "send", Name: name, To: to, Text: text})
}
