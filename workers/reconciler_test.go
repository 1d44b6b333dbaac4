package workers

import (
	"context"
	"sync"
	"testing"

	"zapdesk/db"
	"zapdesk/models"
	"zapdesk/services"
	"zapdesk/tools"

	"github.com/jinzhu/gorm"
)

type stateSource struct {
	mu     sync.Mutex
	states map[string]string
	errs   map[string]error
	calls  int
}

func (s *stateSource) ConnectionState(_ context.Context, name string) (tools.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.errs[name]; err != nil {
		return nil, err
	}
	return tools.Payload{"instance": map[string]any{"instanceName": name, "state": s.states[name]}}, nil
}

func newRegistry(t *testing.T) *services.InstanceRegistry {
	t.Helper()
	database, err := gorm.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	database.DB().SetMaxOpenConns(1)
	database.LogMode(false)
	if err := db.Migrate(database); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	return services.NewInstanceRegistry(database, nil)
}

func TestReconcilerConverges(t *testing.T) {
	reg := newRegistry(t)
	open, _ := reg.Create("t1", "aberta")
	gone, _ := reg.Create("t1", "sumiu")
	broken, _ := reg.Create("t2", "quebrada")
	for _, inst := range []*models.Instance{gone, broken} {
		if err := reg.ApplyStatus(inst.ID, "", models.INSTANCE_STATUS_CONNECTED); err != nil {
			t.Fatal(err)
		}
	}

	src := &stateSource{
		states: map[string]string{"aberta": "open"},
		errs: map[string]error{
			"sumiu":    &tools.GatewayError{StatusCode: 404, Message: "instance does not exist"},
			"quebrada": &tools.GatewayError{StatusCode: 500, Message: "boom"},
		},
	}

	checked, err := NewReconciler(src, reg, 2).RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if checked != 2 || src.calls != 3 {
		t.Fatalf("checked = %d, calls = %d", checked, src.calls)
	}

	want := map[string]string{
		open.ID:   models.INSTANCE_STATUS_CONNECTED,
		gone.ID:   models.INSTANCE_STATUS_DISCONNECTED,
		broken.ID: models.INSTANCE_STATUS_CONNECTED, // erro transitório não mexe no cache
	}
	all, _ := reg.List()
	for _, inst := range all {
		if inst.Status != want[inst.ID] {
			t.Errorf("%s: status = %s, want %s", inst.Name, inst.Status, want[inst.ID])
		}
	}
}

func TestReconcilerStartRejectsBadSchedule(t *testing.T) {
	r := NewReconciler(&stateSource{}, newRegistry(t), 1)
	if err := r.Start("toda hora"); err == nil {
		t.Fatal("expected schedule parse error")
	}
	if err := r.Start("@every 1h"); err != nil {
		t.Fatal(err)
	}
	r.Stop(context.Background())
}
