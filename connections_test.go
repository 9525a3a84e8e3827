package docmap

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/docmap/internal/config"
)

func TestConnectionRegistry(t *testing.T) {
	f := &fakeEngine{}
	AddConnection("registry-test", f)

	got, err := GetConnection("registry-test")
	if err != nil || got != f {
		t.Fatalf("got %v, %v", got, err)
	}
	found := false
	for _, a := range Connections() {
		if a == "registry-test" {
			found = true
		}
	}
	if !found {
		t.Errorf("aliases = %v", Connections())
	}

	if err := RemoveConnection("registry-test"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := GetConnection("registry-test"); !errors.Is(err, ErrUnknownConnection) {
		t.Errorf("err = %v", err)
	}
	if err := RemoveConnection("registry-test"); !errors.Is(err, ErrUnknownConnection) {
		t.Errorf("err = %v", err)
	}
}

func TestAddConnection_ClosesReplaced(t *testing.T) {
	first, second := &fakeEngine{}, &fakeEngine{}
	AddConnection("replace-test", first)
	t.Cleanup(func() { _ = RemoveConnection("replace-test") })

	AddConnection("replace-test", first)
	if first.closed != 0 {
		t.Fatalf("re-adding the same engine closed it %d times", first.closed)
	}
	AddConnection("replace-test", second)
	if first.closed != 1 || second.closed != 0 {
		t.Errorf("closed: first=%d second=%d", first.closed, second.closed)
	}
	if got, _ := GetConnection("replace-test"); got != second {
		t.Errorf("got %v, want the replacement", got)
	}
}

func TestConnect_TwiceClosesPrevious(t *testing.T) {
	ctx := context.Background()
	old, err := Connect(ctx, "dup-test", WithMemory())
	if err != nil {
		t.Fatalf("first connect: %v", err)
	}
	t.Cleanup(func() { _ = RemoveConnection("dup-test") })
	if _, err := Connect(ctx, "dup-test", WithMemory()); err != nil {
		t.Fatalf("second connect: %v", err)
	}
	if err := old.Ping(ctx); err == nil {
		t.Error("replaced engine still answers")
	}
	cur, _ := GetConnection("dup-test")
	if err := cur.Ping(ctx); err != nil {
		t.Errorf("current engine: %v", err)
	}
}

func TestGetConnection_EmptyAliasIsDefault(t *testing.T) {
	f := newFake(t)
	got, err := GetConnection("")
	if err != nil || got != f {
		t.Errorf("got %v, %v", got, err)
	}
}

func TestConnect_Memory(t *testing.T) {
	reg := prometheus.NewRegistry()
	core, logs := observer.New(zap.DebugLevel)

	e, err := Connect(context.Background(), "mem-test",
		WithMemory(), WithLogger(zap.New(core)), WithPrometheus(reg))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = RemoveConnection("mem-test") })

	if got, _ := GetConnection("mem-test"); got != e {
		t.Error("engine not registered")
	}

	post := blogPost(t)
	d, _ := post.New(map[string]any{"_id": "1", "title": "T"})
	if _, err := d.Save(context.Background(), Using("mem-test")); err != nil {
		t.Fatalf("save: %v", err)
	}

	if n := testutil.CollectAndCount(reg, "docmap_engine_requests_total"); n != 1 {
		t.Errorf("series = %d, want 1", n)
	}
	if logs.FilterMessage("Engine request completed").Len() != 1 {
		t.Errorf("logs = %v", logs.All())
	}
}

func TestConnect_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts []ConnectOption
	}{
		{"no driver", nil},
		{"network driver without address", []ConnectOption{
			connectOptionFunc(func(c *connectConfig) { c.driver = config.DriverRedis }),
		}},
		{"unknown driver", []ConnectOption{
			connectOptionFunc(func(c *connectConfig) { c.driver = "mongo" }),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Connect(context.Background(), "broken", tt.opts...); err == nil {
				t.Error("expected error")
			}
			if _, err := GetConnection("broken"); err == nil {
				t.Error("failed connect must not register")
			}
		})
	}
}

func TestConnectFromConfig(t *testing.T) {
	cfg := Config{Connections: map[string]ConnectionConfig{
		"cfg-a": {Driver: config.DriverMemory},
		"cfg-b": {Driver: config.DriverMemory},
	}}
	if err := ConnectFromConfig(context.Background(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() {
		_ = RemoveConnection("cfg-a")
		_ = RemoveConnection("cfg-b")
	})
	for _, alias := range []string{"cfg-a", "cfg-b"} {
		if _, err := GetConnection(alias); err != nil {
			t.Errorf("%s: %v", alias, err)
		}
	}
}

func TestConnectFromConfig_RollsBack(t *testing.T) {
	cfg := Config{Connections: map[string]ConnectionConfig{
		"rb-a": {Driver: config.DriverMemory},
		"rb-b": {Driver: "mongo"},
	}}
	if err := ConnectFromConfig(context.Background(), cfg); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	if _, err := GetConnection("rb-a"); !errors.Is(err, ErrUnknownConnection) {
		t.Error("connected alias must be removed after a failure")
	}
}

func TestFromConnectionConfig(t *testing.T) {
	cc := &connectConfig{readiness: defaultReadinessTimeout}
	fromConnectionConfig(ConnectionConfig{
		Driver: "valkey", Addrs: []string{"a:1"}, Password: "p", DB: 2,
		KeyPrefix: "x:", ReadinessTimeout: 3,
	}).apply(cc)

	if cc.driver != "valkey" || !reflect.DeepEqual(cc.addrs, []string{"a:1"}) ||
		cc.password != "p" || cc.db != 2 || cc.keyPrefix != "x:" || cc.readiness.Seconds() != 3 {
		t.Errorf("config = %+v", cc)
	}
}
