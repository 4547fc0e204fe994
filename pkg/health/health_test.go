package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func up(context.Context) ComponentHealth { return ComponentHealth{Status: StatusUp} }

func TestRunAggregates(t *testing.T) {
	down := Ping(func(context.Context) error { return errors.New("unreachable") })

	tests := []struct {
		name     string
		setup    func(*Checker)
		want     Status
		wantCode int
	}{
		{"all up", func(c *Checker) { c.Register("dictionary", up) }, StatusUp, 200},
		{"optional down", func(c *Checker) {
			c.Register("dictionary", up)
			c.RegisterOptional("analytics", down)
		}, StatusDegraded, 200},
		{"required down", func(c *Checker) {
			c.Register("dictionary", down)
			c.RegisterOptional("analytics", up)
		}, StatusDown, 503},
		{"no checks", func(*Checker) {}, StatusUp, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			tt.setup(c)
			if got := c.Run(context.Background()).Status; got != tt.want {
				t.Errorf("status = %q, want %q", got, tt.want)
			}

			rec := httptest.NewRecorder()
			c.ReadyHandler()(rec, httptest.NewRequest("GET", "/health/ready", nil))
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var report Report
			if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
				t.Fatal(err)
			}
			if len(report.Components) != len(c.Names()) {
				t.Errorf("components = %v", report.Components)
			}
		})
	}
}

func TestPingMessage(t *testing.T) {
	res := Ping(func(context.Context) error { return errors.New("boom") })(context.Background())
	if res.Status != StatusDown || res.Message != "boom" {
		t.Errorf("got %+v", res)
	}
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest("GET", "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("code = %d", rec.Code)
	}
}
