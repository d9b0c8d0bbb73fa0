// Copyright 2025 Patrick Deglon
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package monitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubChecker struct {
	name   string
	status *Status
}

func (s stubChecker) Name() string                       { return s.name }
func (s stubChecker) Check(ctx context.Context) *Status { return s.status }

func TestReportAggregatesWorstState(t *testing.T) {
	m := New(time.Hour)
	t.Cleanup(m.Stop)
	m.AddChecker(stubChecker{name: "cache", status: &Status{State: Healthy}})
	m.AddChecker(stubChecker{name: "database", status: &Status{State: Unhealthy, Message: "down"}})
	m.runAll(context.Background())

	report := m.Report()
	if report.Status != Unhealthy {
		t.Errorf("Status = %v; want Unhealthy", report.Status)
	}
	if len(report.Checks) != 2 {
		t.Errorf("Checks = %+v; want 2 entries", report.Checks)
	}
}

func TestReportHealthyWhenAllCheckersHealthy(t *testing.T) {
	m := New(time.Hour)
	t.Cleanup(m.Stop)
	m.AddChecker(stubChecker{name: "cache", status: &Status{State: Healthy}})
	m.runAll(context.Background())

	if got := m.Report().Status; got != Healthy {
		t.Errorf("Status = %v; want Healthy", got)
	}
}

func TestServeHTTPReturns503WhenUnhealthy(t *testing.T) {
	m := New(time.Hour)
	t.Cleanup(m.Stop)
	m.AddChecker(stubChecker{name: "database", status: &Status{State: Unhealthy}})
	m.runAll(context.Background())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	m.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d; want 503", rec.Code)
	}
}

func TestServeHTTPReturns200WhenHealthy(t *testing.T) {
	m := New(time.Hour)
	t.Cleanup(m.Stop)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	m.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d; want 200 with no checkers registered", rec.Code)
	}
}

func TestDatabaseCheckerReportsUnhealthyOnPingError(t *testing.T) {
	c := NewDatabaseChecker("database", func(ctx context.Context) error {
		return errors.New("connection refused")
	})
	status := c.Check(context.Background())
	if status.State != Unhealthy {
		t.Errorf("State = %v; want Unhealthy", status.State)
	}
}

func TestDatabaseCheckerReportsHealthyOnSuccess(t *testing.T) {
	c := NewDatabaseChecker("database", func(ctx context.Context) error { return nil })
	status := c.Check(context.Background())
	if status.State != Healthy {
		t.Errorf("State = %v; want Healthy", status.State)
	}
}
