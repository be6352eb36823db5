package usage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kalambet/expertfinder/internal/config"
)

func TestReportSearch(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/logger" {
			t.Errorf("request = %s %s, want GET /logger", r.Method, r.URL.Path)
		}
		got = r.URL.Query()
	}))
	defer srv.Close()

	r := New(config.UsageConfig{URL: srv.URL + "/logger", Author: "team@example.com", Datacenter: "eu"})
	if err := r.ReportSearch(context.Background(), "Jane Doe", "R&D Space", "in,java"); err != nil {
		t.Fatalf("ReportSearch: %v", err)
	}

	want := url.Values{
		"author":        {"team@example.com"},
		"app":           {"IWWExpertFinder"},
		"feature":       {"ExpertRequest"},
		"datacenter":    {"eu"},
		"user":          {"Jane Doe"},
		"communityName": {"R&D Space"},
		"query":         {"in,java"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
}

func TestReportSearch_Disabled(t *testing.T) {
	r := New(config.UsageConfig{})
	if r.Enabled() {
		t.Error("Enabled() = true, want false without a URL")
	}
	if err := r.ReportSearch(context.Background(), "u", "s", "q"); err != nil {
		t.Errorf("ReportSearch = %v, want nil when disabled", err)
	}
}

func TestReportSearch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := New(config.UsageConfig{URL: srv.URL})
	if err := r.ReportSearch(context.Background(), "u", "s", "q"); err == nil {
		t.Error("expected error for 502, got nil")
	}
}
