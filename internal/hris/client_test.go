package hris

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListEmployeesFollowsCursor(t *testing.T) {
	var base string
	mux := http.NewServeMux()
	mux.HandleFunc("/core/people", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		page := r.URL.Query().Get("page")
		var body string
		if page == "" {
			next := base + "/core/people?page=2"
			body = fmt.Sprintf(`{"data":{"results":[{"id":"e1","first_name":"Ann","status":"active"}],"next":%q}}`, next)
		} else {
			body = `{"data":{"results":[{"id":"e2","first_name":"Ben","status":"terminated"}],"next":null}}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	base = srv.URL

	client := &Client{BaseURL: srv.URL, APIToken: "token-1"}
	employees, err := client.ListEmployees(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(employees) != 2 {
		t.Fatalf("expected 2 employees across pages, got %d", len(employees))
	}
	if employees[0].ID != "e1" || employees[1].ID != "e2" {
		t.Fatalf("expected pages in order, got %+v", employees)
	}
}

func TestListTimeOffFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("person") != "e1" || q.Get("status") != "approved" {
			t.Errorf("unexpected query: %v", q)
		}
		resp := map[string]any{"data": map[string]any{
			"results": []TimeOffRequest{{ID: "t1", Status: "approved", StartDate: "2026-03-10", EndDate: "2026-03-12"}},
			"next":    nil,
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := &Client{BaseURL: srv.URL, APIToken: "token-1"}
	requests, err := client.ListTimeOff(context.Background(), "e1", "approved", timeMustParse(t, "2026-03-09"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(requests) != 1 || requests[0].ID != "t1" {
		t.Fatalf("expected one request, got %+v", requests)
	}
}

func TestClientSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	client := &Client{BaseURL: srv.URL, APIToken: "bad"}
	if _, err := client.ListEmployees(context.Background()); err == nil {
		t.Fatalf("expected error on 403")
	}
	if ok, _ := client.TestConnection(context.Background()); ok {
		t.Fatalf("expected connection test to fail")
	}
}
