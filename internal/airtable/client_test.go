package airtable

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListAllSinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/appBase/tblContacts" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("auth header = %q", got)
		}
		fmt.Fprint(w, `{"records":[
			{"id":"rec1","fields":{"Customer Name":"Alice","Phone Number":"+12025550147"}},
			{"id":"rec2","fields":{"Customer Email":"bob@example.com"}}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", "appBase", "tblContacts")
	records, err := c.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Fields.CustomerName != "Alice" || records[0].Fields.PhoneNumber != "+12025550147" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[1].Fields.CustomerEmail != "bob@example.com" {
		t.Fatalf("unexpected second record: %+v", records[1])
	}
}

func TestListAllFollowsOffset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("offset") {
		case "":
			fmt.Fprint(w, `{"records":[{"id":"rec1","fields":{}}],"offset":"page2"}`)
		case "page2":
			fmt.Fprint(w, `{"records":[{"id":"rec2","fields":{}},{"id":"rec3","fields":{}}]}`)
		default:
			t.Fatalf("unexpected offset %q", r.URL.Query().Get("offset"))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", "appBase", "tblContacts")
	records, err := c.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[2].ID != "rec3" {
		t.Fatalf("last record = %q, want rec3", records[2].ID)
	}
}

func TestListAllNotConfigured(t *testing.T) {
	c := NewClient("http://example.invalid", "", "appBase", "tblContacts")
	if _, err := c.ListAll(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestListAllUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"AUTHENTICATION_REQUIRED"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad", "appBase", "tblContacts")
	_, err := c.ListAll(context.Background())
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
	if ue.Status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", ue.Status)
	}
}
