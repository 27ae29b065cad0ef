package vapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListCalls_BareArrayResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Fatalf("unexpected auth header: %q", got)
		}
		if r.URL.Path != "/call" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("assistantId") != "asst-1" {
			t.Fatalf("expected assistantId param, got %q", r.URL.RawQuery)
		}
		fmt.Fprint(w, `[{"id":"c1","status":"completed","createdAt":"2026-08-01T10:00:00Z"}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	calls, next, err := c.ListCalls(context.Background(), "key-1", CallQuery{Limit: 10, AssistantID: "asst-1"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next != "" {
		t.Fatalf("bare array must not carry a cursor, got %q", next)
	}
	if len(calls) != 1 || calls[0].ID != "c1" || calls[0].Status != "completed" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
}

func TestListCalls_MissingCredential(t *testing.T) {
	c := NewClient("http://localhost:0")
	if _, _, err := c.ListCalls(context.Background(), "", CallQuery{}); !errors.Is(err, ErrCredentialMissing) {
		t.Fatalf("expected ErrCredentialMissing, got %v", err)
	}
}

func TestGetCall_MissingCredential(t *testing.T) {
	c := NewClient("http://localhost:0")
	if _, err := c.GetCall(context.Background(), "", "call-1"); !errors.Is(err, ErrCredentialMissing) {
		t.Fatalf("expected ErrCredentialMissing, got %v", err)
	}
}

func TestGetChat_MissingCredential(t *testing.T) {
	c := NewClient("http://localhost:0")
	if _, err := c.GetChat(context.Background(), "", "chat-1"); !errors.Is(err, ErrCredentialMissing) {
		t.Fatalf("expected ErrCredentialMissing, got %v", err)
	}
}

func TestListCalls_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":"invalid key"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, _, err := c.ListCalls(context.Background(), "bad", CallQuery{})
	ue, ok := AsUpstream(err)
	if !ok {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Status != http.StatusForbidden || ue.Body == "" {
		t.Fatalf("expected status and body captured, got %+v", ue)
	}
}

func TestListCalls_FormatError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `"not a list"`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, _, err := c.ListCalls(context.Background(), "k", CallQuery{}); !errors.Is(err, ErrUpstreamFormat) {
		t.Fatalf("expected ErrUpstreamFormat, got %v", err)
	}
}

func TestListAllCalls_FollowsCursor(t *testing.T) {
	var seenCursors []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursor := r.URL.Query().Get("cursor")
		seenCursors = append(seenCursors, cursor)
		switch cursor {
		case "":
			fmt.Fprint(w, `{"results":[{"id":"c1","status":"completed","createdAt":"2026-08-01T10:00:00Z"}],"nextCursor":"p2"}`)
		case "p2":
			fmt.Fprint(w, `{"results":[{"id":"c2","status":"failed","createdAt":"2026-08-01T11:00:00Z"}],"nextCursor":"p3"}`)
		case "p3":
			fmt.Fprint(w, `{"results":[{"id":"c3","status":"completed","createdAt":"2026-08-01T12:00:00Z"}]}`)
		default:
			t.Fatalf("unexpected cursor %q", cursor)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	calls, err := c.ListAllCalls(context.Background(), "k", CallQuery{Limit: 1})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(calls) != 3 || calls[2].ID != "c3" {
		t.Fatalf("expected 3 accumulated calls, got %+v", calls)
	}
	if len(seenCursors) != 3 || seenCursors[1] != "p2" || seenCursors[2] != "p3" {
		t.Fatalf("cursor sequence wrong: %v", seenCursors)
	}
}

func TestGetCall_DecodesOptionalFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/call/c9" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":        "c9",
			"status":    "completed",
			"createdAt": "2026-08-01T10:00:00Z",
			"startedAt": "2026-08-01T10:00:05Z",
			"endedAt":   "2026-08-01T10:01:05Z",
			"cost":      1.25,
			"customer":  map[string]string{"number": "+15551234567"},
			"messages":  []map[string]any{{"role": "assistant", "message": "hello"}},
			"summary":   "Caller booked a table",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	call, err := c.GetCall(context.Background(), "k", "c9")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if call.DurationSeconds() != 60 {
		t.Fatalf("expected 60s duration, got %v", call.DurationSeconds())
	}
	if call.CounterpartNumber() != "+15551234567" {
		t.Fatalf("unexpected counterpart: %q", call.CounterpartNumber())
	}
	if len(call.Messages) != 1 || call.Messages[0].Role != "assistant" {
		t.Fatalf("unexpected messages: %+v", call.Messages)
	}
}

func TestCallDurationSeconds_MissingTimestamps(t *testing.T) {
	var c Call
	if c.DurationSeconds() != 0 {
		t.Fatalf("expected 0 for missing timestamps")
	}
}
