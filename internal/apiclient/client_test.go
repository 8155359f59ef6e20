package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/formsigner/api/internal/realtime"
	"github.com/formsigner/api/internal/subaccount"
)

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data, "error": nil})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":  nil,
		"error": map[string]string{"code": "AUTH", "message": message},
	})
}

func TestNotConfigured(t *testing.T) {
	client := New("")
	if _, err := client.SubAccountLogin(context.Background(), "a@b.test", "u", "p"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := client.SubscribeEvents(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSubAccountLogin(t *testing.T) {
	sub := subaccount.SubAccount{
		ID:            uuid.New(),
		MainAccountID: uuid.New(),
		Username:      "viewer",
		Active:        true,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/subaccount/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["main_account_email"] != "owner@acme.test" {
			t.Errorf("unexpected payload %v", body)
		}
		writeData(w, http.StatusOK, map[string]any{
			"success":       true,
			"session_token": "opaque-token",
			"sub_account":   sub,
		})
	}))
	defer srv.Close()

	client := New(srv.URL)
	session, err := client.SubAccountLogin(context.Background(), "owner@acme.test", "viewer", "secret123")
	if err != nil {
		t.Fatalf("SubAccountLogin: %v", err)
	}
	if session.Token != "opaque-token" {
		t.Fatalf("unexpected token %q", session.Token)
	}
	if session.SubAccount.ID != sub.ID {
		t.Fatal("record mismatch")
	}
	if client.token != "opaque-token" {
		t.Fatal("the client must adopt the new token")
	}
}

func TestSubAccountLoginFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusUnauthorized, "invalid credentials")
	}))
	defer srv.Close()

	client := New(srv.URL)
	if _, err := client.SubAccountLogin(context.Background(), "owner@acme.test", "viewer", "nope"); !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
}

func TestAuthorizationHeaderCarriesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer opaque-token" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		writeData(w, http.StatusOK, map[string]any{"tickets": []any{}})
	}))
	defer srv.Close()

	client := New(srv.URL)
	client.SetToken("opaque-token")
	if _, err := client.ListTickets(context.Background()); err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
}

func TestListDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("unexpected page %q", got)
		}
		writeData(w, http.StatusOK, map[string]any{
			"documents": []map[string]any{{"id": uuid.New(), "file_name": "contract.pdf"}},
			"total":     15,
			"page":      2,
			"page_size": 10,
		})
	}))
	defer srv.Close()

	client := New(srv.URL)
	page, err := client.ListDocuments(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if page.Total != 15 || page.Page != 2 || len(page.Documents) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html>gateway error</html>")
	}))
	defer srv.Close()

	client := New(srv.URL)
	if _, err := client.ListTickets(context.Background()); !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
}

func TestSubscribeEvents(t *testing.T) {
	event := realtime.Event{
		Type:      realtime.EventAdminMessage,
		AccountID: uuid.New(),
		TicketID:  uuid.New(),
		MessageID: uuid.New(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)

		fmt.Fprint(w, ": ping\n\n")
		flusher.Flush()

		payload, _ := json.Marshal(event)
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()

		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := New(srv.URL)
	events, err := client.SubscribeEvents(ctx)
	if err != nil {
		t.Fatalf("SubscribeEvents: %v", err)
	}

	select {
	case got := <-events:
		if got.Type != event.Type || got.TicketID != event.TicketID {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-ctx.Done():
		t.Fatal("no event delivered before timeout")
	}
}
