package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTelegramNotifierSend(t *testing.T) {
	var got map[string]interface{}
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("tok123", "chat42")
	n.apiBase = srv.URL
	err := n.Send(context.Background(), Alert{Level: AlertCritical, Title: "circuit open", Message: "redis down"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if path != "/bottok123/sendMessage" {
		t.Errorf("path = %q, want /bottok123/sendMessage", path)
	}
	if got["chat_id"] != "chat42" {
		t.Errorf("chat_id = %v, want chat42", got["chat_id"])
	}
	if got["parse_mode"] != "MarkdownV2" {
		t.Errorf("parse_mode = %v, want MarkdownV2", got["parse_mode"])
	}
	text, _ := got["text"].(string)
	if !strings.Contains(text, "circuit open") || !strings.Contains(text, "redis down") {
		t.Errorf("text = %q, missing title or message", text)
	}
}

func TestTelegramNotifierErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("tok", "chat")
	n.apiBase = srv.URL
	if err := n.Send(context.Background(), Alert{Level: AlertInfo, Title: "t"}); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestEscapeMarkdown(t *testing.T) {
	got := escapeMarkdown("a_b*c.d")
	want := `a\_b\*c\.d`
	if got != want {
		t.Errorf("escapeMarkdown = %q, want %q", got, want)
	}
	if got := escapeMarkdown("plain"); got != "plain" {
		t.Errorf("escapeMarkdown(plain) = %q, want unchanged", got)
	}
}
