package analysis

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
)

func claudeReply(text string) string {
	body, _ := json.Marshal(map[string]any{
		"id":            "msg_test",
		"type":          "message",
		"role":          "assistant",
		"model":         DefaultClaudeModel,
		"content":       []map[string]any{{"type": "text", "text": text}},
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage":         map[string]any{"input_tokens": 10, "output_tokens": 5},
	})
	return string(body)
}

// newClaudeServer serves canned Messages API replies and records the last
// request body.
func newClaudeServer(t *testing.T, status int, reply string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/messages") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Errorf("missing API key header")
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &got); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestClaudeAnalyzer_Analyze(t *testing.T) {
	srv, got := newClaudeServer(t, http.StatusOK, claudeReply(`[{"expr": "1+1", "result": 2}]`))

	a := NewClaudeAnalyzer("test-key", LLMOptions{BaseURL: srv.URL + "/", MaxDimension: 1568}, option.WithMaxRetries(0))
	res, err := a.Analyze(context.Background(), Request{
		Image: createTestDecoded(t, 8, 8),
		Vars:  map[string]any{"x": 4},
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Failed || len(res.Items) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	rec, _ := res.Items[0].RecordValue()
	if rec["expr"] != "1+1" || rec["result"] != float64(2) {
		t.Errorf("unexpected record %v", rec)
	}

	body := *got
	if body["model"] != DefaultClaudeModel {
		t.Errorf("model: got %v", body["model"])
	}
	if body["max_tokens"] != float64(1024) {
		t.Errorf("max_tokens: got %v", body["max_tokens"])
	}

	messages, _ := body["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("want one message, got %v", body["messages"])
	}
	content, _ := messages[0].(map[string]any)["content"].([]any)
	if len(content) != 2 {
		t.Fatalf("want image and text blocks, got %v", content)
	}
	img := content[0].(map[string]any)
	if img["type"] != "image" {
		t.Errorf("first block type: got %v", img["type"])
	}
	source, _ := img["source"].(map[string]any)
	if source["media_type"] != "image/png" || source["type"] != "base64" {
		t.Errorf("image source: got %v", source)
	}
	text := content[1].(map[string]any)
	if !strings.Contains(text["text"].(string), `{"x":4}`) {
		t.Errorf("variables missing from prompt: %v", text["text"])
	}
}

func TestClaudeAnalyzer_ErrorSignal(t *testing.T) {
	srv, _ := newClaudeServer(t, http.StatusOK, claudeReply(`{"error": "No mathematical content detected"}`))

	a := NewClaudeAnalyzer("test-key", LLMOptions{BaseURL: srv.URL + "/"}, option.WithMaxRetries(0))
	res, err := a.Analyze(context.Background(), Request{Image: createTestDecoded(t, 4, 4), Vars: map[string]any{}})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !res.Failed || res.Message != "No mathematical content detected" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestClaudeAnalyzer_APIError(t *testing.T) {
	srv, _ := newClaudeServer(t, http.StatusBadRequest,
		`{"type":"error","error":{"type":"invalid_request_error","message":"bad image"}}`)

	a := NewClaudeAnalyzer("test-key", LLMOptions{BaseURL: srv.URL + "/", Model: "claude-test"}, option.WithMaxRetries(0))
	_, err := a.Analyze(context.Background(), Request{Image: createTestDecoded(t, 4, 4), Vars: map[string]any{}})
	if err == nil {
		t.Fatal("expected an error for a 400 reply")
	}
	if !strings.Contains(err.Error(), "claude API call") {
		t.Errorf("error should be wrapped: %v", err)
	}
}
