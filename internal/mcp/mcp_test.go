package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/platescan/platescan/internal/analyze"
	"github.com/platescan/platescan/internal/config"
	"github.com/platescan/platescan/internal/errors"
	"github.com/platescan/platescan/internal/history"
)

const analysisReply = `{"items":[{"name":"Poha","quantity":{"value":1,"unit":"bowl"},"macros":{"calories":250,"carbs_g":45}}],"isHomogeneousFoodDetected":true}`

// testSetup creates handlers backed by a stub analysis service.
func testSetup(t *testing.T, reply http.HandlerFunc) (*Handlers, *history.Store) {
	t.Helper()
	if reply == nil {
		reply = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(analysisReply))
		}
	}
	srv := httptest.NewServer(reply)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	store := history.New()
	return NewHandlers(analyze.New(srv.URL, 5*time.Second), store, cfg), store
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lunch.jpg")
	if err := os.WriteFile(path, []byte("\xff\xd8\xff fake jpeg"), 0600); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
	return path
}

// call runs a handler and fails the test if it returned a Go error.
func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := handler(context.Background(), makeRequest(args))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return result
}

func TestHandleAnalyze(t *testing.T) {
	h, store := testSetup(t, nil)
	path := writeImage(t)

	out := parseOutput(t, call(t, h.HandleAnalyze, map[string]any{"path": path, "save": true}))
	m := out["meal"].(map[string]any)
	if m["name"] != "Meal" {
		t.Errorf("name = %v, want Meal", m["name"])
	}
	if m["totalCalories"] != 250.0 {
		t.Errorf("totalCalories = %v, want 250", m["totalCalories"])
	}
	if m["photo"] != path {
		t.Errorf("photo = %v, want %s", m["photo"], path)
	}
	if id, _ := out["saved_id"].(string); !strings.HasPrefix(id, "saved-") {
		t.Errorf("saved_id = %q, want saved- prefix", id)
	}
	if store.Len() != 1 {
		t.Errorf("store.Len() = %d, want 1", store.Len())
	}
}

func TestHandleAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name     string
		reply    http.HandlerFunc
		args     func(t *testing.T) map[string]any
		wantCode string
	}{
		{
			name:     "missing path",
			args:     func(t *testing.T) map[string]any { return map[string]any{} },
			wantCode: "INVALID_REQUEST",
		},
		{
			name: "nonexistent file",
			args: func(t *testing.T) map[string]any {
				return map[string]any{"path": filepath.Join(t.TempDir(), "nope.jpg")}
			},
			wantCode: "INVALID_REQUEST",
		},
		{
			name: "upstream non-2xx",
			reply: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("model offline"))
			},
			args:     func(t *testing.T) map[string]any { return map[string]any{"path": writeImage(t)} },
			wantCode: "UPSTREAM_STATUS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store := testSetup(t, tt.reply)
			result := call(t, h.HandleAnalyze, tt.args(t))
			assertErrorCode(t, result, tt.wantCode)
			if store.Len() != 0 {
				t.Errorf("store.Len() = %d, want 0", store.Len())
			}
		})
	}
}

func TestHandleAnalyze_TooLarge(t *testing.T) {
	h, _ := testSetup(t, nil)
	h.cfg.MaxUploadBytes = 4

	assertErrorCode(t, call(t, h.HandleAnalyze, map[string]any{"path": writeImage(t)}), "PAYLOAD_TOO_LARGE")
}

func TestHandleNormalize(t *testing.T) {
	h, _ := testSetup(t, nil)

	tests := []struct {
		name      string
		payload   any
		wantItems int
		wantCal   float64
	}{
		{
			name:      "object",
			payload:   map[string]any{"items": []any{map[string]any{"name": "Dosa", "macros": map[string]any{"calories": 170}}}},
			wantItems: 1,
			wantCal:   170,
		},
		{
			name:      "object as string",
			payload:   `{"items":[{"macros":{"calories":"80"}}],"totalMacros":{"calories":100}}`,
			wantItems: 1,
			wantCal:   100,
		},
		{
			name:      "garbage",
			payload:   "not json",
			wantItems: 0,
			wantCal:   0,
		},
		{
			name:      "array",
			payload:   []any{1, 2},
			wantItems: 0,
			wantCal:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := parseOutput(t, call(t, h.HandleNormalize, map[string]any{"payload": tt.payload}))
			if items, _ := out["items"].([]any); len(items) != tt.wantItems {
				t.Errorf("len(items) = %d, want %d", len(items), tt.wantItems)
			}
			if out["totalCalories"] != tt.wantCal {
				t.Errorf("totalCalories = %v, want %v", out["totalCalories"], tt.wantCal)
			}
		})
	}
}

func TestHandleSwap(t *testing.T) {
	h, _ := testSetup(t, nil)
	meal := map[string]any{
		"id":            "meal-1",
		"name":          "Lunch",
		"items":         []any{map[string]any{"id": "it-0", "name": "Rice", "calories": 30}},
		"totalCalories": 500,
	}

	out := parseOutput(t, call(t, h.HandleSwap, map[string]any{"meal": meal, "mode": "Carb"}))
	if out["mode"] != "Carb" {
		t.Errorf("mode = %v, want Carb", out["mode"])
	}
	if out["label"] != "Lower Carbs" {
		t.Errorf("label = %v, want Lower Carbs", out["label"])
	}

	swapped := out["meal"].(map[string]any)
	if swapped["name"] != "Lunch (Carb)" {
		t.Errorf("name = %v, want Lunch (Carb)", swapped["name"])
	}
	if swapped["totalCalories"] != 410.0 {
		t.Errorf("totalCalories = %v, want 410", swapped["totalCalories"])
	}
	items := swapped["items"].([]any)
	if got := items[0].(map[string]any)["calories"]; got != 40.0 {
		t.Errorf("items[0].calories = %v, want 40", got)
	}
}

func TestHandleSwap_Errors(t *testing.T) {
	h, _ := testSetup(t, nil)

	assertErrorCode(t, call(t, h.HandleSwap, map[string]any{"meal_id": "saved-404"}), "NOT_FOUND")
	assertErrorCode(t, call(t, h.HandleSwap, map[string]any{"meal": map[string]any{}, "mode": "keto"}), "INVALID_REQUEST")
	assertErrorCode(t, call(t, h.HandleSwap, map[string]any{}), "INVALID_REQUEST")
}

func TestHistoryTools(t *testing.T) {
	h, _ := testSetup(t, nil)

	// Save
	saved := parseOutput(t, call(t, h.HandleSave, map[string]any{
		"meal": map[string]any{"id": "meal-1", "name": "Breakfast", "totalCalories": 320},
	}))
	id, _ := saved["id"].(string)
	if !strings.HasPrefix(id, "saved-") {
		t.Fatalf("id = %q, want saved- prefix", id)
	}

	// List
	list := parseOutput(t, call(t, h.HandleList, map[string]any{"limit": 5}))
	items := list["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if got := items[0].(map[string]any)["id"]; got != id {
		t.Errorf("items[0].id = %v, want %s", got, id)
	}
	if got := list["pagination"].(map[string]any)["limit"]; got != 5.0 {
		t.Errorf("pagination.limit = %v, want 5", got)
	}

	// Get
	if got := parseOutput(t, call(t, h.HandleGet, map[string]any{"id": id}))["name"]; got != "Breakfast" {
		t.Errorf("name = %v, want Breakfast", got)
	}

	// Swap by id
	if got := parseOutput(t, call(t, h.HandleSwap, map[string]any{"meal_id": id}))["label"]; got != "Healthy Swap" {
		t.Errorf("label = %v, want Healthy Swap", got)
	}

	// Clear
	if got := parseOutput(t, call(t, h.HandleClear, nil))["cleared"]; got != 1.0 {
		t.Errorf("cleared = %v, want 1", got)
	}

	// Get after clear
	assertErrorCode(t, call(t, h.HandleGet, map[string]any{"id": id}), "NOT_FOUND")
}

func TestHandleSave_MissingMeal(t *testing.T) {
	h, _ := testSetup(t, nil)
	assertErrorCode(t, call(t, h.HandleSave, map[string]any{}), "INVALID_REQUEST")
}

func TestHandleList_BadArguments(t *testing.T) {
	h, _ := testSetup(t, nil)
	assertErrorCode(t, call(t, h.HandleList, map[string]any{"limit": "many"}), "INVALID_REQUEST")
}

func TestServerRegistration(t *testing.T) {
	h, store := testSetup(t, nil)

	s := NewServer(h.client, store, config.DefaultConfig(), "test")
	tools := s.ListTools()

	expectedTools := []string{
		"meal_analyze", "meal_normalize", "meal_swap",
		"history_save", "history_list", "history_get", "history_clear",
	}
	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}
	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_Disabled(t *testing.T) {
	h, store := testSetup(t, nil)

	tests := []struct {
		name      string
		tools     []string
		types     []string
		wantCount int
		wantGone  []string
	}{
		{"one tool", []string{"history_clear"}, nil, 6, []string{"history_clear"}},
		{"duplicates", []string{"history_clear", "history_clear"}, nil, 6, []string{"history_clear"}},
		{"type", nil, []string{"history"}, 3, []string{"history_save", "history_list", "history_get", "history_clear"}},
		{"type and tool", []string{"meal_analyze"}, []string{"history"}, 2, []string{"meal_analyze"}},
		{"all", AllToolNames(), nil, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.DisabledTools = tt.tools
			cfg.DisabledTypes = tt.types

			tools := NewServer(h.client, store, cfg, "test").ListTools()
			if len(tools) != tt.wantCount {
				t.Errorf("registered tool count = %d, want %d", len(tools), tt.wantCount)
			}
			for _, name := range tt.wantGone {
				if _, ok := tools[name]; ok {
					t.Errorf("disabled tool %s is registered", name)
				}
			}
		})
	}
}

func TestValidateDisabled(t *testing.T) {
	if got := ValidateDisabledTools([]string{"meal_swap", "history_clear"}); len(got) != 0 {
		t.Errorf("ValidateDisabledTools(known) = %v, want none", got)
	}
	if got := ValidateDisabledTools([]string{"meal_swap", "capsule_store"}); !reflect.DeepEqual(got, []string{"capsule_store"}) {
		t.Errorf("ValidateDisabledTools() = %v, want [capsule_store]", got)
	}
	if got := ValidateDisabledTypes([]string{"meal", "history"}); len(got) != 0 {
		t.Errorf("ValidateDisabledTypes(known) = %v, want none", got)
	}
	if got := ValidateDisabledTypes([]string{"capsule"}); !reflect.DeepEqual(got, []string{"capsule"}) {
		t.Errorf("ValidateDisabledTypes() = %v, want [capsule]", got)
	}
	if got := ValidateDisabledTools(AllToolNames()); len(got) != 0 {
		t.Errorf("ValidateDisabledTools(all) = %v, want none", got)
	}
}

func TestGetTypeForTool(t *testing.T) {
	tests := []struct {
		tool string
		want string
	}{
		{"meal_analyze", "meal"},
		{"history_list", "history"},
		{"nounderscore", ""},
		{"_leading", ""},
	}
	for _, tt := range tests {
		if got := GetTypeForTool(tt.tool); got != tt.want {
			t.Errorf("GetTypeForTool(%q) = %q, want %q", tt.tool, got, tt.want)
		}
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(fmt.Errorf("sql error: open /tmp/secret.db: permission denied"))
	if !r.IsError {
		t.Fatal("expected IsError")
	}

	errObj := errorPayload(t, r)
	if errObj["code"] != string(errors.ErrInternal) {
		t.Errorf("code = %v, want %s", errObj["code"], errors.ErrInternal)
	}
	if msg, _ := errObj["message"].(string); strings.Contains(msg, "secret.db") {
		t.Errorf("message leaks internal detail: %q", msg)
	}
	if _, ok := errObj["details"]; ok {
		t.Error("internal errors must not carry details")
	}
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	errObj := errorPayload(t, errorResult(fmt.Errorf("swap: %w", errors.NewNotFound("abc"))))

	if errObj["code"] != string(errors.ErrNotFound) {
		t.Errorf("code = %v, want %s", errObj["code"], errors.ErrNotFound)
	}
	if errObj["status"] != 404.0 {
		t.Errorf("status = %v, want 404", errObj["status"])
	}
	if got := errObj["details"].(map[string]any)["id"]; got != "abc" {
		t.Errorf("details.id = %v, want abc", got)
	}
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

// errorPayload returns the error object of an error result.
func errorPayload(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in error result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("content is not TextContent")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errorObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatal("no error object in payload")
	}
	return errorObj
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()
	if !result.IsError {
		t.Fatalf("expected error result, got success: %v", extractErrorMessage(result))
	}
	if got := errorPayload(t, result)["code"]; got != expectedCode {
		t.Errorf("error code = %v, want %s", got, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}
	return text.Text
}
