package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/platescan/platescan/internal/config"
	"github.com/platescan/platescan/internal/errors"
	"github.com/platescan/platescan/internal/history"
	"github.com/platescan/platescan/internal/meal"
	"github.com/platescan/platescan/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	client  ops.Analyzer
	history *history.Store
	cfg     *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client ops.Analyzer, store *history.Store, cfg *config.Config) *Handlers {
	return &Handlers{client: client, history: store, cfg: cfg}
}

// Request types for each tool

// AnalyzeRequest represents the arguments for meal_analyze.
type AnalyzeRequest struct {
	Path string `json:"path"`
	Save bool   `json:"save,omitempty"`
}

// NormalizeRequest represents the arguments for meal_normalize.
type NormalizeRequest struct {
	Payload json.RawMessage `json:"payload"`
	Photo   string          `json:"photo,omitempty"`
}

// SwapRequest represents the arguments for meal_swap.
type SwapRequest struct {
	Meal        *meal.Meal `json:"meal,omitempty"`
	MealID      string     `json:"meal_id,omitempty"`
	Mode        string     `json:"mode,omitempty"`
	Description string     `json:"description,omitempty"`
}

// SaveRequest represents the arguments for history_save.
type SaveRequest struct {
	Meal *meal.Meal `json:"meal"`
}

// ListRequest represents the arguments for history_list.
type ListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// GetRequest represents the arguments for history_get.
type GetRequest struct {
	ID string `json:"id"`
}

// Handler implementations

// HandleAnalyze handles the meal_analyze tool call.
func (h *Handlers) HandleAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AnalyzeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	path := strings.TrimSpace(input.Path)
	if path == "" {
		return errorResult(errors.NewInvalidRequest("path is required")), nil
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return errorResult(errors.NewInvalidRequest("cannot read image: "+path)), nil
	}
	if h.cfg.MaxUploadBytes > 0 && info.Size() > h.cfg.MaxUploadBytes {
		return errorResult(errors.NewPayloadTooLarge(h.cfg.MaxUploadBytes)), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return errorResult(errors.NewInvalidRequest("cannot read image: "+path)), nil
	}
	defer f.Close()

	result, err := ops.Analyze(ctx, h.client, h.history, ops.AnalyzeInput{
		Image:    f,
		Filename: filepath.Base(path),
		Photo:    path,
		Save:     input.Save,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleNormalize handles the meal_normalize tool call.
func (h *Handlers) HandleNormalize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NormalizeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result := ops.Normalize(ops.NormalizeInput{
		Payload: unwrapJSONString(input.Payload),
		Photo:   input.Photo,
	})
	return successResult(result)
}

// HandleSwap handles the meal_swap tool call.
func (h *Handlers) HandleSwap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SwapRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Swap(h.history, ops.SwapInput{
		Meal:        input.Meal,
		MealID:      input.MealID,
		Mode:        input.Mode,
		Description: input.Description,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSave handles the history_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Save(h.history, ops.SaveInput{Meal: input.Meal})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the history_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	return successResult(ops.List(h.history, ops.ListInput{
		Limit:  input.Limit,
		Offset: input.Offset,
	}))
}

// HandleGet handles the history_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Get(h.history, ops.GetInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleClear handles the history_clear tool call.
func (h *Handlers) HandleClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ops.Clear(h.history))
}

// errorResult creates an MCP error result from an error.
func errorResult(err error) *mcp.CallToolResult {
	e := errors.As(err)
	errorObj := map[string]any{
		"code":    e.Code,
		"message": e.Message,
		"status":  e.Status,
	}
	// Only include details for non-internal errors to avoid leaking
	// sensitive info like file paths or SQL errors
	if e.Code == errors.ErrInternal {
		errorObj["message"] = "an internal error occurred"
	} else if e.Details != nil {
		errorObj["details"] = e.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
