package web

import (
	"net/http"
	"strconv"

	"github.com/platescan/platescan/internal/auth"
	"github.com/platescan/platescan/internal/config"
	"github.com/platescan/platescan/internal/errors"
	"github.com/platescan/platescan/internal/history"
	"github.com/platescan/platescan/internal/meal"
	"github.com/platescan/platescan/internal/ops"
)

// Handlers contains HTTP route handlers for the pages and the JSON API.
type Handlers struct {
	client   ops.Analyzer
	history  *history.Store
	auth     auth.Provider
	cfg      *config.Config
	renderer *Renderer
}

// HandleList handles GET /meals: saved meals, most recent first.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	result := ops.List(h.history, ops.ListInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})

	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData: PageData{
			Title:   "History",
			Version: h.renderer.version,
			Nav:     "history",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
	})
}

// HandleDetail handles GET /meals/{id}: one saved meal.
// With ?swap=<mode> the page also previews that swap variant.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("meal ID is required"))
		return
	}

	m, err := ops.Get(h.history, ops.GetInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	data := DetailPageData{
		PageData: PageData{
			Title:   displayName(m),
			Version: h.renderer.version,
			Nav:     "history",
		},
		Meal:         m,
		RenderedNote: renderMarkdown(m.Note),
		SwapModes:    meal.SwapModes,
	}

	if mode := r.URL.Query().Get("swap"); mode != "" {
		swap, err := ops.Swap(h.history, ops.SwapInput{MealID: m.ID, Mode: mode})
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		data.Swap = swap
	}

	h.renderer.renderPage(w, r, "detail", data)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

// displayName returns the meal name if present, or its id.
func displayName(m *meal.Meal) string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}
