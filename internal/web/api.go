package web

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/platescan/platescan/internal/analyze"
	"github.com/platescan/platescan/internal/auth"
	"github.com/platescan/platescan/internal/errors"
	"github.com/platescan/platescan/internal/meal"
	"github.com/platescan/platescan/internal/ops"
	"github.com/platescan/platescan/internal/profile"
)

var validate = validator.New()

// maxJSONBytes bounds JSON request bodies other than uploads.
const maxJSONBytes = 1 << 20

// multipartMemory is how much of an upload is buffered in memory before spilling to disk.
const multipartMemory = 8 << 20

// SwapRequest is the body of POST /api/swap.
type SwapRequest struct {
	Meal        *meal.Meal `json:"meal,omitempty"`
	MealID      string     `json:"meal_id,omitempty"`
	Mode        string     `json:"mode,omitempty"`
	Description string     `json:"description,omitempty"`
}

// SaveRequest is the body of POST /api/history.
type SaveRequest struct {
	Meal *meal.Meal `json:"meal"`
}

// CredentialsRequest is the body of the sign-up and sign-in routes.
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
}

// OnboardingRequest is the body of POST /api/onboarding.
// A missing state starts a new wizard; a missing action returns the state unchanged.
type OnboardingRequest struct {
	State  *profile.Wizard `json:"state,omitempty"`
	Action string          `json:"action,omitempty"`
	Value  string          `json:"value,omitempty"`
}

// HandleAPIAnalyze handles POST /api/analyze, a multipart upload with an "image" field.
// ?save=true also adds the meal to history.
func (h *Handlers) HandleAPIAnalyze(w http.ResponseWriter, r *http.Request) {
	limit := h.cfg.MaxUploadBytes
	if limit > 0 {
		if r.ContentLength > limit {
			renderAPIError(w, errors.NewPayloadTooLarge(limit))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		renderAPIError(w, bodyError(err, limit, "invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(analyze.FormField)
	if err != nil {
		renderAPIError(w, errors.NewInvalidRequest("image field is required"))
		return
	}
	defer file.Close()

	result, err := ops.Analyze(r.Context(), h.client, h.history, ops.AnalyzeInput{
		Image:    file,
		Filename: header.Filename,
		Photo:    header.Filename,
		Save:     parseBoolParam(r, "save"),
	})
	if err != nil {
		renderAPIError(w, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// HandleAPINormalize handles POST /api/normalize. The body is a raw analysis reply.
func (h *Handlers) HandleAPINormalize(w http.ResponseWriter, r *http.Request) {
	limit := h.cfg.MaxUploadBytes
	if limit <= 0 {
		limit = maxJSONBytes
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		renderAPIError(w, bodyError(err, limit, "unable to read body"))
		return
	}

	renderJSON(w, http.StatusOK, ops.Normalize(ops.NormalizeInput{
		Payload: body,
		Photo:   r.URL.Query().Get("photo"),
	}))
}

// HandleAPISwap handles POST /api/swap.
func (h *Handlers) HandleAPISwap(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		renderAPIError(w, err)
		return
	}

	result, err := ops.Swap(h.history, ops.SwapInput{
		Meal:        req.Meal,
		MealID:      req.MealID,
		Mode:        req.Mode,
		Description: req.Description,
	})
	if err != nil {
		renderAPIError(w, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// HandleAPISave handles POST /api/history.
func (h *Handlers) HandleAPISave(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		renderAPIError(w, err)
		return
	}

	saved, err := ops.Save(h.history, ops.SaveInput{Meal: req.Meal})
	if err != nil {
		renderAPIError(w, err)
		return
	}

	renderJSON(w, http.StatusCreated, saved)
}

// HandleAPIList handles GET /api/history.
func (h *Handlers) HandleAPIList(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, ops.List(h.history, ops.ListInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	}))
}

// HandleAPIGet handles GET /api/history/{id}.
func (h *Handlers) HandleAPIGet(w http.ResponseWriter, r *http.Request) {
	m, err := ops.Get(h.history, ops.GetInput{ID: r.PathValue("id")})
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, m)
}

// HandleAPIClear handles DELETE /api/history.
func (h *Handlers) HandleAPIClear(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, ops.Clear(h.history))
}

// HandleAPISignUp handles POST /api/auth/signup.
func (h *Handlers) HandleAPISignUp(w http.ResponseWriter, r *http.Request) {
	h.handleCredentials(w, r, true)
}

// HandleAPISignIn handles POST /api/auth/signin.
func (h *Handlers) HandleAPISignIn(w http.ResponseWriter, r *http.Request) {
	h.handleCredentials(w, r, false)
}

func (h *Handlers) handleCredentials(w http.ResponseWriter, r *http.Request, signUp bool) {
	if h.auth == nil {
		renderAPIError(w, errors.NewInvalidRequest("authentication is not configured"))
		return
	}

	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		renderAPIError(w, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		renderAPIError(w, auth.Fail(auth.CodeInvalidEmail))
		return
	}

	signIn := h.auth.SignIn
	status := http.StatusOK
	if signUp {
		signIn = h.auth.SignUp
		status = http.StatusCreated
	}

	user, err := signIn(r.Context(), req.Email, req.Password)
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, status, user)
}

// HandleAPIOnboarding handles POST /api/onboarding, one wizard action per call.
func (h *Handlers) HandleAPIOnboarding(w http.ResponseWriter, r *http.Request) {
	var req OnboardingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		renderAPIError(w, err)
		return
	}

	wiz, err := ops.Onboard(ops.OnboardInput{
		State:  req.State,
		Action: req.Action,
		Value:  req.Value,
	})
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, wiz)
}

// HandleAPISignOut handles POST /api/auth/signout.
func (h *Handlers) HandleAPISignOut(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		renderAPIError(w, errors.NewInvalidRequest("authentication is not configured"))
		return
	}
	if err := h.auth.SignOut(r.Context()); err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"signed_out": true})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	if err := dec.Decode(v); err != nil {
		return bodyError(err, maxJSONBytes, "invalid JSON body")
	}
	return nil
}

// bodyError maps a body read failure to PAYLOAD_TOO_LARGE or INVALID_REQUEST.
func bodyError(err error, limit int64, msg string) error {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return errors.NewPayloadTooLarge(limit)
	}
	return errors.NewInvalidRequest(msg)
}
