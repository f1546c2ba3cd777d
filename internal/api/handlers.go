package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ternlund/datapact/internal/apperr"
	"github.com/ternlund/datapact/internal/contract"
	"github.com/ternlund/datapact/internal/contractservice"
	"github.com/ternlund/datapact/internal/validate"
)

const maxBodyBytes = 1 << 20

// ServiceName identifies this service in health responses.
const ServiceName = "datapact"

// Handler holds API route handlers.
type Handler struct {
	svc *contractservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *contractservice.Service) *Handler {
	return &Handler{svc: svc}
}

func readBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.Join(apperr.ErrInvalidInput, err)
	}
	return validate.DecodeBody(raw)
}

// CreateContract handles POST /contracts: validate, generate, persist.
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Bad Request", err.Error()))
		return
	}
	in, err := validate.ExtractInput(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Bad Request", err.Error()))
		return
	}
	result, err := h.svc.Create(r.Context(), in.User, in.Request)
	if err != nil {
		slog.Error("contract creation failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Contract Creation Failed", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SaveContract handles POST /contracts/save: persist caller-supplied
// content without generation.
func (h *Handler) SaveContract(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Bad Request", err.Error()))
		return
	}
	user, _ := body["user"].(string)
	request, _ := body["request"].(string)
	content, _ := body["content"].(string)
	if content == "" {
		content, _ = body["yaml"].(string)
	}
	if user == "" || request == "" || content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Bad Request", "user, request, and content are required"))
		return
	}
	result, err := h.svc.Save(r.Context(), user, content)
	if err != nil {
		slog.Error("contract save failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Contract Save Failed", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListContracts handles GET /contracts.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.List(r.Context())
	if err != nil {
		slog.Error("list contracts failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Fetch Failed", "failed to fetch contracts"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contracts": records})
}

// GetContract handles GET /contracts/{contract_id}.
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contract_id")
	detail, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			slog.Error("contract fetch failed", slog.String("contract_id", id), slog.String("error", err.Error()))
		}
		writeJSON(w, http.StatusNotFound, errorBody("Not Found", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// UpdateContract handles PUT /contracts/{contract_id}.
func (h *Handler) UpdateContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contract_id")
	body, err := readBody(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Bad Request", err.Error()))
		return
	}
	patch, err := contract.DecodePatch(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Update Failed", err.Error()))
		return
	}
	detail, err := h.svc.Update(r.Context(), id, patch)
	if err != nil {
		slog.Error("contract update failed", slog.String("contract_id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody("Update Failed", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// DeleteContract handles DELETE /contracts/{contract_id}.
func (h *Handler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contract_id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		slog.Error("contract delete failed", slog.String("contract_id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody("Delete Failed", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Contract " + id + " deleted successfully"})
}

// GenerateContract handles POST /generate: generation without
// persistence.
func (h *Handler) GenerateContract(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Bad Request", err.Error()))
		return
	}
	description, _ := body["description"].(string)
	if description == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Bad Request", "Description is required"))
		return
	}
	content, err := h.svc.Generate(r.Context(), description)
	if err != nil {
		slog.Error("contract generation failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Contract Generation Failed", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"content": content,
		"message": "Contract generated successfully",
	})
}

// StreamGenerateContract handles POST /generate/stream. Fragments are
// written as plain text as they arrive; a failure surfaces as a single
// JSON-shaped fragment in the stream, after which the stream ends.
func (h *Handler) StreamGenerateContract(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	flusher, _ := w.(http.Flusher)
	writeFragment := func(s string) {
		_, _ = io.WriteString(w, s)
		if flusher != nil {
			flusher.Flush()
		}
	}
	writeErrorFragment := func(msg string) {
		payload, _ := json.Marshal(map[string]string{"error": msg})
		writeFragment(string(payload))
	}

	body, err := readBody(w, r)
	if err != nil {
		writeErrorFragment(err.Error())
		return
	}
	description, _ := body["description"].(string)
	if description == "" {
		writeErrorFragment("Description is required")
		return
	}

	stream, err := h.svc.GenerateStream(r.Context(), description)
	if err != nil {
		slog.Error("stream generation failed", slog.String("error", err.Error()))
		writeErrorFragment(err.Error())
		return
	}
	defer stream.Close()

	for {
		fragment, err := stream.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Error("stream generation failed mid-stream", slog.String("error", err.Error()))
				writeErrorFragment(err.Error())
			}
			return
		}
		writeFragment(fragment)
	}
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   ServiceName,
	})
}
