package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ternlund/datapact/internal/contractservice"
)

// NewRouter creates a chi router with all contract routes mounted.
// authEnabled controls whether Bearer token auth is enforced; the health
// endpoint stays unauthenticated either way.
func NewRouter(svc *contractservice.Service, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(CORSMiddleware)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))

		// Contracts CRUD.
		r.Post("/contracts", h.CreateContract)
		r.Get("/contracts", h.ListContracts)
		r.Post("/contracts/save", h.SaveContract)
		r.Get("/contracts/{contract_id}", h.GetContract)
		r.Put("/contracts/{contract_id}", h.UpdateContract)
		r.Delete("/contracts/{contract_id}", h.DeleteContract)

		// Generation without persistence.
		r.Post("/generate", h.GenerateContract)
		r.Post("/generate/stream", h.StreamGenerateContract)
	})

	r.Get("/health", h.Health)

	return r
}
