package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/viralforge/sala-escrow/internal/adapters/security"
	"github.com/viralforge/sala-escrow/internal/application"
)

type Handler struct {
	service  *application.Service
	verifier *security.HMACVerifier
	limiter  *subjectLimiter
	ready    func(context.Context) error
}

type Options struct {
	// Verifier checks signed bearer tokens. Nil trusts the bearer value as
	// the subject id.
	Verifier *security.HMACVerifier
	// RatePerSecond and RateBurst bound requests per subject. Zero disables
	// the limiter.
	RatePerSecond float64
	RateBurst     int
	// Ready backs /readyz.
	Ready func(context.Context) error
}

func NewHandler(service *application.Service, opts Options) *Handler {
	return &Handler{
		service:  service,
		verifier: opts.Verifier,
		limiter:  newSubjectLimiter(opts.RatePerSecond, opts.RateBurst),
		ready:    opts.Ready,
	}
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.Healthz)
	r.Get("/readyz", handler.Readyz)
	r.Post("/v1/evidence/preview", handler.PreviewEvidence)

	r.Group(func(pr chi.Router) {
		pr.Use(handler.authMiddleware)
		pr.Use(handler.rateLimitMiddleware)

		pr.Post("/v1/salas", handler.CreateSala)
		pr.Route("/v1/salas/{sala_id}", func(sr chi.Router) {
			sr.Get("/", handler.GetSala)
			sr.Post("/evidence", handler.SubmitEvidence)
			sr.Post("/evidence/rescore", handler.RescoreEvidence)
			sr.Post("/approve", handler.ApproveSala)
			sr.Post("/disputes", handler.OpenDispute)
			sr.Post("/disputes/resolve", handler.ResolveDispute)
		})

		pr.Get("/v1/wallets/{user_id}", handler.GetWallet)
		pr.Post("/v1/wallets/{user_id}/deposits", handler.Deposit)
		pr.Post("/v1/wallets/{user_id}/withdrawals", handler.Withdraw)
	})
	return r
}
