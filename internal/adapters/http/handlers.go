package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/viralforge/sala-escrow/internal/application"
	"github.com/viralforge/sala-escrow/internal/contracts"
	"github.com/viralforge/sala-escrow/internal/domain"
)

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			logHTTPOperationError(r.Context(), "readyz", http.StatusServiceUnavailable, "NOT_READY", "dependencies unavailable", err)
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", "dependencies unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) CreateSala(w http.ResponseWriter, r *http.Request) {
	var req contracts.CreateSalaRequest
	if err := decodeBody(r, &req); err != nil {
		writeDecodeError(r.Context(), w, "create_sala", err)
		return
	}
	sala, err := h.service.CreateAgreement(r.Context(), actorFromRequest(r), application.CreateAgreementInput{
		FunderID:      req.FunderID,
		PartnerID:     req.PartnerID,
		Title:         req.Title,
		Description:   req.Description,
		TotalAmount:   req.TotalAmount,
		CommissionPct: req.PartnerCommissionPct,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "create_sala", err)
		return
	}
	writeSuccess(w, http.StatusCreated, sala)
}

func (h *Handler) GetSala(w http.ResponseWriter, r *http.Request) {
	sala, err := h.service.GetAgreement(r.Context(), actorFromRequest(r), chi.URLParam(r, "sala_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_sala", err)
		return
	}
	writeSuccess(w, http.StatusOK, sala)
}

func (h *Handler) SubmitEvidence(w http.ResponseWriter, r *http.Request) {
	var req contracts.SubmitEvidenceRequest
	if err := decodeBody(r, &req); err != nil {
		writeDecodeError(r.Context(), w, "submit_evidence", err)
		return
	}
	result, err := h.service.SubmitEvidence(r.Context(), actorFromRequest(r), application.SubmitEvidenceInput{
		AgreementID: chi.URLParam(r, "sala_id"),
		Notes:       req.Notes,
		Files:       evidenceFiles(req.Files),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "submit_evidence", err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

func (h *Handler) RescoreEvidence(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RescoreEvidence(r.Context(), actorFromRequest(r), chi.URLParam(r, "sala_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "rescore_evidence", err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

func (h *Handler) ApproveSala(w http.ResponseWriter, r *http.Request) {
	sala, err := h.service.ApproveManually(r.Context(), actorFromRequest(r), chi.URLParam(r, "sala_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "approve_sala", err)
		return
	}
	writeSuccess(w, http.StatusOK, sala)
}

func (h *Handler) OpenDispute(w http.ResponseWriter, r *http.Request) {
	var req contracts.OpenDisputeRequest
	if err := decodeBody(r, &req); err != nil {
		writeDecodeError(r.Context(), w, "open_dispute", err)
		return
	}
	dispute, err := h.service.OpenDispute(r.Context(), actorFromRequest(r), application.OpenDisputeInput{
		AgreementID: chi.URLParam(r, "sala_id"),
		Reason:      req.Reason,
		Description: req.Description,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "open_dispute", err)
		return
	}
	writeSuccess(w, http.StatusCreated, dispute)
}

func (h *Handler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	var req contracts.ResolveDisputeRequest
	if err := decodeBody(r, &req); err != nil {
		writeDecodeError(r.Context(), w, "resolve_dispute", err)
		return
	}
	sala, err := h.service.ResolveDispute(r.Context(), actorFromRequest(r), application.ResolveDisputeInput{
		AgreementID: chi.URLParam(r, "sala_id"),
		Resolution:  req.Resolution,
		PartialPct:  req.PartialPct,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "resolve_dispute", err)
		return
	}
	writeSuccess(w, http.StatusOK, sala)
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.service.GetWalletBalance(r.Context(), actorFromRequest(r), chi.URLParam(r, "user_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_wallet", err)
		return
	}
	writeSuccess(w, http.StatusOK, walletResponse(wallet))
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.walletMovement(w, r, "deposit", h.service.Deposit)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.walletMovement(w, r, "withdraw", h.service.Withdraw)
}

type walletMoveFunc func(ctx context.Context, actor application.Actor, input application.WalletMovementInput) (domain.Wallet, error)

func (h *Handler) walletMovement(w http.ResponseWriter, r *http.Request, operation string, move walletMoveFunc) {
	var req contracts.WalletMovementRequest
	if err := decodeBody(r, &req); err != nil {
		writeDecodeError(r.Context(), w, operation, err)
		return
	}
	wallet, err := move(r.Context(), actorFromRequest(r), application.WalletMovementInput{
		UserID: chi.URLParam(r, "user_id"),
		Amount: req.Amount,
	})
	if err != nil {
		writeMappedError(r.Context(), w, operation, err)
		return
	}
	writeSuccess(w, http.StatusOK, walletResponse(wallet))
}

// PreviewEvidence scores files and notes without touching any agreement.
func (h *Handler) PreviewEvidence(w http.ResponseWriter, r *http.Request) {
	var req contracts.SubmitEvidenceRequest
	if err := decodeBody(r, &req); err != nil {
		writeDecodeError(r.Context(), w, "preview_evidence", err)
		return
	}
	result, err := h.service.PreviewScore(evidenceFiles(req.Files), req.Notes)
	if err != nil {
		writeMappedError(r.Context(), w, "preview_evidence", err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

func evidenceFiles(in []contracts.EvidenceFileRequest) []application.EvidenceFileInput {
	out := make([]application.EvidenceFileInput, 0, len(in))
	for _, f := range in {
		out = append(out, application.EvidenceFileInput{
			Name:      f.Name,
			URL:       f.URL,
			SizeBytes: f.SizeBytes,
			Category:  f.Category,
		})
	}
	return out
}

func walletResponse(w domain.Wallet) contracts.WalletBalanceResponse {
	resp := contracts.WalletBalanceResponse{
		UserID:    w.UserID,
		Available: w.Available.StringFixed(2),
		InEscrow:  w.InEscrow.StringFixed(2),
		InHold:    w.InHold.StringFixed(2),
		InReview:  w.InReview.StringFixed(2),
	}
	if !w.UpdatedAt.IsZero() {
		resp.UpdatedAt = w.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
