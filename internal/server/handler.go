package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jortegab/cash-denomination-ledger/internal/auth"
	"github.com/jortegab/cash-denomination-ledger/internal/cashdesk"
	"github.com/jortegab/cash-denomination-ledger/internal/ledger"
	"github.com/jortegab/cash-denomination-ledger/internal/models"
	"github.com/jortegab/cash-denomination-ledger/internal/reconcile"
	"github.com/jortegab/cash-denomination-ledger/internal/valuation"
)

// maxDeltaPerRow bounds a single breakdown delta. Input sanity only, not a
// domain invariant.
const maxDeltaPerRow = 50

// Handler exposes the cashdesk over JSON.
type Handler struct {
	desk *cashdesk.Service
	auth *auth.Authenticator
	log  *zap.Logger
}

func NewHandler(desk *cashdesk.Service, authenticator *auth.Authenticator, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{desk: desk, auth: authenticator, log: log}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User string `json:"user"`
		PIN  string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	token, err := h.auth.Login(req.User, req.PIN)
	if err != nil {
		writeErr(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) balances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.desk.Balances(r.Context())
	if err != nil {
		h.storeErr(w, err)
		return
	}
	grand := decimal.Zero
	for _, b := range balances {
		grand = grand.Add(b.Total)
	}
	writeJSON(w, http.StatusOK, struct {
		Accounts   []cashdesk.AccountBalance `json:"accounts"`
		GrandTotal decimal.Decimal           `json:"grand_total"`
	}{Accounts: balances, GrandTotal: grand})
}

func (h *Handler) inventory(w http.ResponseWriter, r *http.Request) {
	account := models.AccountID(chi.URLParam(r, "account"))
	records, err := h.desk.Inventory(r.Context(), account)
	if err != nil {
		if errors.Is(err, cashdesk.ErrUnknownAccount) {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		h.storeErr(w, err)
		return
	}

	type row struct {
		Row       int    `json:"row"`
		Label     string `json:"label"`
		FaceValue string `json:"face_value"`
		UnitCount int    `json:"unit_count"`
		Subtotal  string `json:"subtotal"`
	}
	out := make([]row, 0, len(records))
	for _, rec := range records {
		out = append(out, row{
			Row:       rec.Row,
			Label:     rec.Label,
			FaceValue: valuation.FormatAmount(rec.FaceValue),
			UnitCount: rec.UnitCount,
			Subtotal:  valuation.FormatAmount(rec.Subtotal()),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) registerMovement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account     string          `json:"account"`
		Kind        string          `json:"kind"`
		Amount      decimal.Decimal `json:"amount"`
		Tendered    decimal.Decimal `json:"tendered"`
		Breakdown   map[int]int     `json:"breakdown"`
		UpdateStock *bool           `json:"update_stock"`
		Note        string          `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	account := models.AccountID(req.Account)
	if !account.Valid() {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("unknown account %q", req.Account))
		return
	}
	kind := models.Kind(req.Kind)
	if !kind.Valid() {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("unknown movement kind %q", req.Kind))
		return
	}
	if req.Amount.IsNegative() || req.Tendered.IsNegative() {
		writeErr(w, http.StatusBadRequest, errors.New("amounts must not be negative"))
		return
	}
	for rowIdx, delta := range req.Breakdown {
		if delta > maxDeltaPerRow || delta < -maxDeltaPerRow {
			writeErr(w, http.StatusBadRequest,
				fmt.Errorf("delta %d on row %d exceeds the +/-%d bound", delta, rowIdx, maxDeltaPerRow))
			return
		}
	}

	// Stock updates default to on, matching the operator form.
	updateStock := true
	if req.UpdateStock != nil {
		updateStock = *req.UpdateStock
	}

	tx := models.Transaction{
		Account:      account,
		Kind:         kind,
		StatedAmount: req.Amount,
		Tendered:     req.Tendered,
		Breakdown:    req.Breakdown,
		UpdateStock:  updateStock,
		Note:         req.Note,
	}

	receipt, err := h.desk.Register(r.Context(), auth.FromContext(r.Context()), tx)
	if err != nil {
		h.registerErr(w, receipt, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// registerErr maps domain failures to status codes. A non-nil receipt next
// to an error means stock was already mutated before the failure.
func (h *Handler) registerErr(w http.ResponseWriter, receipt *cashdesk.Receipt, err error) {
	var insufficient *reconcile.InsufficientStockError
	var missing *ledger.HistoryTargetMissingError
	switch {
	case errors.Is(err, cashdesk.ErrNotAuthenticated):
		writeErr(w, http.StatusUnauthorized, err)
	case errors.Is(err, reconcile.ErrInvalidAmount):
		writeErr(w, http.StatusBadRequest, err)
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": err.Error(),
			"row":   insufficient.Row,
			"label": insufficient.Label,
		})
	case errors.As(err, &missing):
		h.log.Error("history target missing after stock mutation", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":                 err.Error(),
			"available_collections": missing.Available,
			"receipt":               receipt,
		})
	default:
		h.storeErr(w, err)
	}
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	table, err := h.desk.History(r.Context())
	if err != nil {
		var missing *ledger.HistoryTargetMissingError
		if errors.As(err, &missing) {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":                 err.Error(),
				"available_collections": missing.Available,
			})
			return
		}
		h.storeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// storeErr covers backing-store failures, collection misconfiguration
// included. They are all server-side faults.
func (h *Handler) storeErr(w http.ResponseWriter, err error) {
	h.log.Error("request failed", zap.Error(err))
	writeErr(w, http.StatusInternalServerError, err)
}
