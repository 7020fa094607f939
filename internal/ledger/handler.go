package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/loomworks-erp/loomworks-erp/internal/money"
	"github.com/loomworks-erp/loomworks-erp/internal/platform/httpx"
)

// Handler wires the JSON endpoints for the unified ledger.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{ref}", h.handleGet)
	r.Post("/{ref}/payments", h.handleRecordPayment)
}

type paymentRequest struct {
	Amount          string `json:"amount" validate:"required"`
	Mode            string `json:"mode" validate:"required,oneof=CASH CHEQUE ONLINE"`
	ChequeNumber    string `json:"cheque_number"`
	BankName        string `json:"bank_name"`
	TransactionDate string `json:"transaction_date"`
	ReferenceNumber string `json:"reference_number"`
	Notes           string `json:"notes"`
}

type paymentDTO struct {
	ID              string `json:"id"`
	Amount          string `json:"amount"`
	Mode            string `json:"mode"`
	ChequeNumber    string `json:"cheque_number,omitempty"`
	BankName        string `json:"bank_name,omitempty"`
	TransactionDate string `json:"transaction_date"`
	ReferenceNumber string `json:"reference_number,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

type entryDTO struct {
	ID              string       `json:"id"`
	Category        string       `json:"category"`
	Kind            string       `json:"kind"`
	Direction       string       `json:"direction,omitempty"`
	TotalAmount     string       `json:"total_amount"`
	RemainingAmount string       `json:"remaining_amount"`
	Status          string       `json:"status"`
	Party           string       `json:"party"`
	Khata           string       `json:"khata"`
	EntryDate       string       `json:"entry_date"`
	DueDate         string       `json:"due_date,omitempty"`
	Payments        []paymentDTO `json:"payments,omitempty"`
}

type summaryDTO struct {
	PayableTotal    string `json:"payable_total"`
	PayableCount    int    `json:"payable_count"`
	ReceivableTotal string `json:"receivable_total"`
	ReceivableCount int    `json:"receivable_count"`
	OverdueCount    int    `json:"overdue_count"`
	OverdueTotal    string `json:"overdue_total"`
	RecentCount     int    `json:"recent_count"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	khata := r.URL.Query().Get("khata")
	entries, summary, err := h.service.ListEntries(r.Context(), khata, time.Now().UTC())
	if err != nil {
		h.logger.Error("list ledger entries", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	dtos := make([]entryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toEntryDTO(e))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"entries": dtos,
		"summary": toSummaryDTO(summary),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ref, err := ParseEntryRef(chi.URLParam(r, "ref"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Reference", err.Error())
		return
	}
	entry, err := h.service.GetEntry(r.Context(), ref)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryDTO(entry))
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	ref, err := ParseEntryRef(chi.URLParam(r, "ref"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Reference", err.Error())
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be a decimal string")
		return
	}
	payment := Payment{
		Amount:          amount,
		Mode:            PaymentMode(req.Mode),
		ChequeNumber:    req.ChequeNumber,
		BankName:        req.BankName,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	}
	if req.TransactionDate != "" {
		ts, err := time.Parse("2006-01-02", req.TransactionDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "transaction_date must be YYYY-MM-DD")
			return
		}
		payment.TransactionDate = ts
	}

	entry, err := h.service.RecordPayment(r.Context(), ref, payment)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.logger.Info("payment recorded",
		slog.String("entry", ref.String()),
		slog.String("amount", payment.Amount.String()),
		slog.String("status", string(entry.Status)))
	httpx.JSON(w, http.StatusCreated, toEntryDTO(entry))
}

// respondError maps domain errors onto problem responses. Validation failures
// are the caller's to fix; nothing here is retried.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var exceeds *ExceedsBalanceError
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &exceeds):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Exceeds Remaining Balance", exceeds.Error())
	case errors.Is(err, ErrEntryClosed):
		httpx.Problem(w, http.StatusConflict, "Entry Closed", err.Error())
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrMissingChequeNumber),
		errors.Is(err, ErrMissingBankName):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("ledger request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func toEntryDTO(e LedgerEntry) entryDTO {
	dto := entryDTO{
		ID:              e.Ref.String(),
		Category:        string(e.Category),
		Kind:            string(e.Kind),
		Direction:       string(e.Direction),
		TotalAmount:     e.TotalAmount.String(),
		RemainingAmount: e.RemainingAmount.String(),
		Status:          string(e.Status),
		Party:           e.Party,
		Khata:           e.Khata,
		EntryDate:       e.EntryDate.Format(time.RFC3339),
	}
	if e.DueDate != nil {
		dto.DueDate = e.DueDate.Format(time.RFC3339)
	}
	for _, p := range e.Payments {
		dto.Payments = append(dto.Payments, paymentDTO{
			ID:              p.ID.String(),
			Amount:          p.Amount.String(),
			Mode:            string(p.Mode),
			ChequeNumber:    p.ChequeNumber,
			BankName:        p.BankName,
			TransactionDate: p.TransactionDate.Format(time.RFC3339),
			ReferenceNumber: p.ReferenceNumber,
			Notes:           p.Notes,
		})
	}
	return dto
}

func toSummaryDTO(s Summary) summaryDTO {
	return summaryDTO{
		PayableTotal:    s.PayableTotal.String(),
		PayableCount:    s.PayableCount,
		ReceivableTotal: s.ReceivableTotal.String(),
		ReceivableCount: s.ReceivableCount,
		OverdueCount:    s.OverdueCount,
		OverdueTotal:    s.OverdueTotal.String(),
		RecentCount:     s.RecentCount,
	}
}
