/*
handlers.go - HTTP API handlers for the forecast engine

PURPOSE:
  Exposes the scheduled-transaction and forecast engine via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Templates:
    GET    /api/templates                    List all scheduled templates
    POST   /api/templates                    Create template
    GET    /api/templates/{id}               Get template
    PUT    /api/templates/{id}               Update template
    DELETE /api/templates/{id}               Delete (?mode=cascade|once|single)
    GET    /api/templates/{id}/occurrences   Project one template (?end=)

  Occurrences:
    GET    /api/occurrences                  Project all templates (?end=)
    POST   /api/occurrences/orphans/delete   Bulk-delete orphan children

  Divisions:
    GET    /api/accounts/{account}/divisions Aggregated division nodes
    POST   /api/accounts/{account}/divisions/manual  Set manual amount
    POST   /api/accounts/{account}/divisions/reset   Clear manual edits
    DELETE /api/accounts/{account}           Remove all account data

  Transfers:
    GET    /api/transfers                    List transfer templates (?today=)
    POST   /api/transfers                    Create transfer template
    DELETE /api/transfers/{id}               Remove transfer template
    POST   /api/transfers/{id}/roll          Roll a deferred-debit period

  Persistence:
    POST   /api/save                         Persist context to sqlite
    POST   /api/load                         Reload context from sqlite

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Ctx:    The scheduling context (templates, divisions, transfers, loans)
  - Ledger: In-memory transaction book used by the roller
  - Store:  SQLite persistence

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (store, projector, aggregator, roller)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Confirmation declined
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/forecast-engine/engine"
	"github.com/warp/forecast-engine/forecast"
	"github.com/warp/forecast-engine/ledger"
	"github.com/warp/forecast-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ctx    *forecast.SchedulingContext
	Ledger *ledger.Memory
	Store  *sqlite.Store
}

// NewHandler creates a new handler around a context and its collaborators.
func NewHandler(ctx *forecast.SchedulingContext, book *ledger.Memory, store *sqlite.Store) *Handler {
	return &Handler{Ctx: ctx, Ledger: book, Store: store}
}

// confirmed builds a Confirmer from a boolean already answered by the client.
// The UI asks the question; the API only carries the answer.
func confirmed(yes bool) engine.Confirmer {
	return engine.ConfirmFunc(func(string) bool { return yes })
}

// =============================================================================
// TEMPLATES
// =============================================================================

// ListTemplates returns every scheduled template in insertion order.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates := h.Ctx.Templates.All()
	dtos := make([]TemplateDTO, 0, len(templates))
	for _, t := range templates {
		dtos = append(dtos, toTemplateDTO(t))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTemplate creates a new scheduled template.
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	t, err := req.toTemplate()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid template", err)
		return
	}
	if req.MotherID != 0 && h.Ctx.Templates.Get(req.MotherID) == nil {
		writeError(w, http.StatusBadRequest, "Mother template not found", nil)
		return
	}

	id := h.Ctx.Templates.Create(t)
	writeJSON(w, http.StatusCreated, toTemplateDTO(h.Ctx.Templates.Get(id)))
}

// GetTemplate returns a single template by id.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	t := h.Ctx.Templates.Get(id)
	if t == nil {
		writeError(w, http.StatusNotFound, "Template not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateDTO(t))
}

// UpdateTemplate replaces the stored template, keeping its id.
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if h.Ctx.Templates.Get(id) == nil {
		writeError(w, http.StatusNotFound, "Template not found", nil)
		return
	}

	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	t, err := req.toTemplate()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid template", err)
		return
	}

	h.Ctx.Templates.Update(id, t)
	writeJSON(w, http.StatusOK, toTemplateDTO(h.Ctx.Templates.Get(id)))
}

// DeleteTemplate removes a template. The mode query drives the semantics:
//   - single (default): remove the template only
//   - cascade:          remove the template and its split children
//   - once:             keep the template, advance its date one cycle
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if h.Ctx.Templates.Get(id) == nil {
		writeError(w, http.StatusNotFound, "Template not found", nil)
		return
	}

	switch r.URL.Query().Get("mode") {
	case "once":
		h.Ctx.Templates.AdvanceOne(id)
	case "cascade":
		h.Ctx.Templates.Delete(id, true)
	default:
		h.Ctx.Templates.Delete(id, false)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// OCCURRENCES
// =============================================================================

// GetTemplateOccurrences projects one template up to ?end=YYYY-MM-DD.
func (h *Handler) GetTemplateOccurrences(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	end, ok := queryDate(w, r, "end")
	if !ok {
		return
	}
	if h.Ctx.Templates.Get(id) == nil {
		writeError(w, http.StatusNotFound, "Template not found", nil)
		return
	}

	occs, err := h.Ctx.Projector.Project(id, end)
	if err != nil {
		var orphan *engine.OrphanError
		if errors.As(err, &orphan) {
			writeJSON(w, http.StatusOK, OccurrencesResponse{
				Occurrences: []OccurrenceDTO{},
				Orphans:     orphan.Children,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "Projection failed", err)
		return
	}

	writeJSON(w, http.StatusOK, OccurrencesResponse{Occurrences: toOccurrenceDTOs(occs)})
}

// ListOccurrences projects every template up to ?end=YYYY-MM-DD and reports
// orphan children separately so a client can offer to clean them up.
func (h *Handler) ListOccurrences(w http.ResponseWriter, r *http.Request) {
	end, ok := queryDate(w, r, "end")
	if !ok {
		return
	}

	occs, orphans := h.Ctx.Projector.ProjectAll(end)
	writeJSON(w, http.StatusOK, OccurrencesResponse{
		Occurrences: toOccurrenceDTOs(occs),
		Orphans:     orphans,
	})
}

// DeleteOrphans removes orphan children in bulk, gated on confirmation.
func (h *Handler) DeleteOrphans(w http.ResponseWriter, r *http.Request) {
	var req DeleteOrphansRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Ctx.Projector.DeleteOrphans(req.IDs, confirmed(req.Confirm)); err != nil {
		if errors.Is(err, engine.ErrConfirmationDeclined) {
			writeError(w, http.StatusConflict, "Deletion declined", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete orphans", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// DIVISIONS
// =============================================================================

// ListDivisions returns the aggregated division tree of one account,
// flattened to rows (sub-divisions carry their parent division id).
func (h *Handler) ListDivisions(w http.ResponseWriter, r *http.Request) {
	account, ok := pathInt(w, r, "account")
	if !ok {
		return
	}

	var dtos []DivisionAmountDTO
	for _, n := range h.Ctx.Divisions.Nodes(account) {
		dtos = append(dtos, DivisionAmountDTO{
			Account:    n.Account,
			Division:   n.Division,
			Amount:     h.Ctx.Divisions.Get(account, n.Division, 0).String(),
			FiscalYear: h.Ctx.Divisions.GetFiscalYear(account, n.Division, 0).String(),
			Edited:     h.Ctx.Divisions.GetEdited(account, n.Division, 0),
		})
		subs := make([]int, 0, len(n.Sub))
		for sub := range n.Sub {
			subs = append(subs, sub)
		}
		sort.Ints(subs)
		for _, sub := range subs {
			dtos = append(dtos, DivisionAmountDTO{
				Account:     n.Account,
				Division:    n.Division,
				SubDivision: sub,
				Amount:      h.Ctx.Divisions.Get(account, n.Division, sub).String(),
				FiscalYear:  h.Ctx.Divisions.GetFiscalYear(account, n.Division, sub).String(),
				Edited:      h.Ctx.Divisions.GetEdited(account, n.Division, sub),
			})
		}
	}
	if dtos == nil {
		dtos = []DivisionAmountDTO{}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SetManualDivision overrides the forecast amount of one division.
func (h *Handler) SetManualDivision(w http.ResponseWriter, r *http.Request) {
	account, ok := pathInt(w, r, "account")
	if !ok {
		return
	}
	var req SetManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	h.Ctx.Divisions.SetManual(account, req.Division, req.SubDivision, amount)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ResetDivisions clears every manual override on the account.
func (h *Handler) ResetDivisions(w http.ResponseWriter, r *http.Request) {
	account, ok := pathInt(w, r, "account")
	if !ok {
		return
	}
	h.Ctx.Divisions.ResetEdited(account)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RemoveAccount deletes every template, division node, transfer template
// and loan referencing the account.
func (h *Handler) RemoveAccount(w http.ResponseWriter, r *http.Request) {
	account, ok := pathInt(w, r, "account")
	if !ok {
		return
	}
	h.Ctx.RemoveAccount(account)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// TRANSFERS
// =============================================================================

// ListTransfers returns every deferred-debit transfer template, each with
// its roll state relative to ?today= (default: current date).
func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	today := engine.Today()
	if s := r.URL.Query().Get("today"); s != "" {
		parsed, err := engine.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid today date (use YYYY-MM-DD)", err)
			return
		}
		today = parsed
	}

	transfers := h.Ctx.Transfers.All()
	dtos := make([]TransferDTO, 0, len(transfers))
	for _, t := range transfers {
		dtos = append(dtos, toTransferDTO(t, h.Ctx.Roller.State(t, today)))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTransfer creates a deferred-debit transfer template.
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	debitDate, err := engine.ParseDate(req.DebitDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid debit_date (use YYYY-MM-DD)", err)
		return
	}
	basculeDate, err := engine.ParseDate(req.BasculeDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid bascule_date (use YYYY-MM-DD)", err)
		return
	}

	id := h.Ctx.Transfers.Create(forecast.TransferTemplate{
		MainAccount:    req.MainAccount,
		CardAccount:    req.CardAccount,
		PartialBalance: req.PartialBalance,
		FixedDebitDay:  req.FixedDebitDay,
		DirectDebit:    req.DirectDebit,
		DebitDate:      debitDate,
		BasculeDate:    basculeDate,
		MainPayee:      req.MainPayee,
		MainPayment:    req.MainPayment,
		MainCategory:   req.MainCategory,
		MainSubCat:     req.MainSubCat,
		CardCategory:   req.CardCategory,
		CardSubCat:     req.CardSubCat,
	})
	t := h.Ctx.Transfers.Get(id)
	writeJSON(w, http.StatusCreated, toTransferDTO(t, forecast.RollPending))
}

// DeleteTransfer removes a transfer template.
func (h *Handler) DeleteTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if h.Ctx.Transfers.Get(id) == nil {
		writeError(w, http.StatusNotFound, "Transfer not found", nil)
		return
	}
	h.Ctx.Transfers.Remove(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RollTransfer settles the elapsed deferred-debit period and advances the
// template one month. Requires confirmation; force skips the due check.
func (h *Handler) RollTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	t := h.Ctx.Transfers.Get(id)
	if t == nil {
		writeError(w, http.StatusNotFound, "Transfer not found", nil)
		return
	}

	var req RollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	today := engine.Today()
	if req.Today != "" {
		parsed, err := engine.ParseDate(req.Today)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid today date (use YYYY-MM-DD)", err)
			return
		}
		today = parsed
	}

	rolled, err := h.Ctx.Roller.Roll(t, today, req.Force, confirmed(req.Confirm))
	if err != nil {
		if errors.Is(err, engine.ErrConfirmationDeclined) {
			writeError(w, http.StatusConflict, "Roll-over declined", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Roll-over failed", err)
		return
	}
	if !rolled {
		writeJSON(w, http.StatusOK, map[string]string{"status": "not-due"})
		return
	}
	writeJSON(w, http.StatusOK, toTransferDTO(t, h.Ctx.Roller.State(t, today)))
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Save persists the whole context to the database.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Save(r.Context(), h.Ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Load replaces the in-memory context with the persisted one.
func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	ctx, err := h.Store.Load(r.Context(), h.Ledger, h.Ledger)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load", err)
		return
	}
	*h.Ctx = *ctx
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func pathInt(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, key))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+key, err)
		return 0, false
	}
	return n, true
}

func queryDate(w http.ResponseWriter, r *http.Request, key string) (engine.Date, bool) {
	s := r.URL.Query().Get(key)
	if s == "" {
		writeError(w, http.StatusBadRequest, "Missing "+key+" query parameter", nil)
		return engine.Date{}, false
	}
	d, err := engine.ParseDate(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+key+" date (use YYYY-MM-DD)", err)
		return engine.Date{}, false
	}
	return d, true
}

func toOccurrenceDTOs(occs []engine.Occurrence) []OccurrenceDTO {
	dtos := make([]OccurrenceDTO, 0, len(occs))
	for _, o := range occs {
		dtos = append(dtos, toOccurrenceDTO(o))
	}
	return dtos
}
