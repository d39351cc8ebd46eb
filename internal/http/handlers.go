package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/log"
	"tally/internal/services"
)

type transactionResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	AmountCents int64    `json:"amount_cents"`
	Date        string   `json:"date"`
	Type        string   `json:"type"`
	CategoryID  string   `json:"category_id,omitempty"`
	AccountID   string   `json:"account_id"`
	ToAccountID string   `json:"to_account_id,omitempty"`
	PersonID    string   `json:"person_id,omitempty"`
	TagIDs      []string `json:"tag_ids,omitempty"`
	Note        string   `json:"note,omitempty"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Title:       t.Title,
		AmountCents: t.Amount.Cents,
		Date:        t.Date.UTC().Format(time.RFC3339),
		Type:        string(t.Type),
		CategoryID:  t.CategoryID,
		AccountID:   t.AccountID,
		ToAccountID: t.ToAccountID,
		PersonID:    t.PersonID,
		TagIDs:      t.TagIDs,
		Note:        t.Note,
	}
}

type summaryResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Icon          string `json:"icon,omitempty"`
	Color         string `json:"color,omitempty"`
	BgColor       string `json:"bg_color,omitempty"`
	TotalCents    int64  `json:"total_cents"`
	ExpenseCents  int64  `json:"expense_cents"`
	IncomeCents   int64  `json:"income_cents"`
	TransferCents int64  `json:"transfer_cents"`
	TotalCount    int    `json:"total_count"`
	ExpenseCount  int    `json:"expense_count"`
	IncomeCount   int    `json:"income_count"`
	TransferCount int    `json:"transfer_count"`
	AverageCents  int64  `json:"average_cents"`
	HighestCents  int64  `json:"highest_cents"`
	LowestCents   int64  `json:"lowest_cents"`
	IsParent      bool   `json:"is_parent,omitempty"`
	ParentID      string `json:"parent_id,omitempty"`
	IsSystem      bool   `json:"is_system,omitempty"`
}

func toSummaryResponses(sums []core.Summary) []summaryResponse {
	out := make([]summaryResponse, len(sums))
	for i, s := range sums {
		out[i] = summaryResponse{
			ID: s.ID, Name: s.Name, Icon: s.Icon, Color: s.Color, BgColor: s.BgColor,
			TotalCents: s.TotalCents, ExpenseCents: s.ExpenseCents,
			IncomeCents: s.IncomeCents, TransferCents: s.TransferCents,
			TotalCount: s.TotalCount, ExpenseCount: s.ExpenseCount,
			IncomeCount: s.IncomeCount, TransferCount: s.TransferCount,
			AverageCents: s.AverageCents, HighestCents: s.HighestCents, LowestCents: s.LowestCents,
			IsParent: s.IsParent, ParentID: s.ParentID, IsSystem: s.IsSystem,
		}
	}
	return out
}

// handleTransactions serves GET (query pipeline) and POST (create) on
// /transactions.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTransactions(w, r)
	case http.MethodPost:
		s.handleCreateTransaction(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter, err := parseFilter(query)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sortSpec := parseSort(query)
	search := strings.TrimSpace(query.Get("search"))

	ts, err := s.transactions.List(r.Context(), search, filter, sortSpec)
	if err != nil {
		if isQuerySpecError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.ErrorContext(r.Context(), "List transactions failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	out := make([]transactionResponse, len(ts))
	for i, t := range ts {
		out[i] = toTransactionResponse(t)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": out,
		"count":        len(out),
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := decodeTransactionRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.transactions.Create(r.Context(), t)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.ErrorContext(r.Context(), "Create transaction failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to save transaction")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction": toTransactionResponse(created),
	})
}

// handleTransactionByID serves DELETE /transactions/{id}.
func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/transactions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	if err := s.transactions.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "Delete transaction failed",
			log.FieldTransactionID, id, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleSummary serves GET /summary/{categories|tags|people}?year=&month=.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	dimension := strings.TrimPrefix(r.URL.Path, "/summary/")
	params, err := parseMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.summaries.Month(r.Context(), dimension, params.Year, params.Month)
	if err != nil {
		if errors.Is(err, services.ErrUnknownDimension) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.ErrorContext(r.Context(), "Summary failed",
			log.FieldDimension, dimension, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to compute summary")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"year":            params.Year,
		"month":           params.Month,
		"dimension":       dimension,
		"summaries":       toSummaryResponses(result.Summaries),
		"unresolved_refs": result.Unresolved,
	})
}

type categoryResponse struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	ParentID string             `json:"parent_id,omitempty"`
	Icon     string             `json:"icon,omitempty"`
	Color    string             `json:"color,omitempty"`
	BgColor  string             `json:"bg_color,omitempty"`
	IsSystem bool               `json:"is_system,omitempty"`
	Children []categoryResponse `json:"children,omitempty"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	out := categoryResponse{
		ID: c.ID, Name: c.Name, ParentID: c.ParentID,
		Icon: c.Icon, Color: c.Color, BgColor: c.BgColor, IsSystem: c.IsSystem,
	}
	for _, child := range c.Children {
		out.Children = append(out.Children, toCategoryResponse(child))
	}
	return out
}

// handleLookups serves GET /lookups: the full reference table.
func (s *Server) handleLookups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	lk, err := s.transactions.Lookups(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Lookups failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to load lookups")
		return
	}

	categories := make([]categoryResponse, len(lk.Categories))
	for i, c := range lk.Categories {
		categories[i] = toCategoryResponse(c)
	}

	tags := make([]map[string]any, len(lk.Tags))
	for i, t := range lk.Tags {
		tags[i] = map[string]any{"id": t.ID, "name": t.Name}
	}

	people := make([]map[string]any, len(lk.People))
	for i, p := range lk.People {
		people[i] = map[string]any{"id": p.ID, "name": p.Name, "balance_cents": p.BalanceCents}
	}

	accounts := make([]map[string]any, len(lk.Accounts))
	for i, a := range lk.Accounts {
		accounts[i] = map[string]any{"id": a.ID, "name": a.Name, "icon": a.Icon}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"categories": categories,
		"tags":       tags,
		"people":     people,
		"accounts":   accounts,
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.transactions.Lookups(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "backend not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// isQuerySpecError tells a bad filter or sort spec (caller error) apart from
// backend failures.
func isQuerySpecError(err error) bool {
	return errors.Is(err, core.ErrInvalidType) ||
		errors.Is(err, core.ErrInvalidSort) ||
		errors.Is(err, core.ErrInvalidAmountOp)
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidAmount, core.ErrInvalidType, core.ErrEmptyTitle,
		core.ErrEmptyAccount, core.ErrInvalidTransfer, core.ErrMissingToAccount,
		core.ErrZeroDate,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
