// Request parameter decoding: query strings become filter and sort
// specifications, JSON bodies become transactions.
package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tally/internal/core"
)

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// parseMonthParams extracts year and month from the query string, using
// the current UTC month as default.
func parseMonthParams(query url.Values) (MonthParams, error) {
	now := time.Now().UTC()
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &params.Year); err != nil {
			return params, fmt.Errorf("invalid year %q", v)
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &params.Month); err != nil {
			return params, fmt.Errorf("invalid month %q", v)
		}
	}
	if params.Month < 1 || params.Month > 12 {
		return params, fmt.Errorf("invalid month %d", params.Month)
	}
	return params, nil
}

// parseFilter decodes the list-endpoint query string. Multi-value
// dimensions are comma separated; absent parameters leave the dimension
// unrestricted.
func parseFilter(query url.Values) (core.Filter, error) {
	var f core.Filter

	for _, v := range splitList(query.Get("types")) {
		f.Types = append(f.Types, core.TransactionType(v))
	}
	f.Categories = splitList(query.Get("categories"))
	f.Tags = splitList(query.Get("tags"))
	f.People = splitList(query.Get("people"))
	f.Accounts = splitList(query.Get("accounts"))

	if v := strings.TrimSpace(query.Get("from")); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, fmt.Errorf("invalid from date: %w", err)
		}
		f.From = t
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, fmt.Errorf("invalid to date: %w", err)
		}
		f.To = t
	}

	if op := strings.TrimSpace(query.Get("amount_op")); op != "" {
		f.Amount = core.AmountFilter{
			Op:     core.AmountOp(op),
			Value1: strings.TrimSpace(query.Get("amount_value1")),
			Value2: strings.TrimSpace(query.Get("amount_value2")),
		}
	}

	return f, nil
}

// parseSort decodes sort_by and sort_dir, defaulting to date descending.
func parseSort(query url.Values) core.Sort {
	s := core.Sort{Field: core.SortByDate, Direction: core.Descending}
	if v := strings.TrimSpace(query.Get("sort_by")); v != "" {
		s.Field = core.SortField(v)
	}
	if v := strings.TrimSpace(query.Get("sort_dir")); v != "" {
		s.Direction = core.SortDirection(v)
	}
	return s
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// transactionRequest is the JSON body for POST /transactions. Amount is a
// decimal string to keep cents exact.
type transactionRequest struct {
	Title       string   `json:"title"`
	Amount      string   `json:"amount"`
	Date        string   `json:"date"`
	Type        string   `json:"type"`
	CategoryID  string   `json:"category_id"`
	AccountID   string   `json:"account_id"`
	ToAccountID string   `json:"to_account_id"`
	PersonID    string   `json:"person_id"`
	TagIDs      []string `json:"tag_ids"`
	Note        string   `json:"note"`
}

func decodeTransactionRequest(r *http.Request) (core.Transaction, error) {
	var req transactionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return core.Transaction{}, fmt.Errorf("decode body: %w", err)
	}

	cents, err := core.ParseAmountCents(req.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("invalid amount: %w", err)
	}

	date := time.Now().UTC()
	if req.Date != "" {
		date, err = parseDate(req.Date)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("invalid date: %w", err)
		}
	}

	return core.Transaction{
		Title:       strings.TrimSpace(req.Title),
		Amount:      core.Money{Cents: cents},
		Date:        date,
		Type:        core.TransactionType(req.Type),
		CategoryID:  req.CategoryID,
		AccountID:   req.AccountID,
		ToAccountID: req.ToAccountID,
		PersonID:    req.PersonID,
		TagIDs:      req.TagIDs,
		Note:        strings.TrimSpace(req.Note),
	}, nil
}
