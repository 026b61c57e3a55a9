/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  internal domain model from the external contract. Amounts travel as
  strings to keep exact fixed-point semantics; dates as YYYY-MM-DD.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/forecast-engine/engine"
	"github.com/warp/forecast-engine/forecast"
)

// =============================================================================
// TEMPLATES
// =============================================================================

// TemplateDTO represents a scheduled template in API responses.
type TemplateDTO struct {
	ID       int    `json:"id"`
	MotherID int    `json:"mother_id,omitempty"`
	Account  int    `json:"account"`
	Date     string `json:"date"`
	Amount   string `json:"amount"`

	Payee       int `json:"payee,omitempty"`
	Category    int `json:"category,omitempty"`
	SubCategory int `json:"sub_category,omitempty"`
	Budget      int `json:"budget,omitempty"`
	SubBudget   int `json:"sub_budget,omitempty"`

	Frequency     string `json:"frequency"`
	IntervalUnit  string `json:"interval_unit,omitempty"`
	IntervalCount int    `json:"interval_count,omitempty"`
	LimitDate     string `json:"limit_date,omitempty"`
	FixedDay      int    `json:"fixed_day,omitempty"`

	Transfer        bool `json:"transfer,omitempty"`
	TransferAccount int  `json:"transfer_account,omitempty"`
	Split           bool `json:"split,omitempty"`
	LoanLinked      bool `json:"loan_linked,omitempty"`

	Automatic bool   `json:"automatic,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// TemplateRequest is the request body for create/update.
type TemplateRequest struct {
	MotherID int    `json:"mother_id"`
	Account  int    `json:"account"`
	Date     string `json:"date"`
	Amount   string `json:"amount"`

	Payee       int `json:"payee"`
	Category    int `json:"category"`
	SubCategory int `json:"sub_category"`
	Budget      int `json:"budget"`
	SubBudget   int `json:"sub_budget"`

	Frequency     string `json:"frequency"`
	IntervalUnit  string `json:"interval_unit"`
	IntervalCount int    `json:"interval_count"`
	LimitDate     string `json:"limit_date"`
	FixedDay      int    `json:"fixed_day"`

	Transfer        bool `json:"transfer"`
	TransferAccount int  `json:"transfer_account"`
	Split           bool `json:"split"`
	LoanLinked      bool `json:"loan_linked"`

	Automatic bool   `json:"automatic"`
	Notes     string `json:"notes"`
}

// OccurrenceDTO represents one projected occurrence.
type OccurrenceDTO struct {
	TemplateID    int    `json:"template_id"`
	ChildID       int    `json:"child_id,omitempty"`
	Date          string `json:"date"`
	Amount        string `json:"amount"`
	Ordinal       int    `json:"ordinal"`
	Virtual       bool   `json:"virtual,omitempty"`
	Summary       bool   `json:"summary,omitempty"`
	Variance      string `json:"variance,omitempty"`
	VarianceAlert bool   `json:"variance_alert,omitempty"`
}

// OccurrencesResponse bundles occurrences with the orphans found.
type OccurrencesResponse struct {
	Occurrences []OccurrenceDTO `json:"occurrences"`
	Orphans     []int           `json:"orphans,omitempty"`
}

// =============================================================================
// DIVISIONS
// =============================================================================

// DivisionAmountDTO is one aggregated division value.
type DivisionAmountDTO struct {
	Account     int    `json:"account"`
	Division    int    `json:"division"`
	SubDivision int    `json:"sub_division,omitempty"`
	Amount      string `json:"amount"`
	FiscalYear  string `json:"fiscal_year"`
	Edited      bool   `json:"edited,omitempty"`
}

// SetManualRequest sets a manual division amount.
type SetManualRequest struct {
	Division    int    `json:"division"`
	SubDivision int    `json:"sub_division"`
	Amount      string `json:"amount"`
}

// =============================================================================
// TRANSFERS
// =============================================================================

// TransferDTO represents a deferred-debit transfer template.
type TransferDTO struct {
	ID             int    `json:"id"`
	MainAccount    int    `json:"main_account"`
	CardAccount    int    `json:"card_account"`
	PartialBalance bool   `json:"partial_balance,omitempty"`
	FixedDebitDay  bool   `json:"fixed_debit_day,omitempty"`
	DirectDebit    bool   `json:"direct_debit,omitempty"`
	DebitDate      string `json:"debit_date"`
	BasculeDate    string `json:"bascule_date"`
	State          string `json:"state,omitempty"`
}

// TransferRequest is the request body for creating a transfer template.
type TransferRequest struct {
	MainAccount    int    `json:"main_account"`
	CardAccount    int    `json:"card_account"`
	PartialBalance bool   `json:"partial_balance"`
	FixedDebitDay  bool   `json:"fixed_debit_day"`
	DirectDebit    bool   `json:"direct_debit"`
	DebitDate      string `json:"debit_date"`
	BasculeDate    string `json:"bascule_date"`
	MainPayee      int    `json:"main_payee"`
	MainPayment    int    `json:"main_payment"`
	MainCategory   int    `json:"main_category"`
	MainSubCat     int    `json:"main_sub_cat"`
	CardCategory   int    `json:"card_category"`
	CardSubCat     int    `json:"card_sub_cat"`
}

// RollRequest triggers a roll-over check.
type RollRequest struct {
	Today   string `json:"today"`
	Force   bool   `json:"force"`
	Confirm bool   `json:"confirm"`
}

// DeleteOrphansRequest removes orphan children in bulk.
type DeleteOrphansRequest struct {
	IDs     []int `json:"ids"`
	Confirm bool  `json:"confirm"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toTemplateDTO(t *engine.ScheduledTemplate) TemplateDTO {
	return TemplateDTO{
		ID:              t.ID,
		MotherID:        t.MotherID,
		Account:         t.Account,
		Date:            t.Date.String(),
		Amount:          t.Amount.String(),
		Payee:           t.Payee,
		Category:        t.Category,
		SubCategory:     t.SubCategory,
		Budget:          t.Budget,
		SubBudget:       t.SubBudget,
		Frequency:       t.Frequency.String(),
		IntervalUnit:    t.IntervalUnit.String(),
		IntervalCount:   t.IntervalCount,
		LimitDate:       dateText(t.LimitDate),
		FixedDay:        t.FixedDay,
		Transfer:        t.Transfer,
		TransferAccount: t.TransferAccount,
		Split:           t.Split,
		LoanLinked:      t.LoanLinked,
		Automatic:       t.Automatic,
		Notes:           t.Notes,
	}
}

func toOccurrenceDTO(o engine.Occurrence) OccurrenceDTO {
	dto := OccurrenceDTO{
		TemplateID:    o.TemplateID,
		ChildID:       o.ChildID,
		Date:          o.Date.String(),
		Amount:        o.Amount.String(),
		Ordinal:       o.Ordinal,
		Virtual:       o.Virtual,
		Summary:       o.Summary,
		VarianceAlert: o.VarianceAlert,
	}
	if o.Summary {
		dto.Variance = o.Variance.String()
	}
	return dto
}

func toTransferDTO(t *forecast.TransferTemplate, state forecast.RollState) TransferDTO {
	stateText := "pending"
	if state == forecast.RollDue {
		stateText = "due"
	}
	return TransferDTO{
		ID:             t.ID,
		MainAccount:    t.MainAccount,
		CardAccount:    t.CardAccount,
		PartialBalance: t.PartialBalance,
		FixedDebitDay:  t.FixedDebitDay,
		DirectDebit:    t.DirectDebit,
		DebitDate:      dateText(t.DebitDate),
		BasculeDate:    dateText(t.BasculeDate),
		State:          stateText,
	}
}

func (req TemplateRequest) toTemplate() (engine.ScheduledTemplate, error) {
	date, err := engine.ParseDate(req.Date)
	if err != nil {
		return engine.ScheduledTemplate{}, err
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return engine.ScheduledTemplate{}, err
	}
	t := engine.ScheduledTemplate{
		MotherID:        req.MotherID,
		Account:         req.Account,
		Date:            date,
		Amount:          amount,
		Payee:           req.Payee,
		Category:        req.Category,
		SubCategory:     req.SubCategory,
		Budget:          req.Budget,
		SubBudget:       req.SubBudget,
		Frequency:       parseFrequency(req.Frequency),
		IntervalUnit:    parseUnit(req.IntervalUnit),
		IntervalCount:   req.IntervalCount,
		FixedDay:        req.FixedDay,
		Transfer:        req.Transfer,
		TransferAccount: req.TransferAccount,
		Split:           req.Split,
		LoanLinked:      req.LoanLinked,
		Automatic:       req.Automatic,
		Notes:           req.Notes,
	}
	if req.LimitDate != "" {
		limit, err := engine.ParseDate(req.LimitDate)
		if err != nil {
			return engine.ScheduledTemplate{}, err
		}
		t.LimitDate = limit
	}
	return t, nil
}

func parseFrequency(s string) engine.Frequency {
	switch s {
	case "weekly":
		return engine.FreqWeekly
	case "monthly":
		return engine.FreqMonthly
	case "bimonthly":
		return engine.FreqBiMonthly
	case "quarterly":
		return engine.FreqQuarterly
	case "yearly":
		return engine.FreqYearly
	case "custom":
		return engine.FreqCustom
	default:
		return engine.FreqOnce
	}
}

func parseUnit(s string) engine.IntervalUnit {
	switch s {
	case "weeks":
		return engine.UnitWeeks
	case "months":
		return engine.UnitMonths
	case "years":
		return engine.UnitYears
	default:
		return engine.UnitDays
	}
}

func dateText(d engine.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}
