package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Saving   TransactionType = "saving"
	Withdraw TransactionType = "withdraw"
)

const (
	BillPaid    BillStatus = "paid"
	BillPending BillStatus = "pending"
	BillOverdue BillStatus = "overdue"
)

type (
	TransactionType string

	BillStatus string

	// Date is a calendar date without a time component. It marshals as
	// YYYY-MM-DD, the format the REST contract uses for transactionDate
	// and dueDate.
	Date struct {
		time.Time
	}

	User struct {
		ID             int64           `json:"id"`
		Name           string          `json:"name"`
		Email          string          `json:"email"`
		Initials       string          `json:"initials,omitempty"`
		CurrentBalance decimal.Decimal `json:"currentBalance"`
		CreatedAt      time.Time       `json:"createdAt"`
		UpdatedAt      time.Time       `json:"updatedAt"`
	}

	Transaction struct {
		ID              int64           `json:"id"`
		Name            string          `json:"name"`
		Amount          decimal.Decimal `json:"amount"`
		Category        string          `json:"category"`
		Type            TransactionType `json:"type"`
		TransactionDate Date            `json:"transactionDate"`
		BudgetID        *int64          `json:"budgetId,omitempty"`
		SavingPotID     *int64          `json:"savingPotId,omitempty"`
		Icon            string          `json:"icon,omitempty"`
		Color           string          `json:"color,omitempty"`
		CreatedAt       time.Time       `json:"createdAt"`
		UpdatedAt       time.Time       `json:"updatedAt"`
	}

	Budget struct {
		ID               int64           `json:"id"`
		Category         string          `json:"category"`
		Spent            decimal.Decimal `json:"spent"`
		LimitAmount      decimal.Decimal `json:"limitAmount"`
		TransactionCount int             `json:"transactionCount"`
		Color            string          `json:"color,omitempty"`
		CreatedAt        time.Time       `json:"createdAt"`
		UpdatedAt        time.Time       `json:"updatedAt"`
	}

	SavingPot struct {
		ID               int64           `json:"id"`
		Name             string          `json:"name"`
		Saved            decimal.Decimal `json:"saved"`
		Goal             decimal.Decimal `json:"goal"`
		TransactionCount int             `json:"transactionCount"`
		Icon             string          `json:"icon,omitempty"`
		Color            string          `json:"color,omitempty"`
		CreatedAt        time.Time       `json:"createdAt"`
		UpdatedAt        time.Time       `json:"updatedAt"`
	}

	RecurringBill struct {
		ID        int64           `json:"id"`
		Name      string          `json:"name"`
		Amount    decimal.Decimal `json:"amount"`
		DueDate   Date            `json:"dueDate"`
		Category  string          `json:"category"`
		Status    BillStatus      `json:"status"`
		CreatedAt time.Time       `json:"createdAt"`
		UpdatedAt time.Time       `json:"updatedAt"`
	}

	// DashboardStats is a server-computed snapshot, never persisted.
	DashboardStats struct {
		CurrentBalance       decimal.Decimal `json:"currentBalance"`
		BalanceChange        decimal.Decimal `json:"balanceChange"`
		BalanceChangePercent float64         `json:"balanceChangePercent"`
		Income               decimal.Decimal `json:"income"`
		IncomeChange         decimal.Decimal `json:"incomeChange"`
		IncomeChangePercent  float64         `json:"incomeChangePercent"`
		Expenses             decimal.Decimal `json:"expenses"`
		ExpenseChange        decimal.Decimal `json:"expenseChange"`
		ExpenseChangePercent float64         `json:"expenseChangePercent"`
		Savings              decimal.Decimal `json:"savings"`
		SavingsChange        decimal.Decimal `json:"savingsChange"`
		SavingsChangePercent float64         `json:"savingsChangePercent"`
		Period               string          `json:"period"`
		TransactionCount     int             `json:"transactionCount"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidStatus    = errors.New("invalid bill status")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidDate      = errors.New("invalid date")
	ErrBudgetOnExpense  = errors.New("only expense transactions can be linked to a budget")
	ErrPotLinkRequired  = errors.New("saving and withdraw transactions must be linked to a saving pot")
	ErrPotOnSaving      = errors.New("only saving and withdraw transactions can be linked to a saving pot")
	ErrIncomeLinked     = errors.New("income transactions cannot be linked to budgets or saving pots")
)

// ParseTransactionType parses a type string case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToLower(strings.TrimSpace(s))); t {
	case Income, Expense, Saving, Withdraw:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}

// ParseBillStatus parses a bill status string case-insensitively.
func ParseBillStatus(s string) (BillStatus, error) {
	switch b := BillStatus(strings.ToLower(strings.TrimSpace(s))); b {
	case BillPaid, BillPending, BillOverdue:
		return b, nil
	default:
		return "", ErrInvalidStatus
	}
}

func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NormalizeAmount applies the signed-at-rest convention: expenses are stored
// negative regardless of the sign the caller supplied, every other type is
// stored positive.
func NormalizeAmount(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	abs := amount.Abs()
	if t == Expense {
		return abs.Neg()
	}
	return abs
}

// BalanceDelta returns the change a stored transaction amount applies to the
// owning user's balance. Amounts are assumed normalized, so expenses carry
// their sign already.
func (t TransactionType) BalanceDelta(amount decimal.Decimal) decimal.Decimal {
	switch t {
	case Income, Expense, Withdraw:
		return amount
	case Saving:
		return amount.Neg()
	}
	return decimal.Zero
}

// PotDelta returns the change a stored transaction amount applies to the
// linked saving pot's saved balance.
func (t TransactionType) PotDelta(amount decimal.Decimal) decimal.Decimal {
	switch t {
	case Saving:
		return amount
	case Withdraw:
		return amount.Neg()
	}
	return decimal.Zero
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if !strings.Contains(u.Email, "@") {
		return errors.New("invalid email")
	}
	return nil
}

// Validate checks field presence and the budget/pot linkage rules: a
// transaction links to at most one of budget and pot, saving/withdraw must
// reference a pot, expenses may reference a budget, income references neither.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if t.TransactionDate.IsZero() {
		return ErrInvalidDate
	}
	switch t.Type {
	case Income:
		if t.BudgetID != nil || t.SavingPotID != nil {
			return ErrIncomeLinked
		}
	case Expense:
		if t.SavingPotID != nil {
			return ErrPotOnSaving
		}
	case Saving, Withdraw:
		if t.BudgetID != nil {
			return ErrBudgetOnExpense
		}
		if t.SavingPotID == nil {
			return ErrPotLinkRequired
		}
	default:
		return ErrInvalidType
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.LimitAmount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	return nil
}

func (p SavingPot) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.Goal.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	return nil
}

func (b RecurringBill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if b.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if b.DueDate.IsZero() {
		return ErrInvalidDate
	}
	switch b.Status {
	case BillPaid, BillPending, BillOverdue:
	default:
		return ErrInvalidStatus
	}
	return nil
}

// Initials derives up-to-two uppercase initials from a display name.
func Initials(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	first, _ := utf8.DecodeRuneInString(fields[0])
	if len(fields) == 1 {
		return strings.ToUpper(string(first))
	}
	last, _ := utf8.DecodeRuneInString(fields[len(fields)-1])
	return strings.ToUpper(string(first) + string(last))
}
