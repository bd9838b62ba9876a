package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func ptr(v int64) *int64 { return &v }

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name   string
		typ    TransactionType
		amount string
		want   string
	}{
		{"expense of 25 stored as -25", Expense, "25", "-25"},
		{"expense already negative kept negative", Expense, "-25", "-25"},
		{"income stored positive", Income, "1200.50", "1200.50"},
		{"income with stray sign flipped positive", Income, "-1200.50", "1200.50"},
		{"saving stored positive", Saving, "75", "75"},
		{"withdraw stored positive", Withdraw, "-30", "30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAmount(tt.typ, dec(tt.amount))
			if !got.Equal(dec(tt.want)) {
				t.Errorf("NormalizeAmount(%s, %s) = %s, want %s", tt.typ, tt.amount, got, tt.want)
			}
		})
	}
}

func TestBalanceDelta(t *testing.T) {
	tests := []struct {
		name   string
		typ    TransactionType
		amount string
		want   string
	}{
		{"income raises balance", Income, "100", "100"},
		{"expense lowers balance via stored sign", Expense, "-25", "-25"},
		{"saving moves money into the pot", Saving, "40", "-40"},
		{"withdraw moves money back", Withdraw, "40", "40"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.typ.BalanceDelta(dec(tt.amount))
			if !got.Equal(dec(tt.want)) {
				t.Errorf("%s.BalanceDelta(%s) = %s, want %s", tt.typ, tt.amount, got, tt.want)
			}
		})
	}
}

func TestPotDelta(t *testing.T) {
	if got := Saving.PotDelta(dec("40")); !got.Equal(dec("40")) {
		t.Errorf("Saving.PotDelta = %s, want 40", got)
	}
	if got := Withdraw.PotDelta(dec("40")); !got.Equal(dec("-40")) {
		t.Errorf("Withdraw.PotDelta = %s, want -40", got)
	}
	if got := Income.PotDelta(dec("40")); !got.IsZero() {
		t.Errorf("Income.PotDelta = %s, want 0", got)
	}
}

func TestTransactionValidateLinkage(t *testing.T) {
	base := Transaction{
		Name:            "Groceries",
		Amount:          decimal.NewFromInt(-25),
		Category:        "Food",
		Type:            Expense,
		TransactionDate: NewDate(2026, 8, 15),
	}

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{"expense with budget ok", func(tr *Transaction) { tr.BudgetID = ptr(1) }, nil},
		{"expense with pot rejected", func(tr *Transaction) { tr.SavingPotID = ptr(1) }, ErrPotOnSaving},
		{"income with budget rejected", func(tr *Transaction) {
			tr.Type = Income
			tr.Amount = dec("100")
			tr.BudgetID = ptr(1)
		}, ErrIncomeLinked},
		{"income with pot rejected", func(tr *Transaction) {
			tr.Type = Income
			tr.Amount = dec("100")
			tr.SavingPotID = ptr(1)
		}, ErrIncomeLinked},
		{"saving without pot rejected", func(tr *Transaction) {
			tr.Type = Saving
			tr.Amount = dec("50")
		}, ErrPotLinkRequired},
		{"withdraw with budget rejected", func(tr *Transaction) {
			tr.Type = Withdraw
			tr.Amount = dec("50")
			tr.BudgetID = ptr(1)
			tr.SavingPotID = ptr(2)
		}, ErrBudgetOnExpense},
		{"saving with pot ok", func(tr *Transaction) {
			tr.Type = Saving
			tr.Amount = dec("50")
			tr.SavingPotID = ptr(2)
		}, nil},
		{"zero amount rejected", func(tr *Transaction) { tr.Amount = decimal.Zero }, ErrInvalidAmount},
		{"blank name rejected", func(tr *Transaction) { tr.Name = "  " }, ErrEmptyName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := base
			tt.mutate(&tr)
			err := tr.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseTransactionType(t *testing.T) {
	if got, err := ParseTransactionType("EXPENSE"); err != nil || got != Expense {
		t.Errorf("ParseTransactionType(EXPENSE) = %v, %v", got, err)
	}
	if _, err := ParseTransactionType("loan"); !errors.Is(err, ErrInvalidType) {
		t.Errorf("expected ErrInvalidType, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-08-30")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.String() != "2026-08-30" {
		t.Errorf("round trip = %s", d.String())
	}
	if _, err := ParseDate("30/08/2026"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestInitials(t *testing.T) {
	tests := []struct{ name, want string }{
		{"Ada Lovelace", "AL"},
		{"Plato", "P"},
		{"Mary Jane Watson", "MW"},
		{"Élodie Durand", "ÉD"},
		{"Ömer Çelik", "ÖÇ"},
		{"Åsa", "Å"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Initials(tt.name); got != tt.want {
			t.Errorf("Initials(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestRecurringBillValidate(t *testing.T) {
	bill := RecurringBill{
		Name:    "Rent",
		Amount:  dec("900"),
		DueDate: NewDate(2026, 9, 1),
		Status:  BillPending,
	}
	if err := bill.Validate(); err != nil {
		t.Fatalf("valid bill rejected: %v", err)
	}

	bill.Status = "late"
	if err := bill.Validate(); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}
