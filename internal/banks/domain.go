// Package banks manages the business's bank accounts.
package banks

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
)

var (
	// ErrNotFound indicates the bank account does not exist.
	ErrNotFound = errors.New("banks: bank not found")
	// ErrDuplicateAccount indicates the account number is already registered.
	ErrDuplicateAccount = fmt.Errorf("banks: account number exists: %w", httpx.ErrDuplicate)
)

// Bank is a bank account.
type Bank struct {
	ID            int64     `json:"id"`
	BankName      string    `json:"bankName"`
	AccountName   string    `json:"accountName"`
	AccountNumber string    `json:"accountNumber"`
	Branch        string    `json:"branch"`
	Currency      string    `json:"currency"`
	Balance       float64   `json:"balance"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Input is the create/update payload. IsActive defaults to true.
type Input struct {
	BankName      string  `json:"bankName" validate:"required"`
	AccountName   string  `json:"accountName" validate:"required"`
	AccountNumber string  `json:"accountNumber" validate:"required,max=64"`
	Branch        string  `json:"branch"`
	Currency      string  `json:"currency" validate:"omitempty,len=3"`
	Balance       float64 `json:"balance"`
	IsActive      *bool   `json:"isActive"`
}

func (in Input) apply(b *Bank) {
	b.BankName = strings.TrimSpace(in.BankName)
	b.AccountName = strings.TrimSpace(in.AccountName)
	b.AccountNumber = strings.TrimSpace(in.AccountNumber)
	b.Branch = in.Branch
	b.Currency = strings.ToUpper(in.Currency)
	b.Balance = in.Balance
	b.IsActive = true
	if in.IsActive != nil {
		b.IsActive = *in.IsActive
	}
}
