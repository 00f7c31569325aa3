package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cesargomez89/fetchpay/internal/constants"
	"github.com/cesargomez89/fetchpay/internal/domain"
	"github.com/cesargomez89/fetchpay/internal/ledger"
	"github.com/cesargomez89/fetchpay/internal/logger"
	"github.com/cesargomez89/fetchpay/internal/store"
)

var (
	// ErrUnknownPackage is returned when a top-up requests a credit
	// amount with no matching package.
	ErrUnknownPackage = errors.New("unknown top-up package")
	// ErrInvoiceNotFound is returned when confirming an invoice ID we
	// never issued.
	ErrInvoiceNotFound = errors.New("invoice not found")
	// ErrInvoiceUnpaid is returned when the provider has not seen a
	// payment for the invoice yet.
	ErrInvoiceUnpaid = errors.New("invoice not paid yet")
)

// Service creates top-up invoices and credits accounts once payment is
// confirmed. Each invoice is credited at most once regardless of how many
// times confirmation is requested.
type Service struct {
	repo     *store.DB
	ledger   *ledger.Ledger
	provider *Provider
	log      *logger.Logger
}

func NewService(repo *store.DB, ldg *ledger.Ledger, provider *Provider, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	return &Service{
		repo:     repo,
		ledger:   ldg,
		provider: provider,
		log:      log.WithComponent("payments"),
	}
}

// CreateInvoice opens a crypto invoice for one of the fixed packages and
// records it as pending.
func (s *Service) CreateInvoice(ctx context.Context, accountID string, credits int64) (*domain.Invoice, error) {
	pkg := FindPackage(credits)
	if pkg == nil {
		return nil, ErrUnknownPackage
	}

	amountUSD := float64(pkg.Credits) * constants.CreditPriceUSD
	description := fmt.Sprintf("%d credits", pkg.Credits)

	ext, err := s.provider.CreateInvoice(ctx, amountUSD, description)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	inv := &domain.Invoice{
		ID:         uuid.New().String(),
		CreatedAt:  now,
		UpdatedAt:  now,
		AccountID:  accountID,
		Provider:   "crypto",
		ExternalID: ext.ID,
		PayURL:     ext.PayURL,
		Status:     domain.InvoiceStatusPending,
		Credits:    pkg.Credits,
	}
	if err := s.repo.CreateInvoice(inv); err != nil {
		return nil, fmt.Errorf("record invoice: %w", err)
	}

	s.log.Info("Invoice created", "invoice_id", inv.ID, "account_id", accountID, "credits", credits)
	return inv, nil
}

// Confirm checks the invoice with the provider and, if paid, credits the
// account. Repeat calls after a successful confirmation return the current
// balance without crediting again.
func (s *Service) Confirm(ctx context.Context, invoiceID string) (int64, error) {
	inv, err := s.repo.GetInvoice(invoiceID)
	if err != nil {
		return 0, fmt.Errorf("load invoice: %w", err)
	}
	if inv == nil {
		return 0, ErrInvoiceNotFound
	}

	if inv.Status != domain.InvoiceStatusCredited {
		ext, err := s.provider.GetInvoice(ctx, inv.ExternalID)
		if err != nil {
			return 0, err
		}
		if ext.Status != "paid" {
			return 0, ErrInvoiceUnpaid
		}

		// Single transaction: the invoice flip and the balance change
		// commit together or not at all.
		credited, err := s.ledger.CreditInvoice(inv.ID, inv.AccountID, inv.Credits)
		if err != nil {
			return 0, err
		}
		if credited {
			s.log.Info("Invoice confirmed", "invoice_id", inv.ID, "account_id", inv.AccountID, "credits", inv.Credits)
		}
	}

	return s.ledger.GetOrCreate(inv.AccountID)
}

// CreditPackage applies a star package payment that completed out of band.
func (s *Service) CreditPackage(accountID string, credits int64) (int64, error) {
	pkg := FindPackage(credits)
	if pkg == nil {
		return 0, ErrUnknownPackage
	}
	if err := s.ledger.Credit(accountID, pkg.Credits); err != nil {
		return 0, err
	}
	s.log.Info("Package credited", "account_id", accountID, "credits", pkg.Credits)
	return s.ledger.GetOrCreate(accountID)
}
