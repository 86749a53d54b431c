// Package ledger computes and resolves per-student monthly balance
// snapshots. The calculator derives a period's closing position from its
// transactions and the prior carry; the resolver serves snapshots, lazily
// materializing missing closed periods.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fazztrack/backend/internal/period"
)

// DepositSummer totals a student's deposit amounts over [from, to).
type DepositSummer interface {
	SumByStudent(ctx context.Context, studentID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
}

// ChargeSummer totals a student's charge totals over [from, to).
type ChargeSummer interface {
	SumByStudent(ctx context.Context, studentID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
}

// Balance is the sign-split closing position of one period. At most one
// field is positive.
type Balance struct {
	PendingCredit decimal.Decimal
	PendingDebit  decimal.Decimal
}

// Net returns the signed position: positive in the student's favor.
func (b Balance) Net() decimal.Decimal {
	return b.PendingCredit.Sub(b.PendingDebit)
}

func (b Balance) IsZero() bool {
	return b.PendingCredit.IsZero() && b.PendingDebit.IsZero()
}

// Split folds a signed net position into the two-column pending form:
// a surplus goes to PendingCredit, a shortfall to PendingDebit.
func Split(net decimal.Decimal) Balance {
	switch net.Sign() {
	case 1:
		return Balance{PendingCredit: net, PendingDebit: decimal.Zero}
	case -1:
		return Balance{PendingCredit: decimal.Zero, PendingDebit: net.Abs()}
	default:
		return Balance{PendingCredit: decimal.Zero, PendingDebit: decimal.Zero}
	}
}

// Activity is a period's raw transaction totals for one student.
type Activity struct {
	Deposits decimal.Decimal
	Charges  decimal.Decimal
}

// HasTransactions reports whether the period saw any movement.
func (a Activity) HasTransactions() bool {
	return !a.Deposits.IsZero() || !a.Charges.IsZero()
}

// Calculator computes period balances. It performs no persistence; writing
// the result back is the caller's job.
type Calculator struct {
	deposits DepositSummer
	charges  ChargeSummer
	loc      *time.Location
}

// NewCalculator builds a calculator whose period bounds are anchored to loc.
func NewCalculator(deposits DepositSummer, charges ChargeSummer, loc *time.Location) *Calculator {
	return &Calculator{deposits: deposits, charges: charges, loc: loc}
}

// Activity sums the student's deposits and charges inside p's calendar bounds.
func (c *Calculator) Activity(ctx context.Context, studentID uuid.UUID, p period.Period) (Activity, error) {
	from, to := p.Bounds(c.loc)
	dep, err := c.deposits.SumByStudent(ctx, studentID, from, to)
	if err != nil {
		return Activity{}, err
	}
	chg, err := c.charges.SumByStudent(ctx, studentID, from, to)
	if err != nil {
		return Activity{}, err
	}
	return Activity{Deposits: dep, Charges: chg}, nil
}

// Compute derives p's closing balance from its transactions and the prior
// period's carry: deposits - charges + prior credit - prior debit, sign-split.
// Deterministic for fixed inputs.
func (c *Calculator) Compute(ctx context.Context, studentID uuid.UUID, p period.Period, prior Balance) (Balance, error) {
	act, err := c.Activity(ctx, studentID, p)
	if err != nil {
		return Balance{}, err
	}
	return Split(act.Deposits.Sub(act.Charges).Add(prior.Net())), nil
}
