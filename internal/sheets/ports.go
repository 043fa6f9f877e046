package sheets

import (
	"context"

	"gastos/internal/core"
)

// Ports for outbound adapters.
type (
	// MonthWriter mirrors ledger months into a spreadsheet, one row per
	// user and month.
	MonthWriter interface {
		UpsertMonth(ctx context.Context, uid int64, key core.MonthKey, m core.Month) (rowRef string, err error)
		// ClearMonth blanks the row of a deleted month. A missing row is not
		// an error.
		ClearMonth(ctx context.Context, uid int64, key core.MonthKey) error
	}

	// MonthReader reads back what the sheet currently holds for a user.
	MonthReader interface {
		ReadMonths(ctx context.Context, uid int64) (map[core.MonthKey]core.Month, error)
	}
)
