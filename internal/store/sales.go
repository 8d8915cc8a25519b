package store

import (
	"context"
	"time"

	"lagrace/internal/domain"
)

const dateLayout = "2006-01-02"

// PeriodRange returns the [from, to) day range covered by a period entity.
// Unknown periods mean today.
func PeriodRange(period string, now time.Time) (time.Time, time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)
	switch period {
	case domain.PeriodYesterday:
		return today.AddDate(0, 0, -1), today
	case domain.PeriodWeek:
		return today.AddDate(0, 0, -7), tomorrow
	case domain.PeriodMonth:
		return today.AddDate(0, 0, -30), tomorrow
	case domain.PeriodYear:
		return today.AddDate(0, 0, -365), tomorrow
	default:
		return today, tomorrow
	}
}

func (s *Store) SalesToday(ctx context.Context) (domain.SalesTotals, error) {
	return s.SalesForPeriod(ctx, domain.PeriodToday)
}

func (s *Store) SalesForPeriod(ctx context.Context, period string) (domain.SalesTotals, error) {
	from, to := PeriodRange(period, s.now())
	return s.SalesBetween(ctx, from, to)
}

// SalesBetween sums sales whose day falls in [from, to).
func (s *Store) SalesBetween(ctx context.Context, from, to time.Time) (domain.SalesTotals, error) {
	day := s.dialect.dateOf("created_at")
	var t domain.SalesTotals
	err := s.queryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_cdf), 0), COALESCE(SUM(total_usd), 0)
		FROM sales
		WHERE `+day+` >= ? AND `+day+` < ?`,
		from.Format(dateLayout), to.Format(dateLayout),
	).Scan(&t.Count, &t.TotalCDF, &t.TotalUSD)
	return t, err
}

// LastSale returns the most recent sale.
func (s *Store) LastSale(ctx context.Context) (domain.Sale, error) {
	var (
		sale      domain.Sale
		invoice   *string
		createdAt any
	)
	err := s.queryRow(ctx, `
		SELECT id, invoice_number, total_cdf, total_usd, created_at
		FROM sales
		ORDER BY created_at DESC
		LIMIT 1`,
	).Scan(&sale.ID, &invoice, &sale.TotalCDF, &sale.TotalUSD, &createdAt)
	if isNoRows(err) {
		return domain.Sale{}, ErrNotFound
	}
	if err != nil {
		return domain.Sale{}, err
	}
	if invoice != nil {
		sale.InvoiceNumber = *invoice
	}
	sale.CreatedAt = parseTime(createdAt)
	return sale, nil
}
