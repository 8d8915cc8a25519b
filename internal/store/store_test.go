package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lagrace/internal/domain"
)

const fixtureSchema = `
CREATE TABLE products (
	id INTEGER PRIMARY KEY,
	code TEXT NOT NULL,
	label TEXT NOT NULL,
	brand TEXT,
	sell_price REAL,
	buy_price REAL
);
CREATE TABLE stock (product_id INTEGER, quantity REAL);
CREATE TABLE sales (
	id INTEGER PRIMARY KEY,
	invoice_number TEXT,
	total_cdf REAL,
	total_usd REAL,
	created_at TEXT
);
CREATE TABLE debts (
	id INTEGER PRIMARY KEY,
	client_name TEXT,
	amount_cdf REAL,
	amount_usd REAL,
	status TEXT,
	due_date TEXT,
	created_at TEXT
);
INSERT INTO products VALUES (1, 'SAV01', 'SAVON OMO', 'OMO', 2500, 2000);
INSERT INTO products VALUES (2, 'MOS', 'MOSQUITO COIL', 'RAID', 1500, 1000);
INSERT INTO products VALUES (3, 'RIZ25', 'RIZ 25KG', NULL, 60000, 52000);
INSERT INTO stock VALUES (1, 0);
INSERT INTO stock VALUES (2, 3);
INSERT INTO sales VALUES (1, 'FAC-001', 250000, 100, '2026-10-17 09:00:00');
INSERT INTO sales VALUES (2, 'FAC-002', 50000, 20, '2026-10-17 11:30:00');
INSERT INTO sales VALUES (3, 'FAC-000', 10000, 4, '2026-10-16 18:00:00');
INSERT INTO sales VALUES (4, 'FAC-A', 5000, 2, '2026-10-12 10:00:00');
INSERT INTO sales VALUES (5, 'FAC-B', 1000, 1, '2026-08-01 10:00:00');
INSERT INTO debts VALUES (1, 'Mama Ngalula', 50000, 20, 'pending', '2026-11-01', '2026-10-01');
INSERT INTO debts VALUES (2, 'Papa Kabeya', 10000, 50, 'partial', NULL, '2026-10-02');
INSERT INTO debts VALUES (3, 'Jean', 5000, 1, 'paid', NULL, '2026-10-03');
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lagrace.db")

	w, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = w.Exec(fixtureSchema)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return path
}

func openFixture(t *testing.T) *Store {
	t.Helper()
	path := writeFixture(t)

	s, err := Open(context.Background(), DriverSQLite, path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.now = func() time.Time { return time.Date(2026, 10, 17, 15, 0, 0, 0, time.Local) }
	return s
}

func TestProductStock(t *testing.T) {
	s := openFixture(t)
	ctx := context.Background()

	p, err := s.ProductStock(ctx, "savon")
	require.NoError(t, err)
	assert.Equal(t, "SAV01", p.Code)
	assert.Equal(t, "SAVON OMO", p.DisplayName())
	assert.Equal(t, 0.0, p.Quantity)
	assert.Equal(t, 2500.0, p.SellPrice)

	p, err = s.ProductStock(ctx, "RAID")
	require.NoError(t, err)
	assert.Equal(t, "MOS", p.Code)
	assert.Equal(t, 3.0, p.Quantity)

	p, err = s.ProductPrice(ctx, "riz")
	require.NoError(t, err)
	assert.Equal(t, 60000.0, p.SellPrice)
	assert.Empty(t, p.Brand)

	_, err = s.ProductStock(ctx, "chocolat")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchAndLowStock(t *testing.T) {
	s := openFixture(t)
	ctx := context.Background()

	found, err := s.SearchProducts(ctx, "o", 5)
	require.NoError(t, err)
	require.NotEmpty(t, found)
	assert.Equal(t, "MOS", found[0].Code)

	low, err := s.LowStockProducts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "SAV01", low[0].Code)
	assert.Equal(t, "MOS", low[1].Code)
}

func TestSalesForPeriod(t *testing.T) {
	s := openFixture(t)
	ctx := context.Background()

	cases := []struct {
		period string
		count  int
		usd    float64
	}{
		{domain.PeriodToday, 2, 120},
		{domain.PeriodYesterday, 1, 4},
		{domain.PeriodWeek, 4, 126},
		{domain.PeriodMonth, 4, 126},
		{domain.PeriodYear, 5, 127},
		{"", 2, 120},
	}
	for _, tc := range cases {
		t.Run(tc.period, func(t *testing.T) {
			got, err := s.SalesForPeriod(ctx, tc.period)
			require.NoError(t, err)
			assert.Equal(t, tc.count, got.Count)
			assert.InDelta(t, tc.usd, got.TotalUSD, 1e-9)
		})
	}

	today, err := s.SalesToday(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 300000.0, today.TotalCDF, 1e-9)
}

func TestLastSale(t *testing.T) {
	s := openFixture(t)
	sale, err := s.LastSale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), sale.ID)
	assert.Equal(t, "FAC-002", sale.InvoiceNumber)
	assert.Equal(t, 11, sale.CreatedAt.Hour())
}

func TestDebts(t *testing.T) {
	s := openFixture(t)
	ctx := context.Background()

	totals, err := s.DebtTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Count)
	assert.InDelta(t, 60000.0, totals.TotalCDF, 1e-9)
	assert.InDelta(t, 70.0, totals.TotalUSD, 1e-9)

	top, err := s.TopDebts(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Papa Kabeya", top[0].ClientName)
	assert.Nil(t, top[0].DueDate)
	assert.Equal(t, "Mama Ngalula", top[1].ClientName)
	require.NotNil(t, top[1].DueDate)
	assert.Equal(t, time.November, top[1].DueDate.Month())
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()
	_, err := Open(ctx, "mysql", "x")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "absent.db"))
	assert.ErrorIs(t, err, ErrDatabaseMissing)
}

func TestResolveSQLitePath(t *testing.T) {
	dir := t.TempDir()
	_, err := ResolveSQLitePath([]string{filepath.Join(dir, "a.db"), ""})
	assert.ErrorIs(t, err, ErrDatabaseMissing)

	path := filepath.Join(dir, "b.db")
	w, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = w.Exec(`CREATE TABLE t (id INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := ResolveSQLitePath([]string{filepath.Join(dir, "a.db"), path})
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestRebindAndPeriodRange(t *testing.T) {
	assert.Equal(t, "a = $1 AND b = $2", dialect{driver: DriverPostgres}.rebind("a = ? AND b = ?"))
	assert.Equal(t, "a = ?", dialect{driver: DriverSQLite}.rebind("a = ?"))
	assert.Equal(t, "CAST(created_at AS DATE)", dialect{driver: DriverPostgres}.dateOf("created_at"))

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	from, to := PeriodRange(domain.PeriodYesterday, now)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), to)
}

func TestConnectSearchesSQLitePaths(t *testing.T) {
	path := writeFixture(t)
	missing := filepath.Join(t.TempDir(), "absent.db")

	s, used, err := Connect(context.Background(), DriverSQLite, "", []string{missing, path})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, used)
	assert.Equal(t, DriverSQLite, s.Driver())

	_, _, err = Connect(context.Background(), DriverSQLite, "", []string{missing})
	assert.ErrorIs(t, err, ErrDatabaseMissing)
}
