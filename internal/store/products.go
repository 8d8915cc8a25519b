package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"lagrace/internal/domain"
)

const productColumns = `p.id, p.code, p.label, p.brand, s.quantity, p.sell_price, p.buy_price`

const productMatch = `(UPPER(p.code) LIKE ? OR UPPER(p.label) LIKE ? OR UPPER(p.brand) LIKE ?)`

// ProductStock finds the first product whose code, label or brand contains
// name, with its stock level.
func (s *Store) ProductStock(ctx context.Context, name string) (domain.Product, error) {
	key := "product:" + strings.ToUpper(strings.TrimSpace(name))
	if v, ok := s.cache.Get(key); ok {
		return v.(domain.Product), nil
	}

	products, err := s.findProducts(ctx, name, "", 1)
	if err != nil {
		return domain.Product{}, err
	}
	if len(products) == 0 {
		return domain.Product{}, ErrNotFound
	}
	s.cache.SetDefault(key, products[0])
	return products[0], nil
}

// ProductPrice shares the lookup of ProductStock.
func (s *Store) ProductPrice(ctx context.Context, name string) (domain.Product, error) {
	return s.ProductStock(ctx, name)
}

// SearchProducts lists matches, best stocked first.
func (s *Store) SearchProducts(ctx context.Context, q string, limit int) ([]domain.Product, error) {
	return s.findProducts(ctx, q, "ORDER BY s.quantity DESC", limit)
}

// LowStockProducts lists products at or under threshold, lowest first.
func (s *Store) LowStockProducts(ctx context.Context, threshold float64) ([]domain.Product, error) {
	rows, err := s.query(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN stock s ON p.id = s.product_id
		WHERE s.quantity IS NOT NULL AND s.quantity <= ?
		ORDER BY s.quantity ASC
		LIMIT 10`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (s *Store) findProducts(ctx context.Context, name, order string, limit int) ([]domain.Product, error) {
	search := "%" + strings.ToUpper(strings.TrimSpace(name)) + "%"
	rows, err := s.query(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN stock s ON p.id = s.product_id
		WHERE `+productMatch+`
		`+order+`
		LIMIT ?`, search, search, search, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func scanProducts(rows *sql.Rows) ([]domain.Product, error) {
	var out []domain.Product
	for rows.Next() {
		var (
			p         domain.Product
			brand     sql.NullString
			quantity  sql.NullFloat64
			sellPrice sql.NullFloat64
			buyPrice  sql.NullFloat64
		)
		if err := rows.Scan(&p.ID, &p.Code, &p.Label, &brand, &quantity, &sellPrice, &buyPrice); err != nil {
			return nil, err
		}
		p.Brand = brand.String
		p.Quantity = quantity.Float64
		p.SellPrice = sellPrice.Float64
		p.BuyPrice = buyPrice.Float64
		out = append(out, p)
	}
	return out, rows.Err()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
