package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

// Source reads the production namespace for the warehouse builders.
type Source struct {
	db     DB
	schema string
}

// NewSource creates a Source over the named production schema.
func NewSource(db DB, schema string) *Source {
	return &Source{db: db, schema: schema}
}

func (s *Source) table(name string) string {
	return quoteIdent(s.schema, name)
}

// Customers returns every customer ordered by customer_id.
func (s *Source) Customers(ctx context.Context) ([]warehouse.Customer, error) {
	rows, err := s.db.Query(ctx, `
        SELECT customer_id,
               COALESCE(first_name, ''), COALESCE(last_name, ''),
               COALESCE(email, ''), COALESCE(city, ''), COALESCE(state, ''),
               COALESCE(country, ''), COALESCE(age_group, ''),
               registration_date
        FROM `+s.table(TableCustomers)+`
        ORDER BY customer_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	customers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (warehouse.Customer, error) {
		var c warehouse.Customer
		err := row.Scan(&c.CustomerID, &c.FirstName, &c.LastName, &c.Email,
			&c.City, &c.State, &c.Country, &c.AgeGroup, &c.RegistrationDate)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read customers: %w", err)
	}
	return customers, nil
}

// Products returns every product ordered by product_id.
func (s *Source) Products(ctx context.Context) ([]warehouse.Product, error) {
	rows, err := s.db.Query(ctx, `
        SELECT product_id, COALESCE(product_name, ''), COALESCE(category, ''),
               COALESCE(sub_category, ''), COALESCE(brand, ''), price, cost
        FROM `+s.table(TableProducts)+`
        ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (warehouse.Product, error) {
		var p warehouse.Product
		var price, cost pgtype.Numeric
		err := row.Scan(&p.ProductID, &p.ProductName, &p.Category, &p.SubCategory, &p.Brand, &price, &cost)
		p.Price = toDecimal(price)
		p.Cost = toDecimal(cost)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	return products, nil
}

// Transactions returns every transaction ordered by transaction_id.
func (s *Source) Transactions(ctx context.Context) ([]warehouse.Transaction, error) {
	rows, err := s.db.Query(ctx, `
        SELECT transaction_id, customer_id, transaction_date, payment_method, created_at
        FROM `+s.table(TableTransactions)+`
        ORDER BY transaction_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	txns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (warehouse.Transaction, error) {
		var t warehouse.Transaction
		err := row.Scan(&t.TransactionID, &t.CustomerID, &t.TransactionDate, &t.PaymentMethod, &t.CreatedAt)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	return txns, nil
}

// TransactionItems returns every line item ordered by item_id.
func (s *Source) TransactionItems(ctx context.Context) ([]warehouse.TransactionItem, error) {
	rows, err := s.db.Query(ctx, `
        SELECT item_id, transaction_id, product_id, quantity, unit_price, discount_percentage
        FROM `+s.table(TableTransactionItems)+`
        ORDER BY item_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (warehouse.TransactionItem, error) {
		var it warehouse.TransactionItem
		var unitPrice, discount pgtype.Numeric
		err := row.Scan(&it.ItemID, &it.TransactionID, &it.ProductID, &it.Quantity, &unitPrice, &discount)
		it.UnitPrice = toDecimal(unitPrice)
		it.DiscountPercentage = toDecimalPtr(discount)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction items: %w", err)
	}
	return items, nil
}

// TransactionDateRange returns the earliest and latest transaction date.
func (s *Source) TransactionDateRange(ctx context.Context) (warehouse.DateRange, error) {
	var start, end *time.Time
	err := s.db.QueryRow(ctx, `
        SELECT min(transaction_date), max(transaction_date)
        FROM `+s.table(TableTransactions)).Scan(&start, &end)
	if err != nil {
		return warehouse.DateRange{}, fmt.Errorf("failed to query transaction date range: %w", err)
	}
	if start == nil || end == nil {
		return warehouse.DateRange{}, nil
	}
	return warehouse.DateRange{Start: *start, End: *end, Valid: true}, nil
}

var _ warehouse.Source = (*Source)(nil)
