package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

// SalesSummary is the headline totals of the warehouse.
type SalesSummary struct {
	TotalTransactions int64           `json:"total_transactions"`
	TotalCustomers    int64           `json:"total_customers"`
	TotalProducts     int64           `json:"total_products"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalProfit       decimal.Decimal `json:"total_profit"`
	AvgOrderValue     decimal.Decimal `json:"avg_order_value"`
}

// TopProduct is one row of the best sellers report.
type TopProduct struct {
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Category      string          `json:"category"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalSales    decimal.Decimal `json:"total_sales"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
}

// MonthlyTrend is one month of the sales trend.
type MonthlyTrend struct {
	Year              int             `json:"year"`
	Month             int             `json:"month"`
	TotalTransactions int64           `json:"total_transactions"`
	TotalSales        decimal.Decimal `json:"total_sales"`
	TotalProfit       decimal.Decimal `json:"total_profit"`
	UniqueCustomers   int64           `json:"unique_customers"`
}

// CategorySummary is one category of the category report.
type CategorySummary struct {
	Category          string          `json:"category"`
	TotalTransactions int64           `json:"total_transactions"`
	TotalQuantity     int64           `json:"total_quantity"`
	TotalSales        decimal.Decimal `json:"total_sales"`
	TotalProfit       decimal.Decimal `json:"total_profit"`
	UniqueCustomers   int64           `json:"unique_customers"`
}

// DailySales is one day of the daily sales report.
type DailySales struct {
	Date              string          `json:"date"`
	DateKey           int             `json:"date_key"`
	TotalTransactions int64           `json:"total_transactions"`
	TotalQuantity     int64           `json:"total_quantity"`
	TotalSales        decimal.Decimal `json:"total_sales"`
	TotalProfit       decimal.Decimal `json:"total_profit"`
	UniqueCustomers   int64           `json:"unique_customers"`
}

// Analytics answers the read-only reporting queries over the warehouse.
type Analytics struct {
	db     DB
	schema string
}

// NewAnalytics creates an Analytics reader over the named warehouse schema.
func NewAnalytics(db DB, schema string) *Analytics {
	return &Analytics{db: db, schema: schema}
}

func (a *Analytics) table(name string) string {
	return quoteIdent(a.schema, name)
}

// Summary returns the headline totals.
func (a *Analytics) Summary(ctx context.Context) (SalesSummary, error) {
	var s SalesSummary
	var revenue, profit, aov pgtype.Numeric
	err := a.db.QueryRow(ctx, `
        SELECT COUNT(DISTINCT transaction_id),
               COUNT(DISTINCT customer_key),
               COUNT(DISTINCT product_key),
               COALESCE(SUM(line_total), 0),
               COALESCE(SUM(profit), 0),
               COALESCE(ROUND(SUM(line_total) / NULLIF(COUNT(DISTINCT transaction_id), 0), 2), 0)
        FROM `+a.table(warehouse.TableFactSales)).
		Scan(&s.TotalTransactions, &s.TotalCustomers, &s.TotalProducts, &revenue, &profit, &aov)
	if err != nil {
		return SalesSummary{}, fmt.Errorf("failed to query sales summary: %w", err)
	}
	s.TotalRevenue = toDecimal(revenue)
	s.TotalProfit = toDecimal(profit)
	s.AvgOrderValue = toDecimal(aov)
	return s, nil
}

// TopProducts returns the best selling current products by revenue.
func (a *Analytics) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	rows, err := a.db.Query(ctx, `
        SELECT p.product_id, COALESCE(p.product_name, ''), COALESCE(p.category, ''),
               pp.total_quantity, pp.total_sales, pp.total_profit
        FROM `+a.table(warehouse.TableAggProductPerf)+` pp
        JOIN `+a.table(warehouse.TableDimProducts)+` p ON p.product_key = pp.product_key
        ORDER BY pp.total_sales DESC, p.product_id
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TopProduct, error) {
		var p TopProduct
		var sales, profit pgtype.Numeric
		err := row.Scan(&p.ProductID, &p.ProductName, &p.Category, &p.TotalQuantity, &sales, &profit)
		p.TotalSales = toDecimal(sales)
		p.TotalProfit = toDecimal(profit)
		return p, err
	})
}

// MonthlyTrend returns every month in chronological order.
func (a *Analytics) MonthlyTrend(ctx context.Context) ([]MonthlyTrend, error) {
	rows, err := a.db.Query(ctx, `
        SELECT year, month, total_transactions, total_sales, total_profit, unique_customers
        FROM `+a.table(warehouse.TableAggMonthlySales)+`
        ORDER BY year, month`)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly trend: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (MonthlyTrend, error) {
		var m MonthlyTrend
		var sales, profit pgtype.Numeric
		err := row.Scan(&m.Year, &m.Month, &m.TotalTransactions, &sales, &profit, &m.UniqueCustomers)
		m.TotalSales = toDecimal(sales)
		m.TotalProfit = toDecimal(profit)
		return m, err
	})
}

// CategorySummary returns every category by revenue.
func (a *Analytics) CategorySummary(ctx context.Context) ([]CategorySummary, error) {
	rows, err := a.db.Query(ctx, `
        SELECT category, total_transactions, total_quantity, total_sales, total_profit, unique_customers
        FROM `+a.table(warehouse.TableAggCategorySales)+`
        ORDER BY total_sales DESC, category`)
	if err != nil {
		return nil, fmt.Errorf("failed to query category summary: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (CategorySummary, error) {
		var c CategorySummary
		var sales, profit pgtype.Numeric
		err := row.Scan(&c.Category, &c.TotalTransactions, &c.TotalQuantity, &sales, &profit, &c.UniqueCustomers)
		c.TotalSales = toDecimal(sales)
		c.TotalProfit = toDecimal(profit)
		return c, err
	})
}

// DailySales returns the days in [start, end] in chronological order.
func (a *Analytics) DailySales(ctx context.Context, start, end time.Time) ([]DailySales, error) {
	rows, err := a.db.Query(ctx, `
        SELECT date_key, total_transactions, total_quantity, total_sales, total_profit, unique_customers
        FROM `+a.table(warehouse.TableAggDailySales)+`
        WHERE date_key BETWEEN $1 AND $2
        ORDER BY date_key
    `, warehouse.DateKey(start), warehouse.DateKey(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily sales: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (DailySales, error) {
		var d DailySales
		var sales, profit pgtype.Numeric
		err := row.Scan(&d.DateKey, &d.TotalTransactions, &d.TotalQuantity, &sales, &profit, &d.UniqueCustomers)
		d.Date = warehouse.DateFromKey(d.DateKey).Format(time.DateOnly)
		d.TotalSales = toDecimal(sales)
		d.TotalProfit = toDecimal(profit)
		return d, err
	})
}
