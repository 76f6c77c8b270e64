package warehouse

import "context"

// Source reads the production namespace.
type Source interface {
	Customers(ctx context.Context) ([]Customer, error)
	Products(ctx context.Context) ([]Product, error)
	Transactions(ctx context.Context) ([]Transaction, error)
	TransactionItems(ctx context.Context) ([]TransactionItem, error)
	TransactionDateRange(ctx context.Context) (DateRange, error)
}

// DimensionStore persists and reads back the dimension tables. Each
// Replace call truncates and reloads its table atomically; on error the
// table keeps its previous content.
type DimensionStore interface {
	ReplaceDimDate(ctx context.Context, rows []DimDate) error
	ReplaceDimPaymentMethods(ctx context.Context, rows []DimPaymentMethod) error
	ReplaceDimCustomers(ctx context.Context, rows []DimCustomer) error
	ReplaceDimProducts(ctx context.Context, rows []DimProduct) error

	DimDates(ctx context.Context) ([]DimDate, error)
	DimPaymentMethods(ctx context.Context) ([]DimPaymentMethod, error)
	// DimCustomers returns every version, current or not.
	DimCustomers(ctx context.Context) ([]DimCustomer, error)
	// DimProducts returns every version, current or not.
	DimProducts(ctx context.Context) ([]DimProduct, error)
}

// FactStore persists and reads back fact_sales.
type FactStore interface {
	ReplaceFactSales(ctx context.Context, rows []FactSale) error
	FactSales(ctx context.Context) ([]FactSale, error)
}

// AggregateStore persists the rollup tables.
type AggregateStore interface {
	ReplaceDailySales(ctx context.Context, rows []DailySales) error
	ReplaceMonthlySales(ctx context.Context, rows []MonthlySales) error
	ReplaceCategorySales(ctx context.Context, rows []CategorySales) error
	ReplaceProductPerformance(ctx context.Context, rows []ProductPerformance) error
	ReplaceCustomerMetrics(ctx context.Context, rows []CustomerMetrics) error
}

// Store is the full warehouse namespace.
type Store interface {
	DimensionStore
	FactStore
	AggregateStore
}
