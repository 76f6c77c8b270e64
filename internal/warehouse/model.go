//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package warehouse builds the sales star schema (dimensions, fact table
// and rollups) from the normalized production tables.
package warehouse

import (
	"time"

	"github.com/shopspring/decimal"
)

// Warehouse table names.
const (
	TableDimDate            = "dim_date"
	TableDimPaymentMethod   = "dim_payment_method"
	TableDimCustomers       = "dim_customers"
	TableDimProducts        = "dim_products"
	TableFactSales          = "fact_sales"
	TableAggDailySales      = "agg_sales_daily"
	TableAggMonthlySales    = "agg_sales_monthly"
	TableAggCategorySales   = "agg_sales_category"
	TableAggProductPerf     = "agg_product_performance"
	TableAggCustomerMetrics = "agg_customer_metrics"
)

// Customer is a row of the production customers table.
type Customer struct {
	CustomerID       string
	FirstName        string
	LastName         string
	Email            string
	City             string
	State            string
	Country          string
	AgeGroup         string
	RegistrationDate *time.Time
}

// Product is a row of the production products table.
type Product struct {
	ProductID   string
	ProductName string
	Category    string
	SubCategory string
	Brand       string
	Price       decimal.Decimal
	Cost        decimal.Decimal
}

// Transaction is a row of the production transactions table.
type Transaction struct {
	TransactionID   string
	CustomerID      string
	TransactionDate time.Time
	PaymentMethod   *string
	CreatedAt       time.Time
}

// TransactionItem is a row of the production transaction_items table.
type TransactionItem struct {
	ItemID             string
	TransactionID      string
	ProductID          string
	Quantity           int
	UnitPrice          decimal.Decimal
	DiscountPercentage *decimal.Decimal
}

// DimDate is one calendar day of the date dimension.
type DimDate struct {
	DateKey    int
	FullDate   time.Time
	Year       int
	Quarter    int
	Month      int
	Day        int
	MonthName  string
	DayName    string
	WeekOfYear int
	IsWeekend  bool
}

// Version holds the slowly-changing-dimension columns shared by the
// customer and product dimensions.
type Version struct {
	EffectiveDate time.Time
	EndDate       *time.Time
	IsCurrent     bool
}

// DimCustomer is one version of a customer.
type DimCustomer struct {
	CustomerKey      int64
	CustomerID       string
	FullName         string
	Email            string
	City             string
	State            string
	Country          string
	AgeGroup         string
	CustomerSegment  string
	RegistrationDate *time.Time
	Version
}

// DimProduct is one version of a product.
type DimProduct struct {
	ProductKey  int64
	ProductID   string
	ProductName string
	Category    string
	SubCategory string
	Brand       string
	Price       decimal.Decimal
	PriceRange  string
	Version
}

// DimPaymentMethod is a payment method reference row.
type DimPaymentMethod struct {
	PaymentMethodKey int64
	Name             string
	Type             string
}

// FactSale is one sold line item.
type FactSale struct {
	SalesKey         int64
	DateKey          int
	CustomerKey      int64
	ProductKey       int64
	PaymentMethodKey *int64
	TransactionID    string
	ItemID           string
	Quantity         int
	UnitPrice        decimal.Decimal
	DiscountAmount   decimal.Decimal
	LineTotal        decimal.Decimal
	Profit           decimal.Decimal
	CreatedAt        time.Time
}

// SalesMeasures are the measures shared by the time and category rollups.
type SalesMeasures struct {
	TotalTransactions int64
	TotalQuantity     int64
	TotalSales        decimal.Decimal
	TotalProfit       decimal.Decimal
	UniqueCustomers   int64
}

// DailySales is a row of agg_sales_daily.
type DailySales struct {
	DateKey int
	SalesMeasures
}

// MonthlySales is a row of agg_sales_monthly.
type MonthlySales struct {
	Year  int
	Month int
	SalesMeasures
}

// CategorySales is a row of agg_sales_category.
type CategorySales struct {
	Category string
	SalesMeasures
}

// ProductPerformance is a row of agg_product_performance.
type ProductPerformance struct {
	ProductKey            int64
	TotalQuantity         int64
	TotalSales            decimal.Decimal
	TotalProfit           decimal.Decimal
	AvgDiscountPercentage decimal.Decimal
}

// CustomerMetrics is a row of agg_customer_metrics.
type CustomerMetrics struct {
	CustomerKey       int64
	TotalTransactions int64
	TotalSpent        decimal.Decimal
	AvgOrderValue     decimal.Decimal
	LastPurchaseDate  time.Time
}

// DateRange is the span of observed transaction dates. Valid is false when
// the source has no transactions.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Valid bool      `json:"valid"`
}

// civilDate truncates t to midnight UTC of its calendar day.
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateKey returns the YYYYMMDD surrogate key for the calendar day of t.
func DateKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// DateFromKey converts a YYYYMMDD key back to a date.
func DateFromKey(key int) time.Time {
	return time.Date(key/10000, time.Month(key/100%100), key%100, 0, 0, 0, 0, time.UTC)
}
