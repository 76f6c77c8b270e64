//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/pgedge-salesmart/internal/logging"
)

// Schemas names the two namespaces the tool works with.
type Schemas struct {
	Production string
	Warehouse  string
}

// Production table names.
const (
	TableCustomers        = "customers"
	TableProducts         = "products"
	TableTransactions     = "transactions"
	TableTransactionItems = "transaction_items"
	TableEtlRuns          = "etl_runs"
)

// productionSchemaSQL creates the normalized source tables. %[1]s is the
// quoted schema name.
const productionSchemaSQL = `
CREATE SCHEMA IF NOT EXISTS %[1]s;

CREATE TABLE IF NOT EXISTS %[1]s.customers (
    customer_id       VARCHAR(20) PRIMARY KEY,
    first_name        VARCHAR(100),
    last_name         VARCHAR(100),
    email             VARCHAR(255),
    phone             VARCHAR(50),
    registration_date DATE,
    city              VARCHAR(100),
    state             VARCHAR(100),
    country           VARCHAR(100),
    age_group         VARCHAR(20),
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS %[1]s.products (
    product_id     VARCHAR(20) PRIMARY KEY,
    product_name   VARCHAR(255),
    category       VARCHAR(100),
    sub_category   VARCHAR(100),
    brand          VARCHAR(100),
    price          NUMERIC(10,2) NOT NULL,
    cost           NUMERIC(10,2) NOT NULL,
    stock_quantity INTEGER,
    supplier_id    VARCHAR(20),
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS %[1]s.transactions (
    transaction_id   VARCHAR(20) PRIMARY KEY,
    customer_id      VARCHAR(20) NOT NULL,
    transaction_date DATE NOT NULL,
    transaction_time TIME,
    payment_method   VARCHAR(50),
    shipping_address TEXT,
    total_amount     NUMERIC(12,2),
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS %[1]s.transaction_items (
    item_id             VARCHAR(20) PRIMARY KEY,
    transaction_id      VARCHAR(20) NOT NULL,
    product_id          VARCHAR(20) NOT NULL,
    quantity            INTEGER NOT NULL,
    unit_price          NUMERIC(10,2) NOT NULL,
    discount_percentage NUMERIC(5,2),
    line_total          NUMERIC(12,2)
);

CREATE INDEX IF NOT EXISTS idx_transactions_date ON %[1]s.transactions (transaction_date);
CREATE INDEX IF NOT EXISTS idx_transaction_items_txn ON %[1]s.transaction_items (transaction_id);
`

// warehouseSchemaSQL creates the star schema. Tables carry no foreign keys
// because each one is truncated and reloaded on its own.
const warehouseSchemaSQL = `
CREATE SCHEMA IF NOT EXISTS %[1]s;

CREATE TABLE IF NOT EXISTS %[1]s.dim_date (
    date_key     INTEGER PRIMARY KEY,
    full_date    DATE NOT NULL UNIQUE,
    year         INTEGER NOT NULL,
    quarter      INTEGER NOT NULL,
    month        INTEGER NOT NULL,
    day          INTEGER NOT NULL,
    month_name   VARCHAR(9) NOT NULL,
    day_name     VARCHAR(9) NOT NULL,
    week_of_year INTEGER NOT NULL,
    is_weekend   BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS %[1]s.dim_payment_method (
    payment_method_key  BIGINT PRIMARY KEY,
    payment_method_name VARCHAR(50) NOT NULL UNIQUE,
    payment_type        VARCHAR(20) NOT NULL
);

CREATE TABLE IF NOT EXISTS %[1]s.dim_customers (
    customer_key      BIGINT PRIMARY KEY,
    customer_id       VARCHAR(20) NOT NULL,
    full_name         VARCHAR(201),
    email             VARCHAR(255),
    city              VARCHAR(100),
    state             VARCHAR(100),
    country           VARCHAR(100),
    age_group         VARCHAR(20),
    customer_segment  VARCHAR(50),
    registration_date DATE,
    effective_date    DATE NOT NULL,
    end_date          DATE,
    is_current        BOOLEAN NOT NULL,
    CHECK (is_current OR end_date IS NOT NULL)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_dim_customers_current
    ON %[1]s.dim_customers (customer_id) WHERE is_current;

CREATE TABLE IF NOT EXISTS %[1]s.dim_products (
    product_key    BIGINT PRIMARY KEY,
    product_id     VARCHAR(20) NOT NULL,
    product_name   VARCHAR(255),
    category       VARCHAR(100),
    sub_category   VARCHAR(100),
    brand          VARCHAR(100),
    price          NUMERIC(10,2),
    price_range    VARCHAR(20),
    effective_date DATE NOT NULL,
    end_date       DATE,
    is_current     BOOLEAN NOT NULL,
    CHECK (is_current OR end_date IS NOT NULL)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_dim_products_current
    ON %[1]s.dim_products (product_id) WHERE is_current;

CREATE TABLE IF NOT EXISTS %[1]s.fact_sales (
    sales_key          BIGINT PRIMARY KEY,
    date_key           INTEGER NOT NULL,
    customer_key       BIGINT NOT NULL,
    product_key        BIGINT NOT NULL,
    payment_method_key BIGINT,
    transaction_id     VARCHAR(20) NOT NULL,
    item_id            VARCHAR(20) NOT NULL,
    quantity           INTEGER NOT NULL,
    unit_price         NUMERIC(10,2) NOT NULL,
    discount_amount    NUMERIC(12,2) NOT NULL,
    line_total         NUMERIC(12,2) NOT NULL,
    profit             NUMERIC(12,2) NOT NULL,
    created_at         TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_fact_sales_date ON %[1]s.fact_sales (date_key);
CREATE INDEX IF NOT EXISTS idx_fact_sales_product ON %[1]s.fact_sales (product_key);
CREATE INDEX IF NOT EXISTS idx_fact_sales_customer ON %[1]s.fact_sales (customer_key);

CREATE TABLE IF NOT EXISTS %[1]s.agg_sales_daily (
    date_key           INTEGER PRIMARY KEY,
    total_transactions BIGINT NOT NULL,
    total_quantity     BIGINT NOT NULL,
    total_sales        NUMERIC(14,2) NOT NULL,
    total_profit       NUMERIC(14,2) NOT NULL,
    unique_customers   BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS %[1]s.agg_sales_monthly (
    year               INTEGER NOT NULL,
    month              INTEGER NOT NULL,
    total_transactions BIGINT NOT NULL,
    total_quantity     BIGINT NOT NULL,
    total_sales        NUMERIC(14,2) NOT NULL,
    total_profit       NUMERIC(14,2) NOT NULL,
    unique_customers   BIGINT NOT NULL,
    PRIMARY KEY (year, month)
);

CREATE TABLE IF NOT EXISTS %[1]s.agg_sales_category (
    category           VARCHAR(100) PRIMARY KEY,
    total_transactions BIGINT NOT NULL,
    total_quantity     BIGINT NOT NULL,
    total_sales        NUMERIC(14,2) NOT NULL,
    total_profit       NUMERIC(14,2) NOT NULL,
    unique_customers   BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS %[1]s.agg_product_performance (
    product_key             BIGINT PRIMARY KEY,
    total_quantity          BIGINT NOT NULL,
    total_sales             NUMERIC(14,2) NOT NULL,
    total_profit            NUMERIC(14,2) NOT NULL,
    avg_discount_percentage NUMERIC(5,2) NOT NULL
);

CREATE TABLE IF NOT EXISTS %[1]s.agg_customer_metrics (
    customer_key       BIGINT PRIMARY KEY,
    total_transactions BIGINT NOT NULL,
    total_spent        NUMERIC(14,2) NOT NULL,
    avg_order_value    NUMERIC(14,2) NOT NULL,
    last_purchase_date DATE NOT NULL
);

CREATE TABLE IF NOT EXISTS %[1]s.etl_runs (
    run_id      UUID PRIMARY KEY,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    status      VARCHAR(10) NOT NULL,
    summary     JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_etl_runs_started ON %[1]s.etl_runs (started_at DESC);
`

func quoteIdent(parts ...string) string {
	return pgx.Identifier(parts).Sanitize()
}

// CreateSchema creates the production and warehouse namespaces and their
// tables. Existing objects are left alone unless dropExisting is set.
func CreateSchema(ctx context.Context, db DB, schemas Schemas, dropExisting bool) error {
	if dropExisting {
		if err := DropSchema(ctx, db, schemas); err != nil {
			return err
		}
	}

	logging.Info().
		Str("production", schemas.Production).
		Str("warehouse", schemas.Warehouse).
		Msg("Creating schema")

	if _, err := db.Exec(ctx, fmt.Sprintf(productionSchemaSQL, quoteIdent(schemas.Production))); err != nil {
		return fmt.Errorf("failed to create production schema: %w", err)
	}
	if _, err := db.Exec(ctx, fmt.Sprintf(warehouseSchemaSQL, quoteIdent(schemas.Warehouse))); err != nil {
		return fmt.Errorf("failed to create warehouse schema: %w", err)
	}
	return nil
}

// DropSchema drops both namespaces and everything in them.
func DropSchema(ctx context.Context, db DB, schemas Schemas) error {
	for _, name := range []string{schemas.Warehouse, schemas.Production} {
		logging.Warn().Str("schema", name).Msg("Dropping schema")
		if _, err := db.Exec(ctx, "DROP SCHEMA IF EXISTS "+quoteIdent(name)+" CASCADE"); err != nil {
			return fmt.Errorf("failed to drop schema %s: %w", name, err)
		}
	}
	return nil
}

// SchemaExists reports whether the named namespace exists.
func SchemaExists(ctx context.Context, db DB, name string) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT FROM information_schema.schemata
            WHERE schema_name = $1
        )
    `, name).Scan(&exists)
	return exists, err
}
