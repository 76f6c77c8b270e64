package datagen

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesmart/internal/db"
	"github.com/pgEdge/pgedge-salesmart/internal/logging"
)

// BatchInsertConfig configures batch insert behavior.
type BatchInsertConfig struct {
	// BatchSize is the number of rows per COPY.
	BatchSize int

	// ProgressInterval is how often to log progress (in rows).
	ProgressInterval int64
}

// DefaultBatchConfig returns default batch insert configuration.
func DefaultBatchConfig() BatchInsertConfig {
	return BatchInsertConfig{
		BatchSize:        5000,
		ProgressInterval: 50000,
	}
}

// ProgressReporter tracks and reports data loading progress.
type ProgressReporter struct {
	tableName        string
	totalRows        int64
	currentRow       int64
	progressInterval int64
}

// NewProgressReporter creates a new progress reporter.
func NewProgressReporter(tableName string, totalRows int64, interval int64) *ProgressReporter {
	if interval < 1 {
		interval = 1
	}
	return &ProgressReporter{
		tableName:        tableName,
		totalRows:        totalRows,
		progressInterval: interval,
	}
}

// Update records inserted rows and logs when an interval is crossed.
func (p *ProgressReporter) Update(rowsInserted int64) {
	oldRow := p.currentRow
	p.currentRow += rowsInserted

	if p.currentRow/p.progressInterval > oldRow/p.progressInterval {
		pct := float64(p.currentRow) / float64(p.totalRows) * 100
		logging.Info().
			Str("table", p.tableName).
			Int64("rows", p.currentRow).
			Int64("total", p.totalRows).
			Float64("percent", pct).
			Msg("Loading data")
	}
}

// Rows returns the number of rows recorded so far.
func (p *ProgressReporter) Rows() int64 {
	return p.currentRow
}

// Done logs completion.
func (p *ProgressReporter) Done() {
	logging.Info().
		Str("table", p.tableName).
		Int64("rows", p.currentRow).
		Msg("Table complete")
}

// Loader writes a Dataset into the production namespace.
type Loader struct {
	db     db.DB
	schema string
	cfg    BatchInsertConfig
}

// NewLoader creates a Loader for the named production schema.
func NewLoader(conn db.DB, schema string, cfg BatchInsertConfig) *Loader {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultBatchConfig().BatchSize
	}
	return &Loader{db: conn, schema: schema, cfg: cfg}
}

type tableLoad struct {
	name    string
	columns []string
	rows    [][]any
}

// Load copies the data set into the production tables in one transaction.
// With truncate set the tables are emptied first; otherwise rows are
// appended and duplicate ids fail the load. It returns the rows written per
// table.
func (l *Loader) Load(ctx context.Context, ds *Dataset, truncate bool) (map[string]int64, error) {
	loads := []tableLoad{
		{db.TableCustomers, []string{"customer_id", "first_name", "last_name", "email", "phone",
			"registration_date", "city", "state", "country", "age_group"}, customerRows(ds.Customers)},
		{db.TableProducts, []string{"product_id", "product_name", "category", "sub_category", "brand",
			"price", "cost", "stock_quantity", "supplier_id"}, productRows(ds.Products)},
		{db.TableTransactions, []string{"transaction_id", "customer_id", "transaction_date",
			"transaction_time", "payment_method", "shipping_address", "total_amount"}, transactionRows(ds.Transactions)},
		{db.TableTransactionItems, []string{"item_id", "transaction_id", "product_id", "quantity",
			"unit_price", "discount_percentage", "line_total"}, itemRows(ds.Items)},
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin load transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if truncate {
		tables := make([]string, 0, len(loads))
		for _, t := range loads {
			tables = append(tables, pgx.Identifier{l.schema, t.name}.Sanitize())
		}
		logging.Warn().Str("schema", l.schema).Msg("Truncating production tables")
		if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+strings.Join(tables, ", ")); err != nil {
			return nil, fmt.Errorf("failed to truncate production tables: %w", err)
		}
	}

	written := make(map[string]int64, len(loads))
	for _, t := range loads {
		n, err := l.copyTable(ctx, tx, t)
		if err != nil {
			return nil, err
		}
		written[t.name] = n
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit load: %w", err)
	}
	return written, nil
}

func (l *Loader) copyTable(ctx context.Context, tx pgx.Tx, t tableLoad) (int64, error) {
	progress := NewProgressReporter(t.name, int64(len(t.rows)), l.cfg.ProgressInterval)
	for start := 0; start < len(t.rows); start += l.cfg.BatchSize {
		end := min(start+l.cfg.BatchSize, len(t.rows))
		n, err := tx.CopyFrom(ctx, pgx.Identifier{l.schema, t.name}, t.columns, pgx.CopyFromRows(t.rows[start:end]))
		if err != nil {
			return progress.Rows(), fmt.Errorf("failed to copy into %s: %w", t.name, err)
		}
		progress.Update(n)
	}
	progress.Done()
	return progress.Rows(), nil
}

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func customerRows(customers []Customer) [][]any {
	rows := make([][]any, len(customers))
	for i, c := range customers {
		rows[i] = []any{c.CustomerID, c.FirstName, c.LastName, c.Email, c.Phone,
			c.RegistrationDate, c.City, c.State, c.Country, c.AgeGroup}
	}
	return rows
}

func productRows(products []Product) [][]any {
	rows := make([][]any, len(products))
	for i, p := range products {
		rows[i] = []any{p.ProductID, p.ProductName, p.Category, p.SubCategory, p.Brand,
			numeric(p.Price), numeric(p.Cost), p.StockQuantity, p.SupplierID}
	}
	return rows
}

func transactionRows(txns []Transaction) [][]any {
	rows := make([][]any, len(txns))
	for i, t := range txns {
		rows[i] = []any{t.TransactionID, t.CustomerID, t.TransactionDate,
			pgtype.Time{Microseconds: t.TransactionTime.Microseconds(), Valid: true},
			t.PaymentMethod, t.ShippingAddress, numeric(t.TotalAmount)}
	}
	return rows
}

func itemRows(items []Item) [][]any {
	rows := make([][]any, len(items))
	for i, it := range items {
		rows[i] = []any{it.ItemID, it.TransactionID, it.ProductID, it.Quantity,
			numeric(it.UnitPrice), numeric(it.DiscountPercentage), numeric(it.LineTotal)}
	}
	return rows
}

// Metadata describes a data set for db.SaveMetadata.
func (ds *Dataset) Metadata(seed uint64, start, end time.Time) map[string]string {
	return map[string]string{
		db.MetaCustomers:  strconv.Itoa(len(ds.Customers)),
		db.MetaProducts:   strconv.Itoa(len(ds.Products)),
		db.MetaTxns:       strconv.Itoa(len(ds.Transactions)),
		db.MetaRandomSeed: strconv.FormatUint(seed, 10),
		"start_date":      start.Format(time.DateOnly),
		"end_date":        end.Format(time.DateOnly),
	}
}
