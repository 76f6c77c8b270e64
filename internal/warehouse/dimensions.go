package warehouse

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/pgEdge/pgedge-salesmart/internal/logging"
)

// CustomerRows converts source customers into current dimension rows. The
// first occurrence of a customer_id wins, rows are ordered by customer_id
// and keyed 1..n.
func CustomerRows(customers []Customer, today time.Time) []DimCustomer {
	rows := make([]DimCustomer, 0, len(customers))
	seen := make(map[string]bool, len(customers))
	for _, c := range customers {
		if seen[c.CustomerID] {
			continue
		}
		seen[c.CustomerID] = true
		rows = append(rows, DimCustomer{
			CustomerID:       c.CustomerID,
			FullName:         fullName(c.FirstName, c.LastName),
			Email:            c.Email,
			City:             c.City,
			State:            c.State,
			Country:          c.Country,
			AgeGroup:         c.AgeGroup,
			CustomerSegment:  DefaultCustomerSegment,
			RegistrationDate: c.RegistrationDate,
			Version:          Version{EffectiveDate: civilDate(today), IsCurrent: true},
		})
	}

	slices.SortStableFunc(rows, func(a, b DimCustomer) int {
		return cmp.Compare(a.CustomerID, b.CustomerID)
	})
	for i := range rows {
		rows[i].CustomerKey = int64(i + 1)
	}
	return rows
}

// ProductRows converts source products into current dimension rows, with
// the same dedup, ordering and keying rules as CustomerRows.
func ProductRows(products []Product, today time.Time) []DimProduct {
	rows := make([]DimProduct, 0, len(products))
	seen := make(map[string]bool, len(products))
	for _, p := range products {
		if seen[p.ProductID] {
			continue
		}
		seen[p.ProductID] = true
		rows = append(rows, DimProduct{
			ProductID:   p.ProductID,
			ProductName: p.ProductName,
			Category:    p.Category,
			SubCategory: p.SubCategory,
			Brand:       p.Brand,
			Price:       p.Price,
			PriceRange:  PriceRange(p.Price),
			Version:     Version{EffectiveDate: civilDate(today), IsCurrent: true},
		})
	}

	slices.SortStableFunc(rows, func(a, b DimProduct) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	for i := range rows {
		rows[i].ProductKey = int64(i + 1)
	}
	return rows
}

// PaymentMethodRows returns the configured methods followed by observed
// methods that are not configured, sorted by name with type Other. Empty
// observed values are ignored.
func PaymentMethodRows(configured []PaymentMethodConfig, observed []string) []DimPaymentMethod {
	rows := make([]DimPaymentMethod, 0, len(configured)+len(observed))
	seen := make(map[string]bool, len(configured))
	for _, pm := range configured {
		if seen[pm.Name] {
			continue
		}
		seen[pm.Name] = true
		rows = append(rows, DimPaymentMethod{Name: pm.Name, Type: pm.Type})
	}

	var extra []string
	for _, name := range observed {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		extra = append(extra, name)
	}
	slices.Sort(extra)
	for _, name := range extra {
		rows = append(rows, DimPaymentMethod{Name: name, Type: PaymentTypeOther})
	}

	for i := range rows {
		rows[i].PaymentMethodKey = int64(i + 1)
	}
	return rows
}

// history describes how to merge versions of one dimension type.
type history[T any] struct {
	naturalKey func(*T) string
	key        func(*T) *int64
	version    func(*T) *Version
	sameAs     func(a, b *T) bool
}

// mergeHistory folds a fresh snapshot into the prior versions of a
// dimension. Unchanged current rows keep their key, changed or vanished
// current rows are closed as of today, and new versions are keyed after the
// highest prior key. The result is ordered by key.
func mergeHistory[T any](h history[T], prior, snapshot []T, today time.Time) []T {
	today = civilDate(today)
	out := make([]T, 0, len(prior)+len(snapshot))
	out = append(out, prior...)

	var maxKey int64
	current := make(map[string]int, len(out))
	for i := range out {
		if k := *h.key(&out[i]); k > maxKey {
			maxKey = k
		}
		if h.version(&out[i]).IsCurrent {
			current[h.naturalKey(&out[i])] = i
		}
	}

	closeVersion := func(i int) {
		v := h.version(&out[i])
		end := today
		v.EndDate = &end
		v.IsCurrent = false
	}

	for i := range snapshot {
		next := snapshot[i]
		nk := h.naturalKey(&next)
		if idx, ok := current[nk]; ok {
			delete(current, nk)
			if h.sameAs(&out[idx], &next) {
				continue
			}
			closeVersion(idx)
		}
		maxKey++
		*h.key(&next) = maxKey
		*h.version(&next) = Version{EffectiveDate: today, IsCurrent: true}
		out = append(out, next)
	}

	// Whatever is still current no longer exists in the source.
	for _, idx := range current {
		closeVersion(idx)
	}

	slices.SortFunc(out, func(a, b T) int {
		return cmp.Compare(*h.key(&a), *h.key(&b))
	})
	return out
}

var customerHistory = history[DimCustomer]{
	naturalKey: func(c *DimCustomer) string { return c.CustomerID },
	key:        func(c *DimCustomer) *int64 { return &c.CustomerKey },
	version:    func(c *DimCustomer) *Version { return &c.Version },
	sameAs: func(a, b *DimCustomer) bool {
		return a.FullName == b.FullName &&
			a.Email == b.Email &&
			a.City == b.City &&
			a.State == b.State &&
			a.Country == b.Country &&
			a.AgeGroup == b.AgeGroup &&
			a.CustomerSegment == b.CustomerSegment &&
			sameDate(a.RegistrationDate, b.RegistrationDate)
	},
}

var productHistory = history[DimProduct]{
	naturalKey: func(p *DimProduct) string { return p.ProductID },
	key:        func(p *DimProduct) *int64 { return &p.ProductKey },
	version:    func(p *DimProduct) *Version { return &p.Version },
	sameAs: func(a, b *DimProduct) bool {
		return a.ProductName == b.ProductName &&
			a.Category == b.Category &&
			a.SubCategory == b.SubCategory &&
			a.Brand == b.Brand &&
			a.Price.Equal(b.Price)
	},
}

// MergeCustomerHistory applies true SCD2 semantics to the customer dimension.
func MergeCustomerHistory(prior, snapshot []DimCustomer, today time.Time) []DimCustomer {
	return mergeHistory(customerHistory, prior, snapshot, today)
}

// MergeProductHistory applies true SCD2 semantics to the product dimension.
func MergeProductHistory(prior, snapshot []DimProduct, today time.Time) []DimProduct {
	return mergeHistory(productHistory, prior, snapshot, today)
}

// BuildDimCustomers rebuilds dim_customers from the source.
func (b *Builder) BuildDimCustomers(ctx context.Context) (int64, error) {
	customers, err := b.source.Customers(ctx)
	if err != nil {
		return 0, newBuildError(TableDimCustomers, StageDimension, ErrSourceUnavailable, err)
	}

	today := b.today()
	rows := CustomerRows(customers, today)
	if b.opts.HistoryMode == HistoryTrueSCD2 {
		prior, err := b.store.DimCustomers(ctx)
		if err != nil {
			return 0, newBuildError(TableDimCustomers, StageDimension, ErrSourceUnavailable, err)
		}
		rows = MergeCustomerHistory(prior, rows, today)
	}

	if err := b.store.ReplaceDimCustomers(ctx, rows); err != nil {
		return 0, newBuildError(TableDimCustomers, StageDimension, ErrReplaceFailed, err)
	}

	logging.Info().
		Str("table", TableDimCustomers).
		Int("rows", len(rows)).
		Int("source_rows", len(customers)).
		Str("history_mode", string(b.opts.HistoryMode)).
		Msg("Built customer dimension")
	return int64(len(rows)), nil
}

// BuildDimProducts rebuilds dim_products from the source.
func (b *Builder) BuildDimProducts(ctx context.Context) (int64, error) {
	products, err := b.source.Products(ctx)
	if err != nil {
		return 0, newBuildError(TableDimProducts, StageDimension, ErrSourceUnavailable, err)
	}

	today := b.today()
	rows := ProductRows(products, today)
	if b.opts.HistoryMode == HistoryTrueSCD2 {
		prior, err := b.store.DimProducts(ctx)
		if err != nil {
			return 0, newBuildError(TableDimProducts, StageDimension, ErrSourceUnavailable, err)
		}
		rows = MergeProductHistory(prior, rows, today)
	}

	if err := b.store.ReplaceDimProducts(ctx, rows); err != nil {
		return 0, newBuildError(TableDimProducts, StageDimension, ErrReplaceFailed, err)
	}

	logging.Info().
		Str("table", TableDimProducts).
		Int("rows", len(rows)).
		Int("source_rows", len(products)).
		Str("history_mode", string(b.opts.HistoryMode)).
		Msg("Built product dimension")
	return int64(len(rows)), nil
}

// BuildDimPaymentMethod rebuilds dim_payment_method from configuration and
// the methods observed on transactions.
func (b *Builder) BuildDimPaymentMethod(ctx context.Context) (int64, error) {
	txns, err := b.source.Transactions(ctx)
	if err != nil {
		return 0, newBuildError(TableDimPaymentMethod, StageDimension, ErrSourceUnavailable, err)
	}

	observed := make([]string, 0, len(txns))
	for _, t := range txns {
		if t.PaymentMethod != nil {
			observed = append(observed, *t.PaymentMethod)
		}
	}

	rows := PaymentMethodRows(b.opts.PaymentMethods, observed)
	if err := b.store.ReplaceDimPaymentMethods(ctx, rows); err != nil {
		return 0, newBuildError(TableDimPaymentMethod, StageDimension, ErrReplaceFailed, err)
	}

	logging.Info().
		Str("table", TableDimPaymentMethod).
		Int("rows", len(rows)).
		Msg("Built payment method dimension")
	return int64(len(rows)), nil
}

func fullName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
