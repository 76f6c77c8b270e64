package warehouse

import (
	"fmt"
	"time"
)

// HistoryMode selects how the customer and product dimensions treat
// previously built rows.
type HistoryMode string

const (
	// HistorySnapshot replaces the dimension with the current source state.
	HistorySnapshot HistoryMode = "snapshot"
	// HistoryTrueSCD2 keeps prior versions and closes changed rows.
	HistoryTrueSCD2 HistoryMode = "true_scd2"
)

// KeyMissPolicy selects what the fact builder does with a line item whose
// customer, product or date cannot be resolved.
type KeyMissPolicy string

const (
	// KeyMissDrop excludes the row and counts it.
	KeyMissDrop KeyMissPolicy = "drop"
	// KeyMissFail aborts the fact build on the first miss.
	KeyMissFail KeyMissPolicy = "fail"
)

// PaymentMethodConfig is a configured payment method and its type.
type PaymentMethodConfig struct {
	Name string `mapstructure:"name" json:"name"`
	Type string `mapstructure:"type" json:"type"`
}

// PaymentTypeOther is assigned to observed methods that are not configured.
const PaymentTypeOther = "Other"

// DefaultCustomerSegment is stamped on every customer row.
const DefaultCustomerSegment = "Regular"

// DefaultPaymentMethods returns the payment methods of the seeded data set.
func DefaultPaymentMethods() []PaymentMethodConfig {
	return []PaymentMethodConfig{
		{Name: "Credit Card", Type: "Online"},
		{Name: "Debit Card", Type: "Online"},
		{Name: "UPI", Type: "Online"},
		{Name: "Net Banking", Type: "Online"},
		{Name: "Cash on Delivery", Type: "Offline"},
	}
}

// Options controls a warehouse build.
type Options struct {
	HistoryMode    HistoryMode
	KeyMissPolicy  KeyMissPolicy
	PaymentMethods []PaymentMethodConfig

	// Now supplies the build clock. Defaults to time.Now.
	Now func() time.Time
}

// Validate checks the option values.
func (o Options) Validate() error {
	switch o.HistoryMode {
	case HistorySnapshot, HistoryTrueSCD2:
	default:
		return fmt.Errorf("invalid history mode: %q (expected %q or %q)",
			o.HistoryMode, HistorySnapshot, HistoryTrueSCD2)
	}
	switch o.KeyMissPolicy {
	case KeyMissDrop, KeyMissFail:
	default:
		return fmt.Errorf("invalid key miss policy: %q (expected %q or %q)",
			o.KeyMissPolicy, KeyMissDrop, KeyMissFail)
	}
	seen := make(map[string]bool, len(o.PaymentMethods))
	for _, pm := range o.PaymentMethods {
		if pm.Name == "" {
			return fmt.Errorf("payment method name must not be empty")
		}
		if seen[pm.Name] {
			return fmt.Errorf("duplicate payment method: %q", pm.Name)
		}
		seen[pm.Name] = true
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.HistoryMode == "" {
		o.HistoryMode = HistorySnapshot
	}
	if o.KeyMissPolicy == "" {
		o.KeyMissPolicy = KeyMissDrop
	}
	if o.PaymentMethods == nil {
		o.PaymentMethods = DefaultPaymentMethods()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Builder runs the individual dimension, fact and aggregate builds against
// a source and a store.
type Builder struct {
	source Source
	store  Store
	opts   Options
}

// NewBuilder creates a new Builder. Unset options take their defaults.
func NewBuilder(source Source, store Store, opts Options) *Builder {
	return &Builder{
		source: source,
		store:  store,
		opts:   opts.withDefaults(),
	}
}

// today is the build date used for effective and end dates.
func (b *Builder) today() time.Time {
	return civilDate(b.opts.Now())
}
