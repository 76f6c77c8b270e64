package datagen

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Categories maps each product category to its sub-categories.
var Categories = map[string][]string{
	"Electronics":    {"Laptop", "Phone", "Tablet", "Headphones"},
	"Clothing":       {"Men", "Women", "Kids", "Shoes"},
	"Home & Kitchen": {"Furniture", "Cookware", "Bedding"},
	"Books":          {"Fiction", "Non-Fiction", "Educational"},
	"Sports":         {"Equipment", "Apparel", "Accessories"},
	"Beauty":         {"Skincare", "Makeup", "Haircare"},
}

// categoryOrder fixes iteration order so generation is repeatable.
var categoryOrder = []string{"Electronics", "Clothing", "Home & Kitchen", "Books", "Sports", "Beauty"}

// PaymentMethods are the methods transactions are paid with.
var PaymentMethods = []string{"Credit Card", "Debit Card", "UPI", "Net Banking", "Cash on Delivery"}

// AgeGroups are the customer age brackets.
var AgeGroups = []string{"18-25", "26-35", "36-45", "46-55", "56-65", "65+"}

var (
	discounts       = []int64{0, 5, 10, 15, 20}
	discountWeights = []int{80, 10, 5, 3, 2}
)

// Params controls the size and shape of a generated data set.
type Params struct {
	Customers    int
	Products     int
	Transactions int
	Start        time.Time
	End          time.Time
	Seed         uint64
}

// Customer is a production customers row.
type Customer struct {
	CustomerID       string
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	RegistrationDate time.Time
	City             string
	State            string
	Country          string
	AgeGroup         string
}

// Product is a production products row.
type Product struct {
	ProductID     string
	ProductName   string
	Category      string
	SubCategory   string
	Brand         string
	Price         decimal.Decimal
	Cost          decimal.Decimal
	StockQuantity int
	SupplierID    string
}

// Transaction is a production transactions row.
type Transaction struct {
	TransactionID   string
	CustomerID      string
	TransactionDate time.Time
	TransactionTime time.Duration
	PaymentMethod   string
	ShippingAddress string
	TotalAmount     decimal.Decimal
}

// Item is a production transaction_items row.
type Item struct {
	ItemID             string
	TransactionID      string
	ProductID          string
	Quantity           int
	UnitPrice          decimal.Decimal
	DiscountPercentage decimal.Decimal
	LineTotal          decimal.Decimal
}

// Dataset is a complete generated production data set.
type Dataset struct {
	Customers    []Customer
	Products     []Product
	Transactions []Transaction
	Items        []Item
}

// Validate checks the generation parameters.
func (p Params) Validate() error {
	if p.Customers < 1 {
		return fmt.Errorf("customers must be at least 1")
	}
	if p.Products < 1 {
		return fmt.Errorf("products must be at least 1")
	}
	if p.Transactions < 0 {
		return fmt.Errorf("transactions must be non-negative")
	}
	if p.End.Before(p.Start) {
		return fmt.Errorf("end date %s is before start date %s",
			p.End.Format(time.DateOnly), p.Start.Format(time.DateOnly))
	}
	return nil
}

// Generate builds a data set. The same parameters always yield the same
// data set.
func Generate(p Params) (*Dataset, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	f := NewFakerWithSeed(p.Seed)
	ds := &Dataset{
		Customers: generateCustomers(f, p),
		Products:  generateProducts(f, p.Products),
	}
	ds.Transactions, ds.Items = generateTransactions(f, p, ds.Customers, ds.Products)
	return ds, nil
}

func generateCustomers(f *Faker, p Params) []Customer {
	customers := make([]Customer, p.Customers)
	for i := range customers {
		first, last := f.FirstName(), f.LastName()
		customers[i] = Customer{
			CustomerID: fmt.Sprintf("CUST%04d", i+1),
			FirstName:  first,
			LastName:   last,
			// The index keeps addresses unique however the names collide.
			Email:            fmt.Sprintf("%s.%s%d@example.com", slug(first), slug(last), i+1),
			Phone:            f.Phone(),
			RegistrationDate: f.Date(p.Start.AddDate(-2, 0, 0), p.Start),
			City:             f.City(),
			State:            f.State(),
			Country:          "USA",
			AgeGroup:         Choose(f, AgeGroups),
		}
	}
	return customers
}

func generateProducts(f *Faker, n int) []Product {
	products := make([]Product, n)
	for i := range products {
		category := Choose(f, categoryOrder)
		cost := f.Float64(10, 500)
		price := cost * f.Float64(1.2, 3.0)
		products[i] = Product{
			ProductID:     fmt.Sprintf("PROD%04d", i+1),
			ProductName:   Truncate(f.Word()+" "+f.Word(), 255),
			Category:      category,
			SubCategory:   Choose(f, Categories[category]),
			Brand:         Truncate(f.Company(), 20),
			Price:         Money(price),
			Cost:          Money(cost),
			StockQuantity: f.Int(0, 999),
			SupplierID:    fmt.Sprintf("SUP%03d", f.Int(1, 50)),
		}
	}
	return products
}

func generateTransactions(f *Faker, p Params, customers []Customer, products []Product) ([]Transaction, []Item) {
	txns := make([]Transaction, p.Transactions)
	items := make([]Item, 0, p.Transactions*2)
	for i := range txns {
		txn := Transaction{
			TransactionID:   fmt.Sprintf("TXN%05d", i+1),
			CustomerID:      Choose(f, customers).CustomerID,
			TransactionDate: f.Date(p.Start, p.End),
			TransactionTime: time.Duration(f.Int(0, 86399)) * time.Second,
			PaymentMethod:   Choose(f, PaymentMethods),
			ShippingAddress: f.ShippingAddress(),
			TotalAmount:     decimal.Zero,
		}

		for range f.Int(1, 4) {
			product := Choose(f, products)
			qty := f.Int(1, 4)
			pct := decimal.NewFromInt(ChooseWeighted(f, discounts, discountWeights))
			gross := product.Price.Mul(decimal.NewFromInt(int64(qty)))
			net := gross.Mul(decimal.NewFromInt(100).Sub(pct)).Div(decimal.NewFromInt(100)).Round(2)

			items = append(items, Item{
				ItemID:             fmt.Sprintf("ITEM%05d", len(items)+1),
				TransactionID:      txn.TransactionID,
				ProductID:          product.ProductID,
				Quantity:           qty,
				UnitPrice:          product.Price,
				DiscountPercentage: pct,
				LineTotal:          net,
			})
			txn.TotalAmount = txn.TotalAmount.Add(net)
		}
		txns[i] = txn
	}
	return txns, items
}
