package warehouse

import (
	"time"

	"github.com/shopspring/decimal"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string {
	return &s
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// smallSource is three customers, two products and five single-item
// transactions over two days.
func smallSource() *MemorySource {
	return &MemorySource{
		CustomerRows: []Customer{
			{CustomerID: "CUST0001", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", City: "London", State: "LDN", Country: "UK", AgeGroup: "26-35"},
			{CustomerID: "CUST0002", FirstName: "Alan", LastName: "Turing", Email: "alan@example.com", City: "Wilmslow", State: "CHS", Country: "UK", AgeGroup: "36-45"},
			{CustomerID: "CUST0003", FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", City: "Arlington", State: "VA", Country: "US", AgeGroup: "46-55"},
		},
		ProductRows: []Product{
			{ProductID: "PROD0001", ProductName: "Kettle", Category: "Home & Kitchen", SubCategory: "Appliances", Brand: "Acme", Price: dec("40.00"), Cost: dec("25.00")},
			{ProductID: "PROD0002", ProductName: "Headphones", Category: "Electronics", SubCategory: "Audio", Brand: "Sonic", Price: dec("150.00"), Cost: dec("90.00")},
		},
		TxnRows: []Transaction{
			{TransactionID: "TXN00001", CustomerID: "CUST0001", TransactionDate: date(2024, 1, 6), PaymentMethod: strPtr("Credit Card")},
			{TransactionID: "TXN00002", CustomerID: "CUST0002", TransactionDate: date(2024, 1, 6), PaymentMethod: strPtr("UPI")},
			{TransactionID: "TXN00003", CustomerID: "CUST0003", TransactionDate: date(2024, 1, 7), PaymentMethod: strPtr("Cash on Delivery")},
			{TransactionID: "TXN00004", CustomerID: "CUST0001", TransactionDate: date(2024, 1, 7), PaymentMethod: nil},
			{TransactionID: "TXN00005", CustomerID: "CUST0002", TransactionDate: date(2024, 1, 7), PaymentMethod: strPtr("Gift Card")},
		},
		ItemRows: []TransactionItem{
			{ItemID: "ITEM00001", TransactionID: "TXN00001", ProductID: "PROD0001", Quantity: 2, UnitPrice: dec("40.00"), DiscountPercentage: decPtr("10")},
			{ItemID: "ITEM00002", TransactionID: "TXN00002", ProductID: "PROD0002", Quantity: 1, UnitPrice: dec("150.00")},
			{ItemID: "ITEM00003", TransactionID: "TXN00003", ProductID: "PROD0001", Quantity: 3, UnitPrice: dec("39.99"), DiscountPercentage: decPtr("5")},
			{ItemID: "ITEM00004", TransactionID: "TXN00004", ProductID: "PROD0002", Quantity: 1, UnitPrice: dec("145.50"), DiscountPercentage: decPtr("0")},
			{ItemID: "ITEM00005", TransactionID: "TXN00005", ProductID: "PROD0001", Quantity: 1, UnitPrice: dec("40.00")},
		},
	}
}
