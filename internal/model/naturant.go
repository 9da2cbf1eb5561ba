package model

import (
	"strings"
	"time"
	"unicode"
)

// MenuItem is an entry on a naturant's menu.
type MenuItem struct {
	ItemName string  `json:"itemName" validate:"required"`
	Price    float64 `json:"price" validate:"gte=0"`
}

// Employee is a member of a naturant's staff.
type Employee struct {
	EmployeeName string `json:"employeeName" validate:"required"`
	Position     string `json:"position" validate:"required"`
}

// Order is a table order recorded against a naturant.
type Order struct {
	OrderNumber int      `json:"orderNumber" validate:"required"`
	TableNumber int      `json:"tableNumber" validate:"required"`
	Items       []string `json:"items" validate:"required,min=1,dive,required"`
	TotalAmount float64  `json:"totalAmount" validate:"gte=0"`
}

// Customer is a naturant's known customer.
type Customer struct {
	CustomerName string `json:"customerName" validate:"required"`
	PhoneNumber  string `json:"phoneNumber" validate:"required"`
}

// Naturant mirrors the `naturants` table.  Nested collections are stored as
// JSON documents.
type Naturant struct {
	ID              uint64     `json:"id"`
	Name            string     `json:"restaurantName"`
	Slug            string     `json:"slug"`
	Address         string     `json:"address"`
	Phone           string     `json:"phone"`
	MenuItems       []MenuItem `json:"menuItems"`
	Employees       []Employee `json:"employees"`
	Orders          []Order    `json:"orders"`
	Customers       []Customer `json:"customers"`
	RatingsAverage  float64    `json:"ratingsAverage"`
	RatingsQuantity int        `json:"ratingsQuantity"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// PrepareNaturant runs the pre-persist steps for a naturant row: slug
// derivation, empty collections instead of nulls, and timestamps.
func PrepareNaturant(n *Naturant, now time.Time) {
	n.Name = strings.TrimSpace(n.Name)
	n.Slug = Slugify(n.Name)
	PrepareCollections(n)
	now = now.UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
}

// PrepareCollections replaces nil nested collections with empty ones so
// they serialize as [] rather than null.
func PrepareCollections(n *Naturant) {
	if n.MenuItems == nil {
		n.MenuItems = []MenuItem{}
	}
	if n.Employees == nil {
		n.Employees = []Employee{}
	}
	if n.Orders == nil {
		n.Orders = []Order{}
	}
	if n.Customers == nil {
		n.Customers = []Customer{}
	}
}

// Slugify lower-cases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}
