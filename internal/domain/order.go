package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderUser is the purchaser as it was at checkout time.
type OrderUser struct {
	Email  string             `bson:"email"`
	UserID primitive.ObjectID `bson:"user_id"`
}

// ProductSnapshot is a by-value copy of a product taken at checkout, so later
// catalog edits never change a historical order.
type ProductSnapshot struct {
	ID          int64   `bson:"id"`
	Title       string  `bson:"title"`
	Description string  `bson:"description"`
	Price       float64 `bson:"price"`
	ImageURL    string  `bson:"image_url"`
}

type OrderLine struct {
	Quantity int             `bson:"quantity"`
	Product  ProductSnapshot `bson:"product"`
}

type Order struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	User      OrderUser          `bson:"user"`
	Products  []OrderLine        `bson:"products"`
	CreatedAt time.Time          `bson:"created_at"`
}

func SnapshotOf(p *Product) ProductSnapshot {
	return ProductSnapshot{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
	}
}

func (o *Order) Total() float64 {
	var total float64
	for _, line := range o.Products {
		total += line.Product.Price * float64(line.Quantity)
	}
	return total
}

// OwnedBy reports whether userID placed the order.
func (o *Order) OwnedBy(userID primitive.ObjectID) bool {
	return o.User.UserID == userID
}

// InvoiceName is the file name shared with the invoice generator.
func (o *Order) InvoiceName() string {
	return InvoiceFileName(o.ID.Hex())
}

func InvoiceFileName(orderID string) string {
	return "invoice-" + orderID + ".pdf"
}
