package domain

// Cart is embedded in the user document. Version is bumped by every
// mutation so checkout can clear exactly the cart it read.
type Cart struct {
	UserID  string     `bson:"-" json:"user_id"`
	Items   []CartItem `bson:"items" json:"items"`
	Version int64      `bson:"version" json:"version"`
}

type CartItem struct {
	ProductID int64 `bson:"product_id" json:"product_id"`
	Quantity  int   `bson:"quantity" json:"quantity"`
}

// CartLine is a cart item with its product reference resolved.
type CartLine struct {
	Product  *Product
	Quantity int
}

// Quantity returns the quantity of productID in the cart, 0 if absent.
func (c *Cart) Quantity(productID int64) int {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item.Quantity
		}
	}
	return 0
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
