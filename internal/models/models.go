package models

// Product is a catalog entry owned by the remote backend. The storefront
// only ever holds read-only cached copies.
type Product struct {
	ID          BigInt `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Stock       BigInt `json:"stock"`
	Category    string `json:"category"`
	Price       BigInt `json:"price"`
}

// InStock reports whether the product can currently be added to a cart.
func (p Product) InStock() bool {
	return p.Stock.Sign() > 0
}

// Order is a committed purchase as the backend records it. The backend
// schema carries a single product line per order.
type Order struct {
	ID              BigInt `json:"id"`
	CustomerName    string `json:"customerName"`
	ProductID       BigInt `json:"productId"`
	Quantity        BigInt `json:"quantity"`
	ShippingAddress string `json:"shippingAddress"`
	TotalPrice      BigInt `json:"totalPrice"`
}

// CartItem is a cart line holding a price snapshot taken at add time.
type CartItem struct {
	ProductID BigInt `json:"productId"`
	Name      string `json:"name"`
	Price     BigInt `json:"price"`
	Quantity  int    `json:"quantity"`
	Category  string `json:"category"`
}

// CartState is the ordered cart contents for one session. Insertion order
// is display order; at most one item per product ID.
type CartState struct {
	Items []CartItem `json:"items"`
}

// ConfirmationSnapshot is the ephemeral order summary written to session
// storage at submit time and consumed exactly once by the confirmation
// screen. It records the entire cart as it stood before submission.
type ConfirmationSnapshot struct {
	ID              BigInt     `json:"id"`
	Items           []CartItem `json:"items"`
	Total           BigInt     `json:"total"`
	CustomerName    string     `json:"customerName"`
	ShippingAddress string     `json:"shippingAddress"`
	Timestamp       int64      `json:"timestamp"`
}
