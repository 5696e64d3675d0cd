package domain

// Product is the single sellable item. Prices are whole units of Currency.
type Product struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	OriginalPrice int64  `json:"original_price"`
	SalePrice     int64  `json:"sale_price"`
	Currency      string `json:"currency"`
	Image         string `json:"image"`
}

type CartItem struct {
	ID       string `json:"id" db:"product_id"`
	Name     string `json:"name" db:"name"`
	Price    int64  `json:"price" db:"price"`
	Quantity int    `json:"quantity" db:"quantity"`
	Image    string `json:"image" db:"image"`
}
