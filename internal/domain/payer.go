package domain

// Address is the structured postal address the gateway requires for slips
type Address struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// Payer is the identity behind an invoice, owned by the enrollment side of the
// system and read-only here
type Payer struct {
	Name    string  `json:"name"`
	TaxID   string  `json:"tax_id"`
	Email   string  `json:"email,omitempty"`
	Phone   string  `json:"phone,omitempty"`
	Address Address `json:"address"`
	ID      int64   `json:"id"`
}
