package domain

// ShippingInfo is held only for the duration of one checkout attempt.
type ShippingInfo struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	ZipCode string `json:"zipCode"`
	PhoneNo string `json:"phoneNo"`
}

// BillingDetails is what the payment provider sees of the shipper.
type BillingDetails struct {
	Name       string
	Line1      string
	City       string
	State      string
	Country    string
	PostalCode string
	Phone      string
}

func (s ShippingInfo) Billing(name string) BillingDetails {
	if name == "" {
		name = "Guest"
	}
	return BillingDetails{
		Name:       name,
		Line1:      s.Address,
		City:       s.City,
		State:      s.State,
		Country:    s.Country,
		PostalCode: s.ZipCode,
		Phone:      s.PhoneNo,
	}
}
