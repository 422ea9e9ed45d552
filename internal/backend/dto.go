package backend

import (
	"encoding/json"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// amount goes over the wire as a bare JSON number.
type amount struct {
	decimal.Decimal
}

func (a amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

type orderItemDTO struct {
	Product  string `json:"product"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    amount `json:"price"`
	Image    string `json:"image"`
}

type paymentInfoDTO struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Method string `json:"method,omitempty"`
	Mocked bool   `json:"mocked,omitempty"`
}

type shippingInfoDTO struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	ZipCode string `json:"zipCode"`
	PhoneNo string `json:"phoneNo"`
}

type newOrderRequestDTO struct {
	OrderItems    []orderItemDTO  `json:"orderItems"`
	ShippingInfo  shippingInfoDTO `json:"shippingInfo"`
	PaymentInfo   paymentInfoDTO  `json:"paymentInfo"`
	ItemsPrice    amount          `json:"itemsPrice"`
	TaxPrice      amount          `json:"taxPrice"`
	ShippingPrice amount          `json:"shippingPrice"`
	TotalPrice    amount          `json:"totalPrice"`
}

type orderDTO struct {
	ID            string          `json:"_id"`
	OrderItems    []orderItemDTO  `json:"orderItems"`
	ShippingInfo  shippingInfoDTO `json:"shippingInfo"`
	PaymentInfo   paymentInfoDTO  `json:"paymentInfo"`
	ItemsPrice    amount          `json:"itemsPrice"`
	TaxPrice      amount          `json:"taxPrice"`
	ShippingPrice amount          `json:"shippingPrice"`
	TotalPrice    amount          `json:"totalPrice"`
	OrderStatus   string          `json:"orderStatus"`
	CreatedAt     time.Time       `json:"createdAt"`
	DeliveredAt   *time.Time      `json:"deliveredAt,omitempty"`
}

type orderEnvelope struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Order   *orderDTO `json:"order"`
}

type ordersEnvelope struct {
	Success bool       `json:"success"`
	Orders  []orderDTO `json:"orders"`
}

type processPaymentRequestDTO struct {
	Amount amount `json:"amount"`
}

// PaymentSecret is the answer of POST /payment/process.
type PaymentSecret struct {
	ClientSecret string `json:"client_secret"`
	Mocked       bool   `json:"mocked"`
}

type stripeKeyDTO struct {
	StripeAPIKey string `json:"stripeApiKey"`
}

type productDTO struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Price  amount `json:"price"`
	Stock  int    `json:"stock"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

type productEnvelope struct {
	Success bool        `json:"success"`
	Product *productDTO `json:"product"`
}

// MarshalOrder encodes the draft exactly as POST /order/new receives it.
func MarshalOrder(d domain.OrderDraft) ([]byte, error) {
	return json.Marshal(toNewOrderRequest(d))
}

func toNewOrderRequest(d domain.OrderDraft) newOrderRequestDTO {
	items := make([]orderItemDTO, len(d.Items))
	for i, it := range d.Items {
		items[i] = orderItemDTO{
			Product:  it.ProductID,
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    amount{it.UnitPrice},
			Image:    it.Image,
		}
	}
	return newOrderRequestDTO{
		OrderItems:   items,
		ShippingInfo: shippingInfoDTO(d.Shipping),
		PaymentInfo: paymentInfoDTO{
			ID:     d.Payment.ID,
			Status: string(d.Payment.Status),
			Method: string(d.Payment.Method),
			Mocked: d.Payment.Mocked,
		},
		ItemsPrice:    amount{d.Prices.ItemsPrice},
		TaxPrice:      amount{d.Prices.TaxPrice},
		ShippingPrice: amount{d.Prices.ShippingPrice},
		TotalPrice:    amount{d.Prices.TotalPrice},
	}
}

func (o orderDTO) toDomain() domain.Order {
	items := make([]domain.LineItem, len(o.OrderItems))
	for i, it := range o.OrderItems {
		items[i] = domain.LineItem{
			ProductID: it.Product,
			Name:      it.Name,
			UnitPrice: it.Price.Decimal,
			Image:     it.Image,
			Quantity:  it.Quantity,
			LineTotal: it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		}
	}

	method := domain.PaymentMethod(o.PaymentInfo.Method)
	if method == "" {
		method = domain.PaymentMethodCard
	}
	status := domain.OrderStatus(o.OrderStatus)
	if status == "" {
		status = domain.OrderStatusProcessing
	}

	return domain.Order{
		ID:       o.ID,
		Items:    items,
		Shipping: domain.ShippingInfo(o.ShippingInfo),
		Payment: domain.PaymentIntent{
			ID:     o.PaymentInfo.ID,
			Status: domain.PaymentStatus(o.PaymentInfo.Status),
			Method: method,
			Mocked: o.PaymentInfo.Mocked,
		},
		Prices: domain.PriceBreakdown{
			ItemsPrice:    o.ItemsPrice.Decimal,
			TaxPrice:      o.TaxPrice.Decimal,
			ShippingPrice: o.ShippingPrice.Decimal,
			TotalPrice:    o.TotalPrice.Decimal,
		},
		Status:      status,
		CreatedAt:   o.CreatedAt,
		DeliveredAt: o.DeliveredAt,
	}
}

func (p productDTO) toDomain() domain.Product {
	var image string
	if len(p.Images) > 0 {
		image = p.Images[0].URL
	}
	return domain.Product{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.Price.Decimal,
		Image: image,
		Stock: p.Stock,
	}
}
