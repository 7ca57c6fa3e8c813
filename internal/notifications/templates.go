package notifications

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/shopspring/decimal"

	"github.com/angelsplants/checkout-backend/pkg/db/models"
	"github.com/angelsplants/checkout-backend/pkg/enums"
)

var funcs = template.FuncMap{
	"money": func(currency string, amount decimal.Decimal) string {
		return currency + " " + amount.StringFixed(2)
	},
	"title": statusLabel,
}

func statusLabel(s enums.OrderStatus) string {
	return strings.ReplaceAll(string(s), "_", " ")
}

var templates = template.Must(template.New("notifications").Funcs(funcs).Parse(`
{{define "order_paid"}}Hi {{.Order.FirstName}},

Thank you for your order with {{.Store}}. We have received your payment and your plants are being prepared.

Order number: {{.Order.OrderNumber}}
Payment reference: {{.PaymentID}}
{{range .Order.Items}}
  {{.ProductName}} x {{.Quantity}}  {{money $.Order.Currency .LineTotal}}{{end}}

Subtotal: {{money .Order.Currency .Order.Subtotal}}
Tax: {{money .Order.Currency .Order.TaxAmount}}
Shipping: {{money .Order.Currency .Order.ShippingCost}}
Total paid: {{money .Order.Currency .Order.Total}}

Shipping to:
{{.Order.CustomerName}}
{{.Order.Address}}
{{.Order.City}}, {{.Order.State}} {{.Order.PostalCode}}
{{.Order.Country}}

{{.Store}}
{{end}}

{{define "payment_failed"}}Hi {{.Order.FirstName}},

{{.Message}}

Your order {{.Order.OrderNumber}} is still waiting for payment. You can retry the payment from your order page.

{{.Store}}
{{end}}

{{define "order_status_changed"}}Hi {{.Order.FirstName}},

Your order {{.Order.OrderNumber}} is now {{title .Status}}.
{{if .TrackingNumber}}
Tracking number: {{.TrackingNumber}}{{end}}{{if .TrackingURL}}
Track your parcel: {{.TrackingURL}}{{end}}{{if .Note}}

{{.Note}}{{end}}

{{.Store}}
{{end}}

{{define "order_expired"}}Hi {{.Order.FirstName}},

We did not receive payment for order {{.Order.OrderNumber}}, so it has been cancelled and the items returned to stock.

If you still want these plants, please place a new order.

{{.Store}}
{{end}}
`))

type view struct {
	Store          string
	Order          *models.Order
	PaymentID      string
	Message        string
	Status         enums.OrderStatus
	TrackingNumber string
	TrackingURL    string
	Note           string
}

func render(name string, v view) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, v); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()) + "\n", nil
}
