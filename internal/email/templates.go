// Package email provides email templates.
package email

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"
)

// OrderInfo carries the order fields used by the email templates.
type OrderInfo struct {
	Reference     string
	CustomerName  string
	CustomerEmail string
	ItemName      string
	Price         string
	OrderDate     string
	DeliveryCode  string
	ETA           string
}

// EmailTemplate defines a named email template
type EmailTemplate struct {
	Name    string
	Subject string
	HTML    string
	Text    string
}

// Renderer provides methods to render email templates
type Renderer struct {
	templates *template.Template
}

// NewRenderer creates a new email template renderer with built-in templates
func NewRenderer() (*Renderer, error) {
	templates := map[string]EmailTemplate{
		"order_confirmation": {
			Name: "Order Confirmation",
			HTML: orderConfirmationHTML,
			Text: orderConfirmationText,
		},
		"delivery_code": {
			Name: "Delivery Code",
			HTML: deliveryCodeHTML,
			Text: deliveryCodeText,
		},
	}

	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("January 2, 2006")
		},
	}

	tmpl := template.New("email").Funcs(funcMap)

	for key, t := range templates {
		if _, err := tmpl.New(key + "_html").Parse(t.HTML); err != nil {
			return nil, fmt.Errorf("failed to parse HTML template %s: %w", key, err)
		}
		if _, err := tmpl.New(key + "_text").Parse(t.Text); err != nil {
			return nil, fmt.Errorf("failed to parse text template %s: %w", key, err)
		}
	}

	return &Renderer{
		templates: tmpl,
	}, nil
}

// Render renders an email template with the given data
func (r *Renderer) Render(ctx context.Context, templateName string, data *OrderInfo) (*Email, error) {
	var htmlBuf, textBuf bytes.Buffer

	if err := r.templates.ExecuteTemplate(&htmlBuf, templateName+"_html", data); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}

	if err := r.templates.ExecuteTemplate(&textBuf, templateName+"_text", data); err != nil {
		return nil, fmt.Errorf("failed to render text template: %w", err)
	}

	subject := ""
	switch templateName {
	case "order_confirmation":
		subject = fmt.Sprintf("Order Confirmed - %s", data.Reference)
	case "delivery_code":
		subject = fmt.Sprintf("Your Delivery Code - %s", data.Reference)
	}

	return &Email{
		To:      data.CustomerEmail,
		Subject: subject,
		Text:    textBuf.String(),
		HTML:    htmlBuf.String(),
	}, nil
}

// SendOrderConfirmation sends an order confirmation email
func SendOrderConfirmation(ctx context.Context, p Provider, orderInfo *OrderInfo) error {
	if p == nil {
		return nil
	}

	renderer, err := NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	email, err := renderer.Render(ctx, "order_confirmation", orderInfo)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	return p.SendEmail(ctx, email)
}

// SendDeliveryCode sends the single-use delivery code to the order's owner.
func SendDeliveryCode(ctx context.Context, p Provider, orderInfo *OrderInfo) error {
	if p == nil {
		return nil
	}

	renderer, err := NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	email, err := renderer.Render(ctx, "delivery_code", orderInfo)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	return p.SendEmail(ctx, email)
}

const orderConfirmationText = `Thank you for your order!

Order: {{.Reference}}
Item: {{.ItemName}}
Price: {{.Price}}
Ordered: {{.OrderDate}}

We'll let you know as soon as your delivery is on the way.
`

const orderConfirmationHTML = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
  <h2>Thank you for your order!</h2>
  <p>Order <strong>{{.Reference}}</strong></p>
  <table cellpadding="4">
    <tr><td>Item</td><td><strong>{{.ItemName}}</strong></td></tr>
    <tr><td>Price</td><td>{{.Price}}</td></tr>
    <tr><td>Ordered</td><td>{{.OrderDate}}</td></tr>
  </table>
  <p>We'll let you know as soon as your delivery is on the way.</p>
</body>
</html>
`

const deliveryCodeText = `Your delivery is on the way!

Order: {{.Reference}}
Item: {{.ItemName}}
{{if .ETA}}Estimated arrival: {{.ETA}}
{{end}}
Your one-time delivery code is: {{.DeliveryCode}}

Give this code to the courier when your package arrives. The code can be
used exactly once.
`

const deliveryCodeHTML = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
  <h2>Your delivery is on the way!</h2>
  <p>Order <strong>{{.Reference}}</strong> &mdash; {{.ItemName}}</p>
  {{if .ETA}}<p>Estimated arrival: {{.ETA}}</p>{{end}}
  <p>Your one-time delivery code is:</p>
  <p style="font-size: 24px; font-family: monospace; letter-spacing: 4px;"><strong>{{.DeliveryCode}}</strong></p>
  <p>Give this code to the courier when your package arrives. The code can be used exactly once.</p>
</body>
</html>
`
