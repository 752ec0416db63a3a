package notify

import (
	"fmt"
	"strings"
	"text/template"
)

// Order is an incoming order notification. Name, Email, and Details are
// required; the HTTP layer rejects requests missing any of them.
type Order struct {
	OrderNumber string
	Name        string
	Email       string
	Phone       string
	Details     string
}

// Contact is a contact-form submission.
type Contact struct {
	Name    string
	Email   string
	Message string
}

var orderTmpl = template.Must(template.New("order").Parse(
	`Comandă nouă {{.OrderNumber}}

Nume: {{.Name}}
Email: {{.Email}}
{{- if .Phone}}
Telefon: {{.Phone}}
{{- end}}

Detalii:
{{.Details}}
`))

var contactTmpl = template.Must(template.New("contact").Parse(
	`Mesaj nou de contact

Nume: {{.Name}}
Email: {{.Email}}

{{.Message}}
`))

// RenderOrder produces the subject and body of an order email.
func RenderOrder(o Order) (subject, body string, err error) {
	var sb strings.Builder
	if err := orderTmpl.Execute(&sb, o); err != nil {
		return "", "", fmt.Errorf("rendering order email: %w", err)
	}
	return fmt.Sprintf("Comandă %s de la %s", o.OrderNumber, o.Name), sb.String(), nil
}

// RenderContact produces the subject and body of a contact email.
func RenderContact(c Contact) (subject, body string, err error) {
	var sb strings.Builder
	if err := contactTmpl.Execute(&sb, c); err != nil {
		return "", "", fmt.Errorf("rendering contact email: %w", err)
	}
	return fmt.Sprintf("Mesaj de contact de la %s", c.Name), sb.String(), nil
}
