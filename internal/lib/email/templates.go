package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

// Template names an HTML body under templates/.
type Template string

const (
	TemplateAccountCreated Template = "account_created"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

func render(name Template, data map[string]string) (string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, string(name)+".html", data); err != nil {
		return "", fmt.Errorf("rendering email template %s: %w", name, err)
	}
	return body.String(), nil
}
