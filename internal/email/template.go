package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// TemplateDefinition holds the raw (un-rendered) template strings.
type TemplateDefinition struct {
	Subject string
	Body    string
	HTML    string
}

// RenderedTemplate holds the rendered output ready to send.
type RenderedTemplate struct {
	Subject string
	Body    string
	HTML    string
}

// DefaultTemplates are the structured bodies callers may reference by name in
// an Envelope instead of supplying literal HTML.
var DefaultTemplates = map[string]TemplateDefinition{
	"contact_reply": {
		Subject: "Re: {{.Topic}}",
		Body:    "Hello {{.Name}},\n\n{{.Reply}}\n\nBatarya Kit",
		HTML:    `<p>Hello {{.Name}},</p><p>{{.Reply}}</p><p>Batarya Kit</p>`,
	},
	"back_in_stock": {
		Subject: "{{.Product}} is back in stock",
		Body:    "Hello {{.Name}},\n\n{{.Product}} is available again: {{.URL}}",
		HTML:    `<p>Hello {{.Name}},</p><p><strong>{{.Product}}</strong> is available again.</p><p><a href="{{.URL}}">View product</a></p>`,
	},
	"password_reset": {
		Subject: "Reset your Batarya Kit password",
		Body:    "Hello {{.Name}},\n\nUse the link below to reset your password:\n{{.ResetLink}}\n\nThis link expires in {{.ExpiresIn}}.",
		HTML:    `<p>Hello {{.Name}},</p><p>Use the link below to reset your password:</p><p><a href="{{.ResetLink}}">Reset password</a></p><p>This link expires in {{.ExpiresIn}}.</p>`,
	},
}

// ValidateTemplate parses all fields of def to catch template syntax errors
// before a send is attempted.
func ValidateTemplate(def TemplateDefinition) error {
	if _, err := texttemplate.New("subject").Parse(def.Subject); err != nil {
		return fmt.Errorf("invalid subject template: %w", err)
	}
	if _, err := texttemplate.New("body").Parse(def.Body); err != nil {
		return fmt.Errorf("invalid body template: %w", err)
	}
	if def.HTML != "" {
		if _, err := htmltemplate.New("html").Parse(def.HTML); err != nil {
			return fmt.Errorf("invalid html template: %w", err)
		}
	}
	return nil
}

// RenderTemplate executes a TemplateDefinition against vars and returns the
// rendered subject, plain-text body, and HTML body.
func RenderTemplate(def TemplateDefinition, vars map[string]any) (RenderedTemplate, error) {
	subject, err := renderText(def.Subject, vars)
	if err != nil {
		return RenderedTemplate{}, fmt.Errorf("render subject: %w", err)
	}

	body, err := renderText(def.Body, vars)
	if err != nil {
		return RenderedTemplate{}, fmt.Errorf("render body: %w", err)
	}

	var htmlOut string
	if def.HTML != "" {
		htmlOut, err = renderHTML(def.HTML, vars)
		if err != nil {
			return RenderedTemplate{}, fmt.Errorf("render html: %w", err)
		}
	}

	return RenderedTemplate{Subject: subject, Body: body, HTML: htmlOut}, nil
}

func renderText(tmplStr string, vars map[string]any) (string, error) {
	t, err := texttemplate.New("").Option("missingkey=zero").Parse(tmplStr)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderHTML(tmplStr string, vars map[string]any) (string, error) {
	t, err := htmltemplate.New("").Option("missingkey=zero").Parse(tmplStr)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}
