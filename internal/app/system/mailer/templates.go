// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// Template names one of the account emails.
type Template string

const (
	// TemplateRegister welcomes a new account and links to the login page.
	TemplateRegister Template = "register"
	// TemplateForgot carries the password reset link.
	TemplateForgot Template = "forgot"
	// TemplateReset confirms a completed reset and links to the forgot page.
	TemplateReset Template = "reset"
)

// Data fills a Template.
type Data struct {
	SiteName string
	Name     string // first name, used in the greeting
	Username string
	Link     string
}

// Email is a rendered message ready for a transport.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

type layout struct {
	subject string
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

var layouts = map[Template]layout{
	TemplateRegister: {
		subject: "Welcome to %s",
		text:    texttemplate.Must(texttemplate.New("register.txt").Parse(registerText)),
		html:    htmltemplate.Must(htmltemplate.New("register.html").Parse(wrapHTML(registerHTML))),
	},
	TemplateForgot: {
		subject: "%s password reset",
		text:    texttemplate.Must(texttemplate.New("forgot.txt").Parse(forgotText)),
		html:    htmltemplate.Must(htmltemplate.New("forgot.html").Parse(wrapHTML(forgotHTML))),
	},
	TemplateReset: {
		subject: "Your %s password has been changed",
		text:    texttemplate.Must(texttemplate.New("reset.txt").Parse(resetText)),
		html:    htmltemplate.Must(htmltemplate.New("reset.html").Parse(wrapHTML(resetHTML))),
	},
}

// Render builds the email for tmpl addressed to to.
func Render(to string, tmpl Template, data Data) (Email, error) {
	l, ok := layouts[tmpl]
	if !ok {
		return Email{}, fmt.Errorf("unknown email template %q", tmpl)
	}
	if data.SiteName == "" {
		data.SiteName = "ContestHub"
	}

	var text, html bytes.Buffer
	if err := l.text.Execute(&text, data); err != nil {
		return Email{}, fmt.Errorf("render %s text: %w", tmpl, err)
	}
	if err := l.html.Execute(&html, data); err != nil {
		return Email{}, fmt.Errorf("render %s html: %w", tmpl, err)
	}
	return Email{
		To:       to,
		Subject:  fmt.Sprintf(l.subject, data.SiteName),
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}

const registerText = `Hi {{if .Name}}{{.Name}}{{else}}{{.Username}}{{end}},

Your {{.SiteName}} account "{{.Username}}" is ready. Log in here:
{{.Link}}
`

const forgotText = `Hi {{if .Name}}{{.Name}}{{else}}{{.Username}}{{end}},

Someone asked to reset the password for {{.SiteName}} account "{{.Username}}".
Follow this link within two hours to choose a new password:
{{.Link}}

If you did not ask for this, ignore this email and your password will stay the same.
`

const resetText = `Hi {{if .Name}}{{.Name}}{{else}}{{.Username}}{{end}},

The password for {{.SiteName}} account "{{.Username}}" was just changed.
If this was not you, reset it right away:
{{.Link}}
`

const registerHTML = `<p>Hi {{if .Name}}{{.Name}}{{else}}{{.Username}}{{end}},</p>
<p>Your {{.SiteName}} account <strong>{{.Username}}</strong> is ready.</p>
<p><a href="{{.Link}}">Log in</a></p>`

const forgotHTML = `<p>Hi {{if .Name}}{{.Name}}{{else}}{{.Username}}{{end}},</p>
<p>Someone asked to reset the password for {{.SiteName}} account <strong>{{.Username}}</strong>.
Follow the link within two hours to choose a new password.</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>If you did not ask for this, ignore this email and your password will stay the same.</p>`

const resetHTML = `<p>Hi {{if .Name}}{{.Name}}{{else}}{{.Username}}{{end}},</p>
<p>The password for {{.SiteName}} account <strong>{{.Username}}</strong> was just changed.</p>
<p>If this was not you, <a href="{{.Link}}">reset it right away</a>.</p>`

func wrapHTML(body string) string {
	return `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.SiteName}}</title>
</head>
<body style="margin: 0; padding: 24px; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; color: #374151;">
` + body + `
</body>
</html>`
}
