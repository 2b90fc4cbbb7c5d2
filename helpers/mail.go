package helpers

import (
	"bytes"
	"html/template"

	"gopkg.in/gomail.v2"
)

// Sender delivers a composed message. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailData struct {
	EmailTo      string
	NameTo       string
	EmailFrom    string
	NameFrom     string
	Subject      string
	TemplatePath string
	SMTP         Sender
}

func (ed *EmailData) NewMessage(data interface{}) (*gomail.Message, error) {
	t, err := template.ParseFiles(ed.TemplatePath)
	if err != nil {
		return nil, err
	}
	var tpl bytes.Buffer
	if err := t.Execute(&tpl, data); err != nil {
		return nil, err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(ed.EmailFrom, ed.NameFrom))
	m.SetHeader("To", m.FormatAddress(ed.EmailTo, ed.NameTo))
	m.SetHeader("Subject", ed.Subject)
	m.SetBody("text/html", tpl.String())
	return m, nil
}

func (ed *EmailData) SendEmail(data interface{}) error {
	m, err := ed.NewMessage(data)
	if err != nil {
		return err
	}
	return ed.SMTP.DialAndSend(m)
}
