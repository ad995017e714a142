package email

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

const verificationSubject = "Vérifiez votre email - KOUMALE"

var verificationHTML = template.Must(template.New("verification.html").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333; text-align: center;">Bienvenue sur KOUMALE !</h2>
  <p>Merci de vous être inscrit. Pour finaliser votre inscription, veuillez vérifier votre adresse email en entrant le code suivant :</p>
  <div style="background-color: #f8f9fa; border: 1px solid #dee2e6; border-radius: 5px; padding: 20px; text-align: center; margin: 20px 0;">
    <h1 style="color: #007bff; font-size: 32px; margin: 0; letter-spacing: 5px;">{{.Code}}</h1>
  </div>
  <p>Ce code expirera dans {{.Minutes}} minutes.</p>
  <p>Si vous n'avez pas demandé cette vérification, ignorez cet email.</p>
  <hr style="border: none; border-top: 1px solid #dee2e6; margin: 20px 0;">
  <p style="color: #6c757d; font-size: 12px; text-align: center;">Cet email a été envoyé automatiquement par KOUMALE. Ne pas répondre.</p>
</div>`))

var verificationText = texttemplate.Must(texttemplate.New("verification.txt").Parse(`Bienvenue sur KOUMALE !

Merci de vous être inscrit. Pour finaliser votre inscription, veuillez vérifier votre adresse email en entrant le code suivant :

{{.Code}}

Ce code expirera dans {{.Minutes}} minutes.

Si vous n'avez pas demandé cette vérification, ignorez cet email.
`))

type verificationData struct {
	Code    string
	Minutes int
}

// VerificationMessage renders the email carrying a verification code.
func VerificationMessage(to, code string, validMinutes int) (Message, error) {
	data := verificationData{Code: code, Minutes: validMinutes}

	var html, text bytes.Buffer
	if err := verificationHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render verification html: %w", err)
	}
	if err := verificationText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render verification text: %w", err)
	}
	return Message{To: to, Subject: verificationSubject, HTML: html.String(), Text: text.String()}, nil
}
