package notification

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/money"
)

const DefaultLocale = "en"

// Notice is a rendered confirmation message.
type Notice struct {
	Locale  string
	Subject string
	Body    string
}

type noticeTemplate struct {
	subject *template.Template
	body    *template.Template
}

type noticeData struct {
	FirstName string
	Tenant    string
	Reference string
	CheckIn   string
	CheckOut  string
	Nights    int
	DayUse    bool
	Total     string
}

var notices = map[string]noticeTemplate{
	"en": mustNotice(
		"Your booking at {{.Tenant}} is confirmed ({{.Reference}})",
		`Hello {{.FirstName}},

Your payment was received and your booking at {{.Tenant}} is confirmed.

Reference: {{.Reference}}
{{if .DayUse}}Day pass: {{.CheckIn}}{{else}}Arrival: {{.CheckIn}}
Departure: {{.CheckOut}} ({{.Nights}} night(s)){{end}}
Total paid: {{.Total}}

See you soon!
`),
	"fr": mustNotice(
		"Votre réservation chez {{.Tenant}} est confirmée ({{.Reference}})",
		`Bonjour {{.FirstName}},

Votre paiement a bien été reçu et votre réservation chez {{.Tenant}} est confirmée.

Référence : {{.Reference}}
{{if .DayUse}}Accès à la journée : {{.CheckIn}}{{else}}Arrivée : {{.CheckIn}}
Départ : {{.CheckOut}} ({{.Nights}} nuit(s)){{end}}
Montant payé : {{.Total}}

À bientôt !
`),
	"es": mustNotice(
		"Tu reserva en {{.Tenant}} está confirmada ({{.Reference}})",
		`Hola {{.FirstName}},

Hemos recibido tu pago y tu reserva en {{.Tenant}} está confirmada.

Referencia: {{.Reference}}
{{if .DayUse}}Pase de día: {{.CheckIn}}{{else}}Llegada: {{.CheckIn}}
Salida: {{.CheckOut}} ({{.Nights}} noche(s)){{end}}
Total pagado: {{.Total}}

¡Hasta pronto!
`),
}

func mustNotice(subject, body string) noticeTemplate {
	return noticeTemplate{
		subject: template.Must(template.New("subject").Parse(subject)),
		body:    template.Must(template.New("body").Parse(body)),
	}
}

// NormalizeLocale maps "fr-FR", "FR" or "fr_ca" to a supported locale and
// falls back to DefaultLocale.
func NormalizeLocale(raw string) string {
	l := booking.Language(raw)
	if _, ok := notices[l]; ok {
		return l
	}
	return DefaultLocale
}

// Render builds the confirmation notice for b in the guest's locale.
func Render(b booking.Booking, tenantName string) (Notice, error) {
	locale := NormalizeLocale(b.Locale)
	tpl := notices[locale]
	if tenantName == "" {
		tenantName = "StayBook"
	}

	data := noticeData{
		FirstName: b.GuestFirstName,
		Tenant:    tenantName,
		Reference: fmt.Sprintf("SB-%06d", b.ID),
		CheckIn:   booking.FormatDate(b.CheckIn),
		CheckOut:  booking.FormatDate(b.CheckOut),
		Nights:    b.Window().Nights(),
		DayUse:    b.Kind.DayUse(),
		Total:     money.FormatMinor(b.GrossMinor) + " " + strings.ToUpper(b.Currency),
	}

	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return Notice{}, fmt.Errorf("%w: render subject: %v", ErrNotification, err)
	}
	if err := tpl.body.Execute(&body, data); err != nil {
		return Notice{}, fmt.Errorf("%w: render body: %v", ErrNotification, err)
	}
	return Notice{Locale: locale, Subject: subject.String(), Body: body.String()}, nil
}
