package email

import (
	"fmt"
	"html/template"

	"edumatch/internal/types"
)

// fallbackDetail is the placeholder used when optional metadata is absent.
const fallbackDetail = "Contact us for details."

// esc HTML-escapes a metadata string before interpolation into a body.
func esc(s string) string { return template.HTMLEscapeString(s) }

// wrap produces the shared EduMatch HTML shell around a body fragment.
func wrap(body string) string {
	return fmt.Sprintf(`<html><body style="font-family:sans-serif">%s<p>— The EduMatch Team</p></body></html>`, body)
}

// amountLine formats a money amount, degrading gracefully when the producer
// omitted the currency or amount.
func amountLine(currency string, amount float64) string {
	if currency == "" || amount == 0 {
		return fallbackDetail
	}
	return fmt.Sprintf("%s %.2f", esc(currency), amount)
}

func renderWelcome(md types.Metadata) types.RenderedEmail {
	m, _ := md.(*types.WelcomeMetadata)
	if m == nil {
		m = &types.WelcomeMetadata{}
	}

	subject := "Welcome to EduMatch!"
	greeting := "Hello"
	if m.FirstName != "" {
		subject = fmt.Sprintf("Welcome to EduMatch, %s!", m.FirstName)
		greeting = fmt.Sprintf("Hello %s", esc(m.FirstName))
	}

	return types.RenderedEmail{
		Subject: subject,
		HTML: wrap(fmt.Sprintf(
			`<h1>Welcome to EduMatch</h1><p>%s, your account is ready. Complete your profile to start receiving matches.</p>`,
			greeting)),
	}
}

func renderProfileCreated(md types.Metadata) types.RenderedEmail {
	m, _ := md.(*types.ProfileCreatedMetadata)
	if m == nil {
		m = &types.ProfileCreatedMetadata{}
	}

	kind := "profile"
	if m.ProfileType != "" {
		kind = fmt.Sprintf("%s profile", esc(m.ProfileType))
	}

	return types.RenderedEmail{
		Subject: "Your EduMatch profile is live",
		HTML: wrap(fmt.Sprintf(
			`<p>Your %s has been created and is now visible to matching institutions.</p>`, kind)),
	}
}

func renderPaymentDeadline(md types.Metadata) types.RenderedEmail {
	m, _ := md.(*types.PaymentDeadlineMetadata)
	if m == nil {
		m = &types.PaymentDeadlineMetadata{}
	}

	plan := "your plan"
	if m.PlanName != "" {
		plan = esc(m.PlanName)
	}
	deadline := fallbackDetail
	if m.DeadlineDate != "" {
		deadline = fmt.Sprintf("Payment is due by %s.", esc(m.DeadlineDate))
	}

	return types.RenderedEmail{
		Subject: fmt.Sprintf("Payment reminder for %s", plan),
		HTML: wrap(fmt.Sprintf(
			`<p>A payment of %s for %s is coming up. %s</p>`,
			amountLine(m.Currency, m.Amount), plan, deadline)),
	}
}

func renderApplicationStatus(md types.Metadata) types.RenderedEmail {
	m, _ := md.(*types.ApplicationStatusMetadata)
	if m == nil {
		m = &types.ApplicationStatusMetadata{}
	}

	subject := "Update on your application"
	if m.InstitutionName != "" {
		subject = fmt.Sprintf("Update on your application to %s", m.InstitutionName)
	}
	status := fallbackDetail
	if m.Status != "" {
		status = fmt.Sprintf("New status: <strong>%s</strong>.", esc(m.Status))
	}
	program := ""
	if m.ProgramName != "" {
		program = fmt.Sprintf(" (%s)", esc(m.ProgramName))
	}

	return types.RenderedEmail{
		Subject: subject,
		HTML: wrap(fmt.Sprintf(
			`<p>There is an update on your application%s. %s</p>`, program, status)),
	}
}

func renderPaymentSuccess(md types.Metadata) types.RenderedEmail {
	m, _ := md.(*types.PaymentResultMetadata)
	if m == nil {
		m = &types.PaymentResultMetadata{}
	}

	invoice := ""
	if m.InvoiceID != "" {
		invoice = fmt.Sprintf(" Invoice reference: %s.", esc(m.InvoiceID))
	}

	return types.RenderedEmail{
		Subject: "Payment received",
		HTML: wrap(fmt.Sprintf(
			`<p>We received your payment of %s.%s Thank you!</p>`,
			amountLine(m.Currency, m.Amount), invoice)),
	}
}

func renderPaymentFailed(md types.Metadata) types.RenderedEmail {
	m, _ := md.(*types.PaymentResultMetadata)
	if m == nil {
		m = &types.PaymentResultMetadata{}
	}

	reason := fallbackDetail
	if m.Reason != "" {
		reason = fmt.Sprintf("Reason: %s.", esc(m.Reason))
	}

	return types.RenderedEmail{
		Subject: "Payment failed",
		HTML: wrap(fmt.Sprintf(
			`<p>Your payment of %s could not be processed. %s Please update your payment method and try again.</p>`,
			amountLine(m.Currency, m.Amount), reason)),
	}
}

func renderSubscriptionExpiring(md types.Metadata) types.RenderedEmail {
	m, _ := md.(*types.SubscriptionExpiringMetadata)
	if m == nil {
		m = &types.SubscriptionExpiringMetadata{}
	}

	plan := "Your subscription"
	if m.PlanName != "" {
		plan = fmt.Sprintf("Your %s subscription", esc(m.PlanName))
	}
	expiry := fallbackDetail
	if m.ExpiryDate != "" {
		expiry = fmt.Sprintf("It expires on %s.", esc(m.ExpiryDate))
	}

	return types.RenderedEmail{
		Subject: "Your subscription expires soon",
		HTML: wrap(fmt.Sprintf(
			`<p>%s is about to expire. %s Renew to keep your matches active.</p>`, plan, expiry)),
	}
}

func renderPasswordChanged(md types.Metadata) types.RenderedEmail {
	m, _ := md.(*types.PasswordChangedMetadata)
	if m == nil {
		m = &types.PasswordChangedMetadata{}
	}

	greeting := "Hello"
	if m.FirstName != "" {
		greeting = fmt.Sprintf("Hello %s", esc(m.FirstName))
	}
	when := "just now"
	if m.ChangedAt != "" {
		when = fmt.Sprintf("at %s", esc(m.ChangedAt))
	}

	return types.RenderedEmail{
		Subject: "Your password was changed",
		HTML: wrap(fmt.Sprintf(
			`<p>%s, your EduMatch password was changed %s. If this wasn't you, contact support immediately.</p>`,
			greeting, when)),
	}
}
