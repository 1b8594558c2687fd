package notifications

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/academiaalbert/academia-backend/pkg/db/models"
	"github.com/academiaalbert/academia-backend/pkg/enums"
	"github.com/academiaalbert/academia-backend/pkg/mailer"
)

const dateLayout = "02/01/2006"

type mailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Notifier turns enrollment events into student emails.
type Notifier struct {
	mail mailSender
}

func NewNotifier(mail mailSender) (*Notifier, error) {
	if mail == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	return &Notifier{mail: mail}, nil
}

// PaymentReviewed tells the student the outcome of a payment review.
func (n *Notifier) PaymentReviewed(ctx context.Context, student models.User, course models.Course, enrollment models.Enrollment) error {
	var subject, body string
	if enrollment.PaymentStatus == enums.PaymentStatusPaid {
		subject = fmt.Sprintf("Acesso liberado: %s", course.Title)
		body = fmt.Sprintf("Olá %s, o seu pagamento foi confirmado e o curso %q já está disponível.", student.FirstName, course.Title)
		if enrollment.AccessExpiresAt != nil {
			body += fmt.Sprintf(" O acesso é válido até %s.", enrollment.AccessExpiresAt.Format(dateLayout))
		}
	} else {
		subject = fmt.Sprintf("Pagamento em revisão: %s", course.Title)
		body = fmt.Sprintf("Olá %s, não foi possível confirmar o pagamento do curso %q. Entre em contacto connosco para regularizar.", student.FirstName, course.Title)
	}
	return n.send(ctx, student, subject, body)
}

// ExpiryReminder warns the student that access ends at expiresAt.
func (n *Notifier) ExpiryReminder(ctx context.Context, student models.User, course models.Course, expiresAt time.Time) error {
	subject := fmt.Sprintf("O seu acesso a %s termina em breve", course.Title)
	body := fmt.Sprintf("Olá %s, o seu acesso ao curso %q termina em %s. Renove para continuar a aprender.", student.FirstName, course.Title, expiresAt.Format(dateLayout))
	return n.send(ctx, student, subject, body)
}

func (n *Notifier) send(ctx context.Context, student models.User, subject, body string) error {
	return n.mail.Send(ctx, mailer.Message{
		ToName:  student.DisplayName(),
		ToEmail: student.Email,
		Subject: subject,
		Text:    body,
		HTML:    "<p>" + html.EscapeString(body) + "</p>",
	})
}
