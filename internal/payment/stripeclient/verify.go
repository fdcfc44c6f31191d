package stripeclient

import (
	"strings"

	paymentdomain "github.com/kindbridge/kindbridge/internal/payment/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// ConstructEvent verifies the signature header against each configured
// secret in order, accepting on the first match. Multiple secrets let a
// single endpoint serve test and live mode and survive secret rotation.
func ConstructEvent(payload []byte, sigHeader string, secrets []string) (stripe.Event, error) {
	if strings.TrimSpace(sigHeader) == "" {
		return stripe.Event{}, paymentdomain.ErrMissingSignature
	}

	for _, secret := range secrets {
		event, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err == nil {
			return event, nil
		}
	}
	return stripe.Event{}, paymentdomain.ErrInvalidSignature
}
