package broadcast

import "github.com/webitel/broadcast-delivery-service/internal/apperr"

func errValidation(msg string) error {
	return apperr.Validation("invalid_broadcast", msg)
}
