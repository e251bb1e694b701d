package payments

import (
	"regexp"
	"strings"

	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
)

// Safaricom and Airtel numbers: 07xx/01xx locally, 2547xx/2541xx in MSISDN form
var kenyanMSISDN = regexp.MustCompile(`^(?:\+?254|0)?([17]\d{8})$`)

// NormalizeMSISDN returns phone in the 2547XXXXXXXX form Daraja expects
func NormalizeMSISDN(phone string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	m := kenyanMSISDN.FindStringSubmatch(cleaned)
	if m == nil {
		return "", apperrors.InvalidArgument("phone number %q is not a valid Kenyan mobile number", phone)
	}
	return "254" + m[1], nil
}
