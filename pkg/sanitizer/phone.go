package sanitizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var ErrInvalidPhone = errors.New("invalid phone number")

type PhoneNormalizer struct {
	regions []string
}

func NewPhoneNormalizer(regions []string) *PhoneNormalizer {
	return &PhoneNormalizer{regions: regions}
}

// Normalize returns phone in E.164 form. Regions are tried in order for
// numbers without a leading '+'.
func (n *PhoneNormalizer) Normalize(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPhone)
	}

	for _, region := range n.regions {
		parsed, err := phonenumbers.Parse(phone, region)
		if err != nil {
			continue
		}
		if phonenumbers.IsValidNumber(parsed) {
			return phonenumbers.Format(parsed, phonenumbers.E164), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidPhone, MaskPhone(phone))
}

// MaskPhone keeps the last three digits, e.g. "+254712345678" -> "**********678".
func MaskPhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if len(phone) <= 3 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-3) + phone[len(phone)-3:]
}
