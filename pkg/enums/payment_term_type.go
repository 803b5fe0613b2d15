package enums

import "fmt"

// PaymentTermType is the settlement mode agreed with a vendor.
type PaymentTermType string

const (
	PaymentTermTypeCredit                 PaymentTermType = "Credit"
	PaymentTermTypeDeliveryAgainstPayment PaymentTermType = "Delivery against payment"
)

var validPaymentTermTypes = []PaymentTermType{
	PaymentTermTypeCredit,
	PaymentTermTypeDeliveryAgainstPayment,
}

// String implements fmt.Stringer.
func (v PaymentTermType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PaymentTermType.
func (v PaymentTermType) IsValid() bool {
	for _, candidate := range validPaymentTermTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePaymentTermType converts raw input into a PaymentTermType.
func ParsePaymentTermType(value string) (PaymentTermType, error) {
	for _, candidate := range validPaymentTermTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment term type %q", value)
}
