package checkout

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tournevent/bookship/pkg/shipper"
)

// Payment session metadata keys.
const (
	MetaShipping   = "shipping"
	MetaName       = "name"
	MetaEmail      = "email"
	MetaDedication = "dedicace"
)

// ErrInvalidMetadata indicates session metadata that cannot be decoded.
var ErrInvalidMetadata = errors.New("invalid metadata")

// OrderMetadata is what the checkout stores on the payment session and the
// webhook reads back after payment.
type OrderMetadata struct {
	Destination shipper.Destination
	Name        string
	Email       string
	Dedication  string
}

// EncodeMetadata flattens m into provider metadata.
func EncodeMetadata(m OrderMetadata) (map[string]string, error) {
	shipping, err := json.Marshal(m.Destination)
	if err != nil {
		return nil, fmt.Errorf("encoding shipping metadata: %w", err)
	}
	return map[string]string{
		MetaShipping:   string(shipping),
		MetaName:       m.Name,
		MetaEmail:      m.Email,
		MetaDedication: m.Dedication,
	}, nil
}

// DecodeMetadata reverses EncodeMetadata. Missing keys decode as empty
// values; a shipping value that is not a JSON object is an error.
func DecodeMetadata(meta map[string]string) (OrderMetadata, error) {
	m := OrderMetadata{
		Name:       meta[MetaName],
		Email:      meta[MetaEmail],
		Dedication: meta[MetaDedication],
	}
	raw := meta[MetaShipping]
	if raw == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(raw), &m.Destination); err != nil {
		return OrderMetadata{}, fmt.Errorf("%w: shipping: %w", ErrInvalidMetadata, err)
	}
	return m, nil
}
