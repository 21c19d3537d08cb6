package shipper

import (
	"fmt"
	"strings"
	"unicode"
)

// regionCountries lists destinations whose carriers require a state or
// province code.
var regionCountries = map[string]bool{
	"US": true,
	"CA": true,
	"AU": true,
	"NZ": true,
}

// NormalizeAddress turns a destination and its buyer into the canonical
// ship-to address. Home deliveries must have a city, postal code and country;
// pickup-point deliveries get a first/last name split.
func NormalizeAddress(dest Destination, mode DeliveryMode, buyer Buyer) (Address, error) {
	country := dest.ResolvedCountry()
	postal := StripPostalCode(dest.PostalCode)

	if _, home := mode.(HomeDelivery); home {
		var missing []string
		if strings.TrimSpace(dest.City) == "" {
			missing = append(missing, "city")
		}
		if postal == "" {
			missing = append(missing, "postal_code")
		}
		if country == "" {
			missing = append(missing, "country")
		}
		if len(missing) > 0 {
			return Address{}, fmt.Errorf("%w: missing %s", ErrIncompleteAddress, strings.Join(missing, ", "))
		}
	}

	phone := dest.Phone
	if phone == "" {
		phone = buyer.Phone
	}

	addr := Address{
		Name:              buyer.FullName,
		Email:             buyer.Email,
		Line1:             strings.TrimSpace(dest.Street + " " + dest.HouseNumber),
		PostalCode:        postal,
		City:              dest.City,
		CountryCode:       country,
		StateProvinceCode: RegionCode(country, dest.StateProvinceCode),
		Phone:             phone,
	}

	if IsPickupPoint(mode) {
		addr.FirstName, addr.LastName = SplitName(buyer.FullName)
	}
	return addr, nil
}

// SplitName splits a full name on the first space. A single-word name is
// used as both first and last name.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	first = parts[0]
	last = strings.Join(parts[1:], " ")
	if last == "" {
		last = first
	}
	return first, last
}

// StripPostalCode removes every whitespace rune from a postal code.
func StripPostalCode(postal string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, postal)
}

// RegionCode returns the ISO 3166-2 style region for countries that need
// one, prefixing bare codes with the country ("CA" in US -> "US-CA").
// Other countries get no region.
func RegionCode(country, raw string) string {
	country = strings.ToUpper(strings.TrimSpace(country))
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" || !regionCountries[country] {
		return ""
	}
	if strings.Contains(raw, "-") {
		return raw
	}
	return country + "-" + raw
}
