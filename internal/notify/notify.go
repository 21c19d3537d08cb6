// Package notify tells the shop owner about paid orders.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotification wraps every delivery failure.
var ErrNotification = errors.New("notification failed")

// OrderNotification is the summary of a paid order.
type OrderNotification struct {
	OrderID          string
	Name             string
	Email            string
	Phone            string
	AddressLine      string
	PostalCode       string
	City             string
	CountryCode      string
	Dedication       string
	AmountTotalCents int64
}

// Notifier delivers order notifications.
type Notifier interface {
	Notify(ctx context.Context, n OrderNotification) error
}

// Subject returns the message subject.
func (n OrderNotification) Subject() string {
	return "Nouvelle commande " + n.OrderID
}

// Address returns the one-line postal address.
func (n OrderNotification) Address() string {
	return fmt.Sprintf("%s, %s %s, %s", n.AddressLine, n.PostalCode, n.City, n.CountryCode)
}

// Total returns the order total in euros, e.g. "36.95 €".
func (n OrderNotification) Total() string {
	return decimal.New(n.AmountTotalCents, -2).StringFixed(2) + " €"
}

// Body renders the plain-text message.
func (n OrderNotification) Body() string {
	var b strings.Builder
	b.WriteString("Nouvelle commande reçue\n")
	fmt.Fprintf(&b, "Nom       : %s\n", n.Name)
	fmt.Fprintf(&b, "Email     : %s\n", n.Email)
	fmt.Fprintf(&b, "Téléphone : %s\n", n.Phone)
	fmt.Fprintf(&b, "Adresse   : %s\n", n.Address())
	fmt.Fprintf(&b, "Dédicace  : %s\n", n.Dedication)
	fmt.Fprintf(&b, "Total     : %s", n.Total())
	return b.String()
}
