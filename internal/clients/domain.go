// Package clients is the customer directory backed by the upstream API.
package clients

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// BalanceSign tells how the upstream signs a client balance.
type BalanceSign string

const (
	// PositiveOwes: a positive balance means the client owes the shop.
	PositiveOwes BalanceSign = "positive_owes"
	// NegativeOwes: a negative balance means the client owes the shop.
	NegativeOwes BalanceSign = "negative_owes"
)

// Client is a customer. Balance is normalised so that positive means debt.
type Client struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	LastName string          `json:"lastName"`
	DNI      string          `json:"dni"`
	Phone    string          `json:"phone"`
	Address  string          `json:"address"`
	Email    string          `json:"email,omitempty"`
	Balance  decimal.Decimal `json:"balance"`
}

// UnmarshalJSON accepts both "adress" and "address".
func (c *Client) UnmarshalJSON(data []byte) error {
	type plain Client
	var aux struct {
		plain
		Adress  *string `json:"adress"`
		Address *string `json:"address"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Client(aux.plain)
	switch {
	case aux.Address != nil && *aux.Address != "":
		c.Address = *aux.Address
	case aux.Adress != nil:
		c.Address = *aux.Adress
	}
	return nil
}

// FullName joins name and last name.
func (c Client) FullName() string {
	return strings.TrimSpace(c.Name + " " + c.LastName)
}

// HasDebt reports an outstanding balance.
func (c Client) HasDebt() bool {
	return c.Balance.IsPositive()
}

func (c *Client) normalize(sign BalanceSign) {
	if sign == NegativeOwes {
		c.Balance = c.Balance.Neg()
	}
}

// CreateInput is the payload for registering a client.
type CreateInput struct {
	DNI      string `json:"dni" validate:"required,min=6,max=12"`
	Name     string `json:"name" validate:"required,max=80"`
	LastName string `json:"lastName" validate:"required,max=80"`
	Address  string `json:"address" validate:"max=160"`
	Phone    string `json:"phone" validate:"max=40"`
	Email    string `json:"email" validate:"omitempty,email"`
}
