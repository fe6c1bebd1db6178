// Package domain holds value types shared by every bounded context: typed
// identifiers, billing months and billing-cycle arithmetic.
package domain

import (
	"database/sql/driver"
	"strings"

	"github.com/google/uuid"

	dErrors "moa/pkg/domain-errors"
)

// Typed identifiers. Each wraps a UUID so a PartyID can never be passed where
// a UserID is expected.
//
// Invariant: IDs produced by the Parse* constructors are never the nil UUID.
type (
	UserID       uuid.UUID
	PartyID      uuid.UUID
	MembershipID uuid.UUID
	DepositID    uuid.UUID
	PaymentID    uuid.UUID
	SettlementID uuid.UUID
)

func NewPartyID() PartyID           { return PartyID(uuid.New()) }
func NewMembershipID() MembershipID { return MembershipID(uuid.New()) }
func NewDepositID() DepositID       { return DepositID(uuid.New()) }
func NewPaymentID() PaymentID       { return PaymentID(uuid.New()) }
func NewSettlementID() SettlementID { return SettlementID(uuid.New()) }

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id PartyID) String() string      { return uuid.UUID(id).String() }
func (id MembershipID) String() string { return uuid.UUID(id).String() }
func (id DepositID) String() string    { return uuid.UUID(id).String() }
func (id PaymentID) String() string    { return uuid.UUID(id).String() }
func (id SettlementID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id PartyID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id MembershipID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DepositID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// ParseUserID constructs a UserID from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, malformed or the
// nil UUID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	return UserID(u), err
}

func ParsePartyID(s string) (PartyID, error) {
	u, err := parseUUID(s, "party ID")
	return PartyID(u), err
}

func ParseMembershipID(s string) (MembershipID, error) {
	u, err := parseUUID(s, "membership ID")
	return MembershipID(u), err
}

func ParseDepositID(s string) (DepositID, error) {
	u, err := parseUUID(s, "deposit ID")
	return DepositID(u), err
}

func ParsePaymentID(s string) (PaymentID, error) {
	u, err := parseUUID(s, "payment ID")
	return PaymentID(u), err
}

func ParseSettlementID(s string) (SettlementID, error) {
	u, err := parseUUID(s, "settlement ID")
	return SettlementID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

// Value and Scan let typed IDs travel through database/sql as UUID strings.

func (id UserID) Value() (driver.Value, error)       { return uuid.UUID(id).String(), nil }
func (id PartyID) Value() (driver.Value, error)      { return uuid.UUID(id).String(), nil }
func (id MembershipID) Value() (driver.Value, error) { return uuid.UUID(id).String(), nil }
func (id DepositID) Value() (driver.Value, error)    { return uuid.UUID(id).String(), nil }
func (id PaymentID) Value() (driver.Value, error)    { return uuid.UUID(id).String(), nil }
func (id SettlementID) Value() (driver.Value, error) { return uuid.UUID(id).String(), nil }

func (id *UserID) Scan(src any) error       { return (*uuid.UUID)(id).Scan(src) }
func (id *PartyID) Scan(src any) error      { return (*uuid.UUID)(id).Scan(src) }
func (id *MembershipID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }
func (id *DepositID) Scan(src any) error    { return (*uuid.UUID)(id).Scan(src) }
func (id *PaymentID) Scan(src any) error    { return (*uuid.UUID)(id).Scan(src) }
func (id *SettlementID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }
