package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/vendlyhq/vendly-backend/pkg/errors"
)

// Reference is the correlation token embedded in every checkout preference.
// The processor echoes it back verbatim on payments and merchant orders, so
// it is the fallback resolution path when ids alone do not match a session.
type Reference struct {
	StoreID  uuid.UUID
	PlanName string
	Nonce    string
}

func (r Reference) String() string {
	return fmt.Sprintf("%s|%s|%s", r.StoreID, r.PlanName, r.Nonce)
}

// NewReference builds a unique reference for one checkout attempt. The nonce
// keeps retried checkouts for the same store and plan distinct.
func NewReference(storeID uuid.UUID, planName string) Reference {
	return Reference{
		StoreID:  storeID,
		PlanName: planName,
		Nonce:    fmt.Sprintf("%x", time.Now().UnixNano()),
	}
}

// ParseReference decodes a processor-echoed external reference. References
// minted by other systems fail here and leave the event unresolved.
func ParseReference(raw string) (Reference, error) {
	parts := strings.Split(raw, "|")
	if len(parts) != 3 {
		return Reference{}, pkgerrors.New(pkgerrors.CodeValidation, "malformed external reference")
	}
	storeID, err := uuid.Parse(parts[0])
	if err != nil {
		return Reference{}, pkgerrors.New(pkgerrors.CodeValidation, "external reference store id is not a uuid")
	}
	if parts[1] == "" || parts[2] == "" {
		return Reference{}, pkgerrors.New(pkgerrors.CodeValidation, "external reference missing plan or nonce")
	}
	return Reference{StoreID: storeID, PlanName: parts[1], Nonce: parts[2]}, nil
}
