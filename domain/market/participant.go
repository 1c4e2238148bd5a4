package market

import (
	"fmt"

	"github.com/google/uuid"
)

// Participant is a connected trader. Identity is assigned on
// connection; orders created by the participant outlive it as history.
type Participant struct {
	ID uuid.UUID

	// Orders is every order ever owned, forks included.
	Orders []*Order
}

func NewParticipant() *Participant {
	return &Participant{ID: uuid.New()}
}

// Attach records ownership of an order. Called by the store on insert,
// mirroring the back reference the order itself carries.
func (p *Participant) Attach(o *Order) {
	p.Orders = append(p.Orders, o)
}

// Deactivator consumes orders to be deactivated in one commit.
type Deactivator interface {
	Deactivate(*Order)
}

// Deactivate feeds every still-active owned order into d. Idempotent:
// a second call finds nothing active. Invoked on disconnect.
func (p *Participant) Deactivate(d Deactivator) {
	for _, o := range p.Orders {
		if o.Active {
			d.Deactivate(o)
		}
	}
}

func (p *Participant) String() string {
	return fmt.Sprintf("<Participant %s>", p.ID)
}
