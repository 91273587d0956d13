package prescription

import "github.com/ehr/erx-harness/internal/domain/actor"

// Issued holds the prescriptions a prescriber has activated.
type Issued struct {
	Records *actor.OrderedStore[*Record]
}

func NewIssued() *Issued {
	return &Issued{Records: actor.NewOrderedStore[*Record]()}
}

func (c *Issued) Kind() actor.CapabilityKind { return actor.Prescribes }

// Pocket holds the prescriptions an insured party (or representative)
// can redeem: their own downloads plus handed-over records.
type Pocket struct {
	Records *actor.OrderedStore[*Record]
}

func NewPocket() *Pocket {
	return &Pocket{Records: actor.NewOrderedStore[*Record]()}
}

func (c *Pocket) Kind() actor.CapabilityKind { return actor.ReceivesPrescriptions }

// Dispensing holds a dispensing party's working records. Accepted
// records retire into Dispensed or Aborted once terminal.
type Dispensing struct {
	Accepted  *actor.OrderedStore[*Record]
	Dispensed *actor.OrderedStore[*Record]
	Aborted   *actor.OrderedStore[*Record]
}

func NewDispensing() *Dispensing {
	return &Dispensing{
		Accepted:  actor.NewOrderedStore[*Record](),
		Dispensed: actor.NewOrderedStore[*Record](),
		Aborted:   actor.NewOrderedStore[*Record](),
	}
}

func (c *Dispensing) Kind() actor.CapabilityKind { return actor.DispensesPrescriptions }

// ReceivedDrugs holds what an insured party was handed after dispense.
type ReceivedDrugs struct {
	Records *actor.OrderedStore[*DispensedDrug]
}

func NewReceivedDrugs() *ReceivedDrugs {
	return &ReceivedDrugs{Records: actor.NewOrderedStore[*DispensedDrug]()}
}

func (c *ReceivedDrugs) Kind() actor.CapabilityKind { return actor.ReceivesDispensedDrugs }
