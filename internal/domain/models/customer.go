// internal/domain/models/customer.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Location is the pipeline stage a customer record lives in. Each location
// is its own collection; a customer is in exactly one of them at a time.
type Location string

const (
	LocationToday   Location = "today"
	LocationPending Location = "pending"
	LocationSitting Location = "sitting"
)

// Locations lists every location in lookup order.
var Locations = []Location{LocationSitting, LocationPending, LocationToday}

// Valid reports whether l is a known location.
func (l Location) Valid() bool {
	switch l {
	case LocationToday, LocationPending, LocationSitting:
		return true
	}
	return false
}

// CustomerStatus is the customer's pipeline status.
type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "ACTIVE"
	CustomerInEvent  CustomerStatus = "IN_EVENT"
	CustomerRejected CustomerStatus = "REJECTED"
)

// Customer is a person moving through the pipeline.
//
// ActiveContainerID is a weak back-reference used for lookups only; the
// assignment is the source of truth for placement.
type Customer struct {
	ID     primitive.ObjectID `bson:"_id" json:"id"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"-"`
	Phone  string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Gender string             `bson:"gender,omitempty" json:"gender,omitempty"`
	Age    int                `bson:"age,omitempty" json:"age,omitempty"`
	City   string             `bson:"city,omitempty" json:"city,omitempty"`

	DikshaEligible  bool `bson:"diksha_eligible" json:"dikshaEligible"`
	DikshaQualified bool `bson:"diksha_qualified" json:"dikshaQualified"`

	Status            CustomerStatus      `bson:"status" json:"status"`
	ActiveContainerID *primitive.ObjectID `bson:"active_container_id,omitempty" json:"activeContainerId,omitempty"`

	Notes string `bson:"notes,omitempty" json:"notes,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
