package models

// RelationshipStatus is the status carried by a mirror entry.
type RelationshipStatus string

const RelationshipAccepted RelationshipStatus = "accepted"

// RelationshipEntry is one side of the employer/freelancer mirror:
// users/{employer}/acceptedFreelancers/{freelancer} and
// users/{freelancer}/linkedEmployers/{employer}.
type RelationshipEntry struct {
	Name   string             `json:"name"`
	Status RelationshipStatus `json:"status"`
}

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	UserID   string `json:"userId"`
	Expected int    `json:"expected"`
	Repaired int    `json:"repaired"`
	Removed  int    `json:"removed"`
}
