package domain

import "time"

// DemandStatus enumerates escalation backlog states.
type DemandStatus string

const (
	DemandStatusPending DemandStatus = "PENDING"
	DemandStatusTaken   DemandStatus = "TAKEN"
)

// Demand is an escalation backlog entry created when a ticket is forwarded
// to another department. The backlog ranks by Score descending, then
// CreatedAt ascending; this is deliberately the inverse convention of the
// live queue's tier weight.
type Demand struct {
	ID         string
	TicketID   string
	Department string
	Score      int
	Reason     string
	Status     DemandStatus
	CreatedAt  time.Time
}
