package service

import (
	"time"

	"github.com/lalith-99/territorydesk/internal/lifecycle"
	"github.com/lalith-99/territorydesk/internal/models"
)

// TerritoryView is a territory with its derived status.
//
// Assignment and PublisherName describe the latest assignment and are
// only set while the territory is assigned or expired.
type TerritoryView struct {
	models.Territory
	Status        lifecycle.Status   `json:"status"`
	DaysRemaining *int               `json:"days_remaining"`
	Assignment    *models.Assignment `json:"assignment"`
	PublisherName *string            `json:"publisher_name"`
}

func territoryView(row models.TerritoryWithAssignment, now time.Time) TerritoryView {
	v := TerritoryView{
		Territory: row.Territory,
		Status:    lifecycle.DeriveStatus(row.Latest, now),
	}
	if v.Status != lifecycle.StatusAvailable {
		v.Assignment = row.Latest
		v.PublisherName = row.PublisherName
		v.DaysRemaining = lifecycle.DaysRemaining(row.Latest.ExpiresAt, now)
	}
	return v
}

// AssignmentView is an assignment with the state it is in right now.
type AssignmentView struct {
	models.AssignmentDetail
	State         lifecycle.Status `json:"state"`
	DaysRemaining *int             `json:"days_remaining"`
}

func assignmentView(d models.AssignmentDetail, now time.Time) AssignmentView {
	v := AssignmentView{
		AssignmentDetail: d,
		State:            lifecycle.AssignmentState(&d.Assignment, now),
	}
	if v.State != lifecycle.StatusReturned {
		v.DaysRemaining = lifecycle.DaysRemaining(d.ExpiresAt, now)
	}
	return v
}
