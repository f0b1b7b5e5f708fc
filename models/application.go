package models

import (
	"time"
)

type ApplicationStatus string

const (
	ApplicationStatusApplied     ApplicationStatus = "applied"
	ApplicationStatusAccepted    ApplicationStatus = "accepted"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
	ApplicationStatusShortlisted ApplicationStatus = "shortlisted"
	ApplicationStatusWithdrawn   ApplicationStatus = "withdrawn"
)

var ApplicationStatuses = []ApplicationStatus{
	ApplicationStatusApplied,
	ApplicationStatusAccepted,
	ApplicationStatusRejected,
	ApplicationStatusShortlisted,
	ApplicationStatusWithdrawn,
}

// Application is a worker's request to be considered for a gig.
// Only Status is mutable after creation.
type Application struct {
	ID        int64             `json:"application_id" gorm:"column:application_id;primaryKey;autoIncrement"`
	GigID     int64             `json:"gig_id" gorm:"column:gig_id"`
	UserID    int64             `json:"user_id" gorm:"column:user_id"`
	Status    ApplicationStatus `json:"status" gorm:"column:status"`
	AppliedAt time.Time         `json:"applied_at" gorm:"column:applied_at"`
}

func (a Application) TableName() string {
	return "applications"
}

func (a Application) PK() string {
	return itoa(a.ID)
}

// ApplicationOwnership is an application joined with the owner of its gig.
type ApplicationOwnership struct {
	Application
	PostedByUserID int64 `json:"posted_by_user_id" gorm:"column:posted_by_user_id"`
}

// ApplicationView is an application joined with its gig's descriptive fields
// and, for the employer view, the applicant's contact details.
type ApplicationView struct {
	ApplicationID  int64             `json:"application_id" gorm:"column:application_id"`
	UserID         int64             `json:"user_id" gorm:"column:user_id"`
	GigID          int64             `json:"gig_id" gorm:"column:gig_id"`
	Status         ApplicationStatus `json:"status" gorm:"column:status"`
	AppliedAt      time.Time         `json:"applied_at" gorm:"column:applied_at"`
	ApplicantName  string            `json:"applicant_name,omitempty" gorm:"column:applicant_name"`
	ApplicantEmail string            `json:"applicant_email,omitempty" gorm:"column:applicant_email"`
	GigName        string            `json:"gig_name" gorm:"column:gig_name"`
	GigDate        *time.Time        `json:"gig_date,omitempty" gorm:"column:gig_date"`
	TypeName       string            `json:"type_name,omitempty" gorm:"column:type_name"`
	GigDetails     string            `json:"gig_details,omitempty" gorm:"column:gig_details"`
}
