package models

import (
	"strconv"
	"time"
)

// Gig is a posted work opportunity. Gigs are written by the gig service;
// this repository only reads them.
type Gig struct {
	ID             int64      `json:"gig_id" gorm:"column:gig_id;primaryKey;autoIncrement"`
	Name           string     `json:"gig_name" gorm:"column:gig_name"`
	Date           *time.Time `json:"gig_date,omitempty" gorm:"column:gig_date"`
	Details        string     `json:"gig_details,omitempty" gorm:"column:gig_details"`
	TypeName       string     `json:"type_name,omitempty" gorm:"column:type_name"`
	EmployerID     *int64     `json:"employer_id,omitempty" gorm:"column:employer_id"`
	PostedByUserID int64      `json:"posted_by_user_id" gorm:"column:posted_by_user_id"`
	CreatedAt      time.Time  `json:"created_at" gorm:"column:created_at;<-:false"`
}

func (g Gig) TableName() string {
	return "gigs"
}

func (g Gig) PK() string {
	return itoa(g.ID)
}

type Employer struct {
	ID          int64  `json:"employer_id" gorm:"column:employer_id;primaryKey;autoIncrement"`
	Name        string `json:"employer_name" gorm:"column:employer_name"`
	Description string `json:"description,omitempty" gorm:"column:description"`
	Website     string `json:"website,omitempty" gorm:"column:website"`
	Email       string `json:"email,omitempty" gorm:"column:email"`
	Phone       string `json:"phone,omitempty" gorm:"column:phone"`
}

func (e Employer) TableName() string {
	return "employers"
}

type EventType struct {
	Name string `json:"type_name" gorm:"column:type_name;primaryKey"`
}

func (e EventType) TableName() string {
	return "event_types"
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
