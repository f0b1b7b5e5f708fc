package dummy

import "github.com/flanksource/gigs/models"

const (
	RoleWorker    = "worker"
	RoleOrganizer = "organizer"
	RoleEmployer  = "employer"
)

var AllDummyRoles = []string{RoleWorker, RoleOrganizer, RoleEmployer}

// Applicant applies to gigs posted by others.
var Applicant = models.User{
	ID:    1,
	Name:  "Alice Applicant",
	Email: "applicant1@example.com",
	DOB:   date(1998, 1, 1),
}

// Employer posts GigFestival.
var Employer = models.User{
	ID:    2,
	Name:  "Erin Employer",
	Email: "employer2@example.com",
	DOB:   date(1985, 3, 3),
}

// Outsider neither posted nor applied to anything.
var Outsider = models.User{
	ID:    3,
	Name:  "Uma Unrelated",
	Email: "unrelated3@example.com",
	DOB:   date(1997, 2, 2),
}

// DualRole posts GigGala and may also apply to it.
var DualRole = models.User{
	ID:    4,
	Name:  "Dana DualRole",
	Email: "dualrole4@example.com",
	DOB:   date(1996, 4, 4),
}

var Organizer = models.User{
	ID:    5,
	Name:  "Olly Organizer",
	Email: "organizer5@example.com",
	DOB:   date(1994, 5, 5),
}

var AllDummyUsers = []models.User{Applicant, Employer, Outsider, DualRole, Organizer}

var AllDummyUserRoles = []models.UserRole{
	{UserID: Applicant.ID, RoleName: RoleWorker},
	{UserID: Employer.ID, RoleName: RoleEmployer},
	{UserID: Outsider.ID, RoleName: RoleWorker},
	{UserID: DualRole.ID, RoleName: RoleWorker},
	{UserID: DualRole.ID, RoleName: RoleEmployer},
	{UserID: Organizer.ID, RoleName: RoleOrganizer},
	{UserID: Organizer.ID, RoleName: RoleEmployer},
}
