package dummy

import "github.com/flanksource/gigs/models"

var AllDummyEventTypes = []models.EventType{{Name: "festival"}, {Name: "corporate"}, {Name: "wedding"}}

var ErinEvents = models.Employer{
	ID:          1,
	Name:        "Erin Events Co",
	Description: "Festival and stage production",
	Website:     "https://example.com",
	Email:       "contact@example.com",
	Phone:       "00000000",
}

var OllyProductions = models.Employer{
	ID:          2,
	Name:        "Olly Productions",
	Description: "Weddings and private events",
	Website:     "https://example.org",
	Email:       "contact2@example.com",
	Phone:       "11111111",
}

var AllDummyEmployers = []models.Employer{ErinEvents, OllyProductions}

// GigFestival is gig 42, posted by Employer.
var GigFestival = models.Gig{
	ID:             42,
	Name:           "Summer Festival Opening",
	Date:           date(2025, 7, 12),
	Details:        "Main stage opening act, 20 minute set",
	TypeName:       "festival",
	EmployerID:     ptr(ErinEvents.ID),
	PostedByUserID: Employer.ID,
}

// GigGala is posted by DualRole.
var GigGala = models.Gig{
	ID:             43,
	Name:           "Corporate Gala",
	Date:           date(2025, 9, 1),
	Details:        "Evening entertainment",
	TypeName:       "corporate",
	PostedByUserID: DualRole.ID,
}

var GigWedding = models.Gig{
	ID:             44,
	Name:           "Wedding Reception",
	Date:           date(2025, 10, 4),
	Details:        "First dance choreography",
	TypeName:       "wedding",
	EmployerID:     ptr(OllyProductions.ID),
	PostedByUserID: Organizer.ID,
}

var AllDummyGigs = []models.Gig{GigFestival, GigGala, GigWedding}
