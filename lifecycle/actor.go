package lifecycle

import (
	"github.com/flanksource/gigs/api"
	"github.com/flanksource/gigs/models"
	"github.com/flanksource/gigs/rbac"
)

// ClassifyActor works out whether caller acts on row as the gig's employer or as the applicant.
// A caller who is both resolves through precedence. ok is false when caller is neither.
func ClassifyActor(row models.ApplicationOwnership, caller int64, precedence api.DualRolePrecedence) (actor rbac.Actor, ok bool) {
	isEmployer := row.PostedByUserID == caller
	isApplicant := row.UserID == caller

	switch {
	case isEmployer && isApplicant:
		if precedence == api.PrecedenceApplicant {
			return rbac.ActorApplicant, true
		}
		return rbac.ActorEmployer, true
	case isEmployer:
		return rbac.ActorEmployer, true
	case isApplicant:
		return rbac.ActorApplicant, true
	}
	return "", false
}

func actorPlural(actor rbac.Actor) string {
	switch actor {
	case rbac.ActorEmployer:
		return "employers"
	case rbac.ActorApplicant:
		return "applicants"
	}
	return string(actor) + "s"
}
