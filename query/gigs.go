package query

import (
	"github.com/flanksource/gigs/api"
	"github.com/flanksource/gigs/context"
)

// GigOwners resolves the identity that posted a gig.
// Ownership is read on every call; it is never cached.
type GigOwners struct{}

func (GigOwners) OwnerOf(ctx context.Context, gigID int64) (int64, error) {
	var owners []int64
	if err := ctx.DB().Raw("SELECT posted_by_user_id FROM gigs WHERE gig_id = ?", gigID).Scan(&owners).Error; err != nil {
		return 0, translateError(ctx, err, "gig.owner", "gig not found")
	}

	if len(owners) == 0 {
		return 0, ctx.Oops().Code(api.ENOTFOUND).Errorf("gig %d not found", gigID)
	}
	return owners[0], nil
}
