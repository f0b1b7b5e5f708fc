package dummy

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flanksource/gigs/models"
)

// PopulateDBWithDummyModels inserts the reference users, employers and gigs.
// Existing rows with the same keys are left untouched.
func PopulateDBWithDummyModels(gormDB *gorm.DB) error {
	for _, role := range AllDummyRoles {
		if err := gormDB.Exec("INSERT INTO roles (role_name) VALUES (?) ON CONFLICT (role_name) DO NOTHING", role).Error; err != nil {
			return err
		}
	}

	inserts := []any{
		&AllDummyUsers,
		&AllDummyUserRoles,
		&AllDummyEventTypes,
		&AllDummyEmployers,
		&AllDummyGigs,
	}
	for _, rows := range inserts {
		if err := gormDB.Clauses(clause.OnConflict{DoNothing: true}).Create(rows).Error; err != nil {
			return err
		}
	}

	for _, m := range []struct{ employer, user int64 }{
		{ErinEvents.ID, Employer.ID},
		{OllyProductions.ID, Organizer.ID},
	} {
		if err := gormDB.Exec("INSERT INTO employer_members (employer_id, user_id, member_role) VALUES (?, ?, 'owner') ON CONFLICT DO NOTHING", m.employer, m.user).Error; err != nil {
			return err
		}
	}

	// Explicit ids were used above, move the sequences past them
	for _, seq := range []struct{ table, column string }{
		{"users", "user_id"},
		{"employers", "employer_id"},
		{"gigs", "gig_id"},
	} {
		sql := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', '%s'), GREATEST((SELECT MAX(%s) FROM %s), 1))",
			seq.table, seq.column, seq.column, seq.table)
		if err := gormDB.Exec(sql).Error; err != nil {
			return err
		}
	}
	return nil
}

// DeleteDummyModels removes every application and then the reference rows, in foreign key order.
func DeleteDummyModels(gormDB *gorm.DB) error {
	if err := gormDB.Exec("DELETE FROM applications").Error; err != nil {
		return err
	}
	if err := gormDB.Where("gig_id IN ?", ids(AllDummyGigs, func(g models.Gig) int64 { return g.ID })).Delete(&models.Gig{}).Error; err != nil {
		return err
	}
	if err := gormDB.Exec("DELETE FROM employer_members").Error; err != nil {
		return err
	}
	if err := gormDB.Where("employer_id IN ?", ids(AllDummyEmployers, func(e models.Employer) int64 { return e.ID })).Delete(&models.Employer{}).Error; err != nil {
		return err
	}
	if err := gormDB.Where("user_id IN ?", ids(AllDummyUsers, func(u models.User) int64 { return u.ID })).Delete(&models.User{}).Error; err != nil {
		return err
	}
	return nil
}

func ids[T any](rows []T, id func(T) int64) []int64 {
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		out = append(out, id(r))
	}
	return out
}
