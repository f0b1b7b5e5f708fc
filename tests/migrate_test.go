package tests

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/flanksource/gigs"
	"github.com/flanksource/gigs/api"
	"github.com/flanksource/gigs/fixtures/dummy"
	"github.com/flanksource/gigs/models"
	"github.com/flanksource/gigs/schema"
	"github.com/flanksource/gigs/tests/setup"
)

var _ = ginkgo.Describe("Migrations", func() {
	ginkgo.It("records every script", func() {
		scripts, err := schema.GetScripts()
		Expect(err).ToNot(HaveOccurred())

		var logged []string
		Expect(setup.DefaultContext.DB().Raw("SELECT path FROM migration_logs").Scan(&logged).Error).To(Succeed())
		for name := range scripts {
			Expect(logged).To(ContainElement(name))
		}
	})

	ginkgo.It("can be re-run without changing data", func() {
		Expect(gigs.Migrate(api.NewConfig(setup.PgUrl))).To(Succeed())

		var statuses []models.ApplicationStatus
		Expect(setup.DefaultContext.DB().Raw("SELECT status FROM application_status").Scan(&statuses).Error).To(Succeed())
		Expect(statuses).To(ConsistOf(models.ApplicationStatuses))

		var users int64
		Expect(setup.DefaultContext.DB().Raw("SELECT COUNT(*) FROM users").Scan(&users).Error).To(Succeed())
		Expect(users).To(BeNumerically(">=", 5))
	})

	ginkgo.It("keeps applications when their gig is deleted", func() {
		err := setup.DefaultContext.DB().Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec("INSERT INTO applications (gig_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
				dummy.GigWedding.ID, dummy.Outsider.ID).Error; err != nil {
				return err
			}
			return tx.Exec("DELETE FROM gigs WHERE gig_id = ?", dummy.GigWedding.ID).Error
		})

		var pgErr *pgconn.PgError
		Expect(errors.As(err, &pgErr)).To(BeTrue(), "%v", err)
		Expect(pgErr.Code).To(Equal(pgerrcode.ForeignKeyViolation))

		var gigs int64
		Expect(setup.DefaultContext.DB().Raw("SELECT COUNT(*) FROM gigs WHERE gig_id = ?", dummy.GigWedding.ID).Scan(&gigs).Error).To(Succeed())
		Expect(gigs).To(Equal(int64(1)))
	})
})
