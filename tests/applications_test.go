package tests

import (
	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sync/errgroup"

	"github.com/flanksource/gigs/api"
	"github.com/flanksource/gigs/context"
	"github.com/flanksource/gigs/fixtures/dummy"
	"github.com/flanksource/gigs/lifecycle"
	"github.com/flanksource/gigs/models"
	"github.com/flanksource/gigs/query"
	"github.com/flanksource/gigs/rbac"
	"github.com/flanksource/gigs/tests/setup"
)

func newService(options lifecycle.Options) *lifecycle.Service {
	enforcer, err := rbac.Default()
	Expect(err).ToNot(HaveOccurred())
	return lifecycle.NewService(query.Applications{}, query.GigOwners{}, enforcer, options)
}

func as(user models.User) context.Context {
	return setup.DefaultContext.WithUser(user.ID)
}

func storedStatus(id int64) models.ApplicationStatus {
	var status models.ApplicationStatus
	err := setup.DefaultContext.DB().Raw("SELECT status FROM applications WHERE application_id = ?", id).Scan(&status).Error
	Expect(err).ToNot(HaveOccurred())
	return status
}

func countApplications(gig models.Gig, user models.User) int64 {
	var count int64
	err := setup.DefaultContext.DB().Model(&models.Application{}).
		Where("gig_id = ? AND user_id = ?", gig.ID, user.ID).Count(&count).Error
	Expect(err).ToNot(HaveOccurred())
	return count
}

var _ = ginkgo.Describe("Applications", ginkgo.Ordered, func() {
	var svc *lifecycle.Service

	ginkgo.BeforeAll(func() {
		svc = newService(lifecycle.Options{})
	})

	ginkgo.BeforeEach(func() {
		Expect(setup.DefaultContext.DB().Exec("DELETE FROM applications").Error).To(Succeed())
	})

	ginkgo.It("rejects a second application for the same gig", func() {
		first, err := svc.Create(as(dummy.Applicant), dummy.GigFestival.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(first.Status).To(Equal(models.ApplicationStatusApplied))
		Expect(first.AppliedAt).ToNot(BeZero())

		_, err = svc.Create(as(dummy.Applicant), dummy.GigFestival.ID)
		Expect(api.ErrorCode(err)).To(Equal(api.EDUPLICATE))
		Expect(countApplications(dummy.GigFestival, dummy.Applicant)).To(BeEquivalentTo(1))
		Expect(storedStatus(first.ID)).To(Equal(models.ApplicationStatusApplied))
	})

	ginkgo.It("admits exactly one of many concurrent applications", func() {
		var g errgroup.Group
		results := make([]error, 8)
		for i := range results {
			g.Go(func() error {
				_, results[i] = svc.Create(as(dummy.Outsider), dummy.GigWedding.ID)
				return nil
			})
		}
		Expect(g.Wait()).To(Succeed())

		succeeded := 0
		for _, err := range results {
			if err == nil {
				succeeded++
			} else {
				Expect(api.ErrorCode(err)).To(Equal(api.EDUPLICATE))
			}
		}
		Expect(succeeded).To(Equal(1))
		Expect(countApplications(dummy.GigWedding, dummy.Outsider)).To(BeEquivalentTo(1))
	})

	ginkgo.It("hides which gigs exist when applying to an unknown one", func() {
		_, err := svc.Create(as(dummy.Applicant), 987654)
		Expect(api.ErrorCode(err)).To(Equal(api.EREFERENCE))
		Expect(api.ErrorMessage(err)).To(Equal("application failed"))
	})

	ginkgo.It("leaves the status unchanged for an unrelated caller", func() {
		app, err := svc.Create(as(dummy.Applicant), dummy.GigFestival.ID)
		Expect(err).ToNot(HaveOccurred())

		_, err = svc.UpdateStatus(as(dummy.Outsider), app.ID, models.ApplicationStatusWithdrawn)
		Expect(api.ErrorCode(err)).To(Equal(api.EUNAUTHORIZED))
		Expect(storedStatus(app.ID)).To(Equal(models.ApplicationStatusApplied))
	})

	ginkgo.It("enforces the transition whitelist per actor", func() {
		app, err := svc.Create(as(dummy.Applicant), dummy.GigFestival.ID)
		Expect(err).ToNot(HaveOccurred())

		_, err = svc.UpdateStatus(as(dummy.Employer), app.ID, models.ApplicationStatusWithdrawn)
		Expect(api.ErrorCode(err)).To(Equal(api.EFORBIDDEN))

		_, err = svc.UpdateStatus(as(dummy.Applicant), app.ID, models.ApplicationStatusAccepted)
		Expect(api.ErrorCode(err)).To(Equal(api.EFORBIDDEN))

		Expect(storedStatus(app.ID)).To(Equal(models.ApplicationStatusApplied))
	})

	ginkgo.It("reports a missing application as not found", func() {
		_, err := svc.UpdateStatus(as(dummy.Employer), 987654, models.ApplicationStatusAccepted)
		Expect(api.ErrorCode(err)).To(Equal(api.ENOTFOUND))
	})

	ginkgo.It("returns an empty list to a user without applications", func() {
		views, err := svc.List(as(dummy.Organizer), lifecycle.ListFilter{})
		Expect(err).ToNot(HaveOccurred())
		Expect(views).ToNot(BeNil())
		Expect(views).To(BeEmpty())
	})

	ginkgo.It("keeps the committed status when the write is rejected", func() {
		app, err := svc.Create(as(dummy.Applicant), dummy.GigFestival.ID)
		Expect(err).ToNot(HaveOccurred())
		_, err = svc.UpdateStatus(as(dummy.Employer), app.ID, models.ApplicationStatusAccepted)
		Expect(err).ToNot(HaveOccurred())

		db := setup.DefaultContext.DB()
		Expect(db.Exec("DELETE FROM application_status WHERE status = ?", models.ApplicationStatusShortlisted).Error).To(Succeed())
		defer func() {
			Expect(db.Exec("INSERT INTO application_status (status) VALUES (?) ON CONFLICT DO NOTHING", models.ApplicationStatusShortlisted).Error).To(Succeed())
		}()

		_, err = svc.UpdateStatus(as(dummy.Employer), app.ID, models.ApplicationStatusShortlisted)
		Expect(err).To(HaveOccurred())
		Expect(storedStatus(app.ID)).To(Equal(models.ApplicationStatusAccepted))
	})

	ginkgo.It("walks the applicant and employer through a full lifecycle", func() {
		app, err := svc.Create(as(dummy.Applicant), dummy.GigFestival.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(app.Status).To(Equal(models.ApplicationStatusApplied))

		updated, err := svc.UpdateStatus(as(dummy.Employer), app.ID, models.ApplicationStatusShortlisted)
		Expect(err).ToNot(HaveOccurred())
		Expect(updated.Status).To(Equal(models.ApplicationStatusShortlisted))
		Expect(storedStatus(app.ID)).To(Equal(models.ApplicationStatusShortlisted))

		_, err = svc.UpdateStatus(as(dummy.Applicant), app.ID, models.ApplicationStatusShortlisted)
		Expect(api.ErrorCode(err)).To(Equal(api.EFORBIDDEN))

		updated, err = svc.UpdateStatus(as(dummy.Applicant), app.ID, models.ApplicationStatusWithdrawn)
		Expect(err).ToNot(HaveOccurred())
		Expect(updated.Status).To(Equal(models.ApplicationStatusWithdrawn))
		Expect(updated.AppliedAt).To(BeTemporally("~", app.AppliedAt))
	})

	ginkgo.It("does not show an unrelated user the applicants of a gig", func() {
		_, err := svc.Create(as(dummy.Applicant), dummy.GigFestival.ID)
		Expect(err).ToNot(HaveOccurred())

		gigID := dummy.GigFestival.ID
		views, err := svc.List(as(dummy.Outsider), lifecycle.ListFilter{GigID: &gigID})
		Expect(api.ErrorCode(err)).To(Equal(api.EUNAUTHORIZED))
		Expect(views).To(BeEmpty())
	})

	ginkgo.It("joins applicant and gig details into the views", func() {
		_, err := svc.Create(as(dummy.Applicant), dummy.GigFestival.ID)
		Expect(err).ToNot(HaveOccurred())
		_, err = svc.Create(as(dummy.Outsider), dummy.GigFestival.ID)
		Expect(err).ToNot(HaveOccurred())

		gigID := dummy.GigFestival.ID
		applicants, err := svc.List(as(dummy.Employer), lifecycle.ListFilter{GigID: &gigID})
		Expect(err).ToNot(HaveOccurred())
		Expect(applicants).To(HaveLen(2))
		emails := []string{applicants[0].ApplicantEmail, applicants[1].ApplicantEmail}
		Expect(emails).To(ConsistOf(dummy.Applicant.Email, dummy.Outsider.Email))
		Expect(applicants[0].GigName).To(Equal(dummy.GigFestival.Name))

		own, err := svc.List(as(dummy.Applicant), lifecycle.ListFilter{})
		Expect(err).ToNot(HaveOccurred())
		Expect(own).To(HaveLen(1))
		Expect(own[0].GigID).To(Equal(dummy.GigFestival.ID))
	})

	ginkgo.It("lets the gig owner act as employer on their own application", func() {
		app, err := svc.Create(as(dummy.DualRole), dummy.GigGala.ID)
		Expect(err).ToNot(HaveOccurred())

		_, err = svc.UpdateStatus(as(dummy.DualRole), app.ID, models.ApplicationStatusWithdrawn)
		Expect(api.ErrorCode(err)).To(Equal(api.EFORBIDDEN))

		_, err = svc.UpdateStatus(as(dummy.DualRole), app.ID, models.ApplicationStatusAccepted)
		Expect(err).ToNot(HaveOccurred())

		applicantFirst := newService(lifecycle.Options{Precedence: api.PrecedenceApplicant})
		_, err = applicantFirst.UpdateStatus(as(dummy.DualRole), app.ID, models.ApplicationStatusWithdrawn)
		Expect(err).ToNot(HaveOccurred())
	})

	ginkgo.It("deletes only the caller's application", func() {
		_, err := svc.Create(as(dummy.Applicant), dummy.GigFestival.ID)
		Expect(err).ToNot(HaveOccurred())
		_, err = svc.Create(as(dummy.Outsider), dummy.GigFestival.ID)
		Expect(err).ToNot(HaveOccurred())

		Expect(svc.Delete(as(dummy.Applicant), dummy.GigFestival.ID)).To(Succeed())
		Expect(countApplications(dummy.GigFestival, dummy.Applicant)).To(BeZero())
		Expect(countApplications(dummy.GigFestival, dummy.Outsider)).To(BeEquivalentTo(1))

		Expect(svc.Delete(as(dummy.Applicant), dummy.GigFestival.ID)).To(Succeed())

		strict := newService(lifecycle.Options{StrictDelete: true})
		err = strict.Delete(as(dummy.Applicant), dummy.GigFestival.ID)
		Expect(api.ErrorCode(err)).To(Equal(api.ENOTFOUND))
	})
})
