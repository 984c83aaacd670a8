// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

//go:build integration

package policy_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/McManning/stakeholder/internal/access"
	"github.com/McManning/stakeholder/internal/access/policy"
)

var _ = Describe("Stakeholder verdicts", func() {
	var (
		ctx    context.Context
		engine *policy.Engine
	)

	BeforeEach(func() {
		ctx = context.Background()
		engine = newEngine(writeRules(suiteRules))
	})

	check := func(username, realm, id string) access.Verdict {
		GinkgoHelper()
		v, err := engine.Check(ctx, "WIKI_VIEW", username,
			&access.Resource{Realm: realm, ID: id})
		Expect(err).NotTo(HaveOccurred())
		return v
	}

	Describe("wiki pages", func() {
		It("denies a grouped user outside their patterns", func() {
			Expect(check("mcmanning", access.RealmWiki, "Admin/Secrets")).
				To(Equal(access.VerdictDeny))
		})

		It("abstains inside the group's stake", func() {
			Expect(check("mcmanning", access.RealmWiki, "Projects/Buck-IRB Protocol")).
				To(Equal(access.VerdictAbstain))
		})

		It("abstains for users in no restricted group", func() {
			Expect(check("stranger", access.RealmWiki, "Admin/Secrets")).
				To(Equal(access.VerdictAbstain))
		})

		It("scopes contractors to their own patterns", func() {
			Expect(check("dietrich", access.RealmWiki, "Public/FAQ")).
				To(Equal(access.VerdictAbstain))
			Expect(check("dietrich", access.RealmWiki, "Projects/Buck-IRB Protocol")).
				To(Equal(access.VerdictDeny))
		})
	})

	Describe("transitive permission grants", func() {
		It("reaches groups through the grant graph", func() {
			// chen has no user_group row; membership in irb comes from the
			// (chen, irb) grant alone.
			Expect(check("chen", access.RealmWiki, "Admin/Secrets")).
				To(Equal(access.VerdictDeny))
			Expect(check("chen", access.RealmWiki, "Public/FAQ")).
				To(Equal(access.VerdictAbstain))
		})
	})

	Describe("milestones", func() {
		It("matches milestone patterns directly", func() {
			Expect(check("mcmanning", access.RealmMilestone, "Buck-IRB 2.0")).
				To(Equal(access.VerdictAbstain))
			Expect(check("mcmanning", access.RealmMilestone, "Platform 1.0")).
				To(Equal(access.VerdictDeny))
		})

		It("abstains when the winning group has no milestone patterns", func() {
			Expect(check("dietrich", access.RealmMilestone, "Platform 1.0")).
				To(Equal(access.VerdictAbstain))
		})
	})

	Describe("tickets", func() {
		It("gates a ticket by its milestone", func() {
			Expect(check("mcmanning", access.RealmTicket, "7")).
				To(Equal(access.VerdictAbstain), "milestone Buck-IRB 1.8 is inside irb's stake")
			Expect(check("mcmanning", access.RealmTicket, "8")).
				To(Equal(access.VerdictDeny), "milestone COI Review is outside irb's stake")
		})

		It("treats a NULL milestone as the empty title", func() {
			Expect(check("mcmanning", access.RealmTicket, "9")).
				To(Equal(access.VerdictDeny))
		})

		It("abstains on unknown tickets", func() {
			Expect(check("mcmanning", access.RealmTicket, "404")).
				To(Equal(access.VerdictAbstain))
		})

		It("abstains on non-numeric ticket ids", func() {
			Expect(check("mcmanning", access.RealmTicket, "TracLinks")).
				To(Equal(access.VerdictAbstain))
		})
	})

	Describe("other realms", func() {
		It("gates by the nearest enclosing ticket", func() {
			res := &access.Resource{
				Realm:  "attachment",
				ID:     "design.pdf",
				Parent: &access.Resource{Realm: access.RealmTicket, ID: "8"},
			}
			v, err := engine.Check(ctx, "ATTACHMENT_VIEW", "mcmanning", res)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(access.VerdictDeny))
		})

		It("abstains when no ticket encloses the resource", func() {
			res := &access.Resource{
				Realm:  "report",
				ID:     "12",
				Parent: &access.Resource{Realm: access.RealmWiki, ID: "Reports"},
			}
			v, err := engine.Check(ctx, "REPORT_VIEW", "mcmanning", res)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(access.VerdictAbstain))
		})
	})
})
