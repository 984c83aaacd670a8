// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

//go:build integration

package policy_test

import (
	"context"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/McManning/stakeholder/internal/access"
	"github.com/McManning/stakeholder/internal/access/policy"
)

var _ = Describe("Rules file reloading", func() {
	var (
		ctx    context.Context
		path   string
		engine *policy.Engine
	)

	const restrictive = `groups:
  - group: irb
    realms:
      wiki: Public*
`
	const wideOpen = `groups:
  - group: irb
    realms:
      wiki: "*"
`

	// rewrite replaces the rules file and pushes its mtime forward so the
	// next check sees a changed source regardless of filesystem timestamp
	// granularity.
	rewrite := func(content string, ahead time.Duration) {
		GinkgoHelper()
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		stamp := time.Now().Add(ahead)
		Expect(os.Chtimes(path, stamp, stamp)).To(Succeed())
	}

	check := func(page string) (access.Verdict, error) {
		return engine.Check(ctx, "WIKI_VIEW", "mcmanning",
			&access.Resource{Realm: access.RealmWiki, ID: page})
	}

	BeforeEach(func() {
		ctx = context.Background()
		path = writeRules(restrictive)
		engine = newEngine(path)
	})

	It("picks up edits between checks", func() {
		v, err := check("Internal/Home")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(access.VerdictDeny))

		rewrite(wideOpen, 2*time.Second)

		v, err = check("Internal/Home")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(access.VerdictAbstain))
	})

	It("fails checks on a broken edit rather than serving stale rules", func() {
		v, err := check("Internal/Home")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(access.VerdictDeny))

		rewrite("groups: [unclosed\n", 2*time.Second)

		_, err = check("Internal/Home")
		Expect(err).To(HaveOccurred())

		// Fixing the file brings the engine straight back.
		rewrite(wideOpen, 4*time.Second)

		v, err = check("Internal/Home")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(access.VerdictAbstain))
	})

	It("treats an emptied file as restricting nothing", func() {
		rewrite("", 2*time.Second)

		v, err := check("Internal/Home")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(access.VerdictAbstain))
	})
})
