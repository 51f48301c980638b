package ssettest

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/l7mp/supercouch/pkg/sset"
)

var _ = Describe("FakeService", func() {
	var svc *FakeService
	var ctx context.Context

	BeforeEach(func() {
		svc = NewFakeService()
		ctx = context.Background()
	})

	// S1 from the spec's end-to-end scenarios: index of users by sign-up date.
	It("keeps the maximum score per distinct value under ALL_VALUES", func() {
		Expect(svc.Process(ctx, []sset.Operation{
			{Database: "UsersIndex", IDPath: []string{"ByDate"}, Score: 100, Value: "a", Keep: sset.AllValues},
			{Database: "UsersIndex", IDPath: []string{"ByDate"}, Score: 200, Value: "b", Keep: sset.AllValues},
			{Database: "UsersIndex", IDPath: []string{"ByDate"}, Score: 150, Value: "a", Keep: sset.AllValues},
		})).To(Succeed())

		resp, err := svc.RangeByScore(ctx, "UsersIndex", []string{"ByDate"}, sset.RangeQuery{
			Min: 0, Max: 300, IncludeTotal: true, IncludeScores: true,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Paging.Total).To(Equal(2))
		Expect(resp.Rows).To(HaveLen(2))
		Expect(resp.Rows[0].Value).To(Equal("a"))
		Expect(resp.Rows[0].Score).To(Equal(150.0))
		Expect(resp.Rows[1].Value).To(Equal("b"))
		Expect(resp.Rows[1].Score).To(Equal(200.0))
	})

	// S2 from the spec's end-to-end scenarios: keep-last state.
	It("retains only the globally-largest-scored value under LAST_VALUE", func() {
		Expect(svc.Process(ctx, []sset.Operation{
			{Database: "Users", IDPath: []string{"u7"}, Score: 1, Value: map[string]any{"n": "old"}, Keep: sset.LastValue},
			{Database: "Users", IDPath: []string{"u7"}, Score: 5, Value: map[string]any{"n": "new"}, Keep: sset.LastValue},
			{Database: "Users", IDPath: []string{"u7"}, Score: 3, Value: map[string]any{"n": "stale"}, Keep: sset.LastValue},
		})).To(Succeed())

		resp, err := svc.RangeByIndex(ctx, "Users", []string{"u7"}, sset.RangeQuery{
			Min: 0, Max: -1, IncludeScores: true,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Rows).To(HaveLen(1))
		Expect(resp.Rows[0].Value).To(Equal(map[string]any{"n": "new"}))
		Expect(resp.Rows[0].Score).To(Equal(5.0))
	})

	It("never collides two sets with the same id-path but different database", func() {
		Expect(svc.Process(ctx, []sset.Operation{
			{Database: "A", IDPath: []string{"x"}, Score: 1, Value: "va", Keep: sset.AllValues},
			{Database: "B", IDPath: []string{"x"}, Score: 1, Value: "vb", Keep: sset.AllValues},
		})).To(Succeed())

		respA, err := svc.RangeByIndex(ctx, "A", []string{"x"}, sset.RangeQuery{Min: 0, Max: -1})
		Expect(err).NotTo(HaveOccurred())
		Expect(respA.Rows).To(HaveLen(1))
		Expect(respA.Rows[0].Value).To(Equal("va"))
	})

	It("returns zero rows with total=0 for an empty key", func() {
		resp, err := svc.RangeByIndex(ctx, "Nope", []string{"nothing"}, sset.RangeQuery{
			Min: 0, Max: -1, IncludeTotal: true,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Rows).To(BeEmpty())
		Expect(resp.Paging.Total).To(Equal(0))
	})

	It("returns zero rows for rangeByScore with min>max, without error", func() {
		Expect(svc.Process(ctx, []sset.Operation{
			{Database: "D", IDPath: []string{"k"}, Score: 10, Value: "v", Keep: sset.AllValues},
		})).To(Succeed())

		resp, err := svc.RangeByScore(ctx, "D", []string{"k"}, sset.RangeQuery{Min: 50, Max: 5})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Rows).To(BeEmpty())
	})

	It("inverts row order for order=desc but keeps paging semantics", func() {
		Expect(svc.Process(ctx, []sset.Operation{
			{Database: "D", IDPath: []string{"k"}, Score: 1, Value: "a", Keep: sset.AllValues},
			{Database: "D", IDPath: []string{"k"}, Score: 2, Value: "b", Keep: sset.AllValues},
			{Database: "D", IDPath: []string{"k"}, Score: 3, Value: "c", Keep: sset.AllValues},
		})).To(Succeed())

		asc, err := svc.RangeByIndex(ctx, "D", []string{"k"}, sset.RangeQuery{Min: 0, Max: -1})
		Expect(err).NotTo(HaveOccurred())
		desc, err := svc.RangeByIndex(ctx, "D", []string{"k"}, sset.RangeQuery{Min: 0, Max: -1, Order: sset.Desc})
		Expect(err).NotTo(HaveOccurred())

		Expect(len(asc.Rows)).To(Equal(len(desc.Rows)))
		for i := range asc.Rows {
			Expect(asc.Rows[i].Value).To(Equal(desc.Rows[len(desc.Rows)-1-i].Value))
		}
	})

	It("keeps the same score bounds in rangeByScore regardless of order", func() {
		Expect(svc.Process(ctx, []sset.Operation{
			{Database: "D", IDPath: []string{"k"}, Score: 1, Value: "a", Keep: sset.AllValues},
			{Database: "D", IDPath: []string{"k"}, Score: 2, Value: "b", Keep: sset.AllValues},
			{Database: "D", IDPath: []string{"k"}, Score: 3, Value: "c", Keep: sset.AllValues},
		})).To(Succeed())

		desc, err := svc.RangeByScore(ctx, "D", []string{"k"}, sset.RangeQuery{
			Min: 1, Max: 2, Order: sset.Desc,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(desc.Rows).To(HaveLen(2))
		Expect(desc.Rows[0].Value).To(Equal("b"))
		Expect(desc.Rows[1].Value).To(Equal("a"))
	})
})
