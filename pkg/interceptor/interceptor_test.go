package interceptor

import (
	"context"
	"errors"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/l7mp/supercouch/internal/ssettest"
	"github.com/l7mp/supercouch/pkg/sset"
)

// fakeNativeViewer is a Viewer that records the last call it received and
// answers with a canned response, used to confirm that pass-through
// requests reach the wrapped native handle unchanged.
type fakeNativeViewer struct {
	lastDdoc, lastView string
	lastParams         map[string]any
	response           ViewResponse
}

func (f *fakeNativeViewer) View(ctx context.Context, ddoc, view string, params map[string]any) (ViewResponse, error) {
	f.lastDdoc, f.lastView, f.lastParams = ddoc, view, params
	return f.response, nil
}

var _ = Describe("Interceptor", func() {
	var svc *ssettest.FakeService
	var native *fakeNativeViewer
	var icept *Interceptor
	var ctx context.Context

	BeforeEach(func() {
		svc = ssettest.NewFakeService()
		native = &fakeNativeViewer{response: ViewResponse{TotalRows: 1, Rows: []ViewRow{{ID: "doc1", Key: "a"}}}}
		icept = New(native, svc, logr.Discard())
		ctx = context.Background()

		Expect(svc.Process(ctx, []sset.Operation{
			{Database: "UsersIndex", IDPath: []string{"ByDate"}, Score: 100, Value: "u1", Keep: sset.AllValues},
			{Database: "UsersIndex", IDPath: []string{"ByDate"}, Score: 200, Value: "u2", Keep: sset.AllValues},
			{Database: "Users", IDPath: []string{"u7"}, Score: 1, Value: map[string]any{"n": "seven"}, Keep: sset.LastValue},
		})).To(Succeed())
	})

	// S3 from the spec's end-to-end scenarios: a keys-query against a
	// $SSET-marked key list resolves each key against the sorted-set
	// service instead of the native view.
	It("resolves a keys query against the sorted-set service", func() {
		resp, err := icept.View(ctx, "_design/foo", "by_date", map[string]any{
			"keys": []any{
				[]any{"$SSET", "Users", "u7"},
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Rows).To(HaveLen(1))
		Expect(resp.Rows[0].ID).To(Equal("#SSET"))
		Expect(resp.Rows[0].Value).To(Equal(map[string]any{"n": "seven"}))
		Expect(native.lastView).To(BeEmpty())
	})

	It("fails a keys query with a ViewError naming keys_query_failed when a key shape is invalid", func() {
		_, err := icept.View(ctx, "_design/foo", "by_date", map[string]any{
			"keys": []any{[]any{"$SSET"}},
		})
		Expect(err).To(HaveOccurred())
		var verr *ViewError
		Expect(errors.As(err, &verr)).To(BeTrue())
		Expect(verr.Reason).To(Equal("keys_query_failed"))
	})

	// S4 from the spec's end-to-end scenarios: a startkey/endkey range
	// query against a $SSET-marked prefix resolves against RangeByScore.
	It("resolves a range query against the sorted-set service", func() {
		resp, err := icept.View(ctx, "_design/foo", "by_date", map[string]any{
			"startkey": []any{"$SSET", "UsersIndex", "ByDate", 0.0},
			"endkey":   []any{"$SSET", "UsersIndex", "ByDate", 1000.0},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.TotalRows).To(Equal(2))
		Expect(resp.Rows).To(HaveLen(2))
		Expect(resp.Rows[0].Value).To(Equal("u1"))
		Expect(resp.Rows[1].Value).To(Equal("u2"))
		Expect(native.lastView).To(BeEmpty())
	})

	It("honors descending order on a range query", func() {
		resp, err := icept.View(ctx, "_design/foo", "by_date", map[string]any{
			"startkey":   []any{"$SSET", "UsersIndex", "ByDate", 0.0},
			"endkey":     []any{"$SSET", "UsersIndex", "ByDate", 1000.0},
			"descending": true,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Rows).To(HaveLen(2))
		Expect(resp.Rows[0].Value).To(Equal("u2"))
		Expect(resp.Rows[1].Value).To(Equal("u1"))
	})

	It("applies skip and limit as paging on a range query", func() {
		resp, err := icept.View(ctx, "_design/foo", "by_date", map[string]any{
			"startkey": []any{"$SSET", "UsersIndex", "ByDate", 0.0},
			"endkey":   []any{"$SSET", "UsersIndex", "ByDate", 1000.0},
			"skip":     1.0,
			"limit":    1.0,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Rows).To(HaveLen(1))
		Expect(resp.Rows[0].Value).To(Equal("u2"))
	})

	// S5 from the spec's end-to-end scenarios: a plain query passes
	// through untouched to the native view handle.
	It("delegates a pass-through query to the native view handle", func() {
		resp, err := icept.View(ctx, "_design/foo", "by_name", map[string]any{"startkey": "a", "endkey": "z"})
		Expect(err).NotTo(HaveOccurred())
		Expect(native.lastDdoc).To(Equal("_design/foo"))
		Expect(native.lastView).To(Equal("by_name"))
		Expect(resp).To(Equal(native.response))
	})
})
