package queryserver

import (
	"context"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/l7mp/supercouch/internal/ssettest"
	"github.com/l7mp/supercouch/pkg/sset"
)

// S6 from the spec's end-to-end scenarios: a map function emits both a
// normal view row and a diverted $SSET row for the same document, and the
// diverted row lands in the sorted-set service while the normal row comes
// back as a view row.
var _ = Describe("Engine", func() {
	var svc *ssettest.FakeService
	var engine *Engine
	var ctx context.Context

	BeforeEach(func() {
		svc = ssettest.NewFakeService()
		ctx = context.Background()
	})

	It("diverts a $SSET emission to the service and keeps the plain emission as a view row", func() {
		engine = NewEngine(Config{EmitSSet: false}, svc, logr.Discard())

		Expect(engine.AddFunction(`function map(doc) {
			emit(doc._id, doc.name);
			emit(["$SSET", "UsersIndex", "ByDate"], {score: doc.signup, value: doc._id});
		}`)).To(Succeed())

		rows, _, err := engine.MapDoc(ctx, map[string]any{"_id": "u1", "name": "Alice", "signup": 100.0})
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(1))
		Expect(rows[0]).To(HaveLen(1))
		Expect(rows[0][0].Key).To(Equal([]any{"u1"}))
		Expect(rows[0][0].Value).To(Equal("Alice"))

		resp, err := svc.RangeByIndex(ctx, "UsersIndex", []string{"ByDate"}, sset.RangeQuery{Min: 0, Max: -1})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Rows).To(HaveLen(1))
		Expect(resp.Rows[0].Value).To(Equal("u1"))
	})

	It("echoes diverted rows back as view rows when EmitSSet is set", func() {
		engine = NewEngine(Config{EmitSSet: true}, svc, logr.Discard())

		Expect(engine.AddFunction(`function map(doc) {
			emit(["$SSET", "UsersIndex", "ByDate"], {score: doc.signup, value: doc._id});
		}`)).To(Succeed())

		rows, _, err := engine.MapDoc(ctx, map[string]any{"_id": "u1", "signup": 100.0})
		Expect(err).NotTo(HaveOccurred())
		Expect(rows[0]).To(HaveLen(1))
	})

	It("runs every registered function in registration order, one row-slice per function", func() {
		engine = NewEngine(Config{}, svc, logr.Discard())
		Expect(engine.AddFunction(`function map(doc) { emit(doc._id, 1); }`)).To(Succeed())
		Expect(engine.AddFunction(`function map(doc) { emit(doc._id, 2); }`)).To(Succeed())

		rows, _, err := engine.MapDoc(ctx, map[string]any{"_id": "u1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(2))
		Expect(rows[0][0].Value).To(Equal(int64(1)))
		Expect(rows[1][0].Value).To(Equal(int64(2)))
	})

	It("reuses the compiled function for duplicate source instead of recompiling", func() {
		engine = NewEngine(Config{}, svc, logr.Discard())
		src := `function map(doc) { emit(doc._id, doc._id); }`
		Expect(engine.AddFunction(src)).To(Succeed())
		Expect(engine.AddFunction(src)).To(Succeed())
		Expect(engine.functions).To(HaveLen(2))
		Expect(engine.functions[0]).To(BeIdenticalTo(engine.functions[1]))
	})

	It("discards registered functions and state on reset", func() {
		engine = NewEngine(Config{}, svc, logr.Discard())
		Expect(engine.AddFunction(`function map(doc) { emit(doc._id, 1); }`)).To(Succeed())
		engine.Reset([]any{"ddoc", map[string]any{}})
		Expect(engine.functions).To(BeEmpty())

		rows, _, err := engine.MapDoc(ctx, map[string]any{"_id": "u1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(BeEmpty())
	})

	It("fails the whole map_doc call when a diverted emission has an invalid shape", func() {
		engine = NewEngine(Config{}, svc, logr.Discard())
		Expect(engine.AddFunction(`function map(doc) {
			emit(["$SSET", "UsersIndex", "ByDate"], {value: doc._id});
		}`)).To(Succeed())

		_, _, err := engine.MapDoc(ctx, map[string]any{"_id": "u1"})
		Expect(err).To(HaveOccurred())
	})
})
