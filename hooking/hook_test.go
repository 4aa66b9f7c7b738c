package hooking

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("HookableBase", func() {
	var (
		mockCtrl *gomock.Controller
		base     *HookableBase
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		base = NewHookableBase()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should invoke hooks in registration order", func() {
		first := NewMockHook(mockCtrl)
		second := NewMockHook(mockCtrl)
		pos := &HookPos{Name: "Pos"}
		ctx := HookCtx{Domain: base, Pos: pos, Item: 1}

		base.AcceptHook(first)
		base.AcceptHook(second)

		gomock.InOrder(
			first.EXPECT().Func(ctx),
			second.EXPECT().Func(ctx),
		)

		base.InvokeHook(ctx)

		Expect(base.NumHooks()).To(Equal(2))
		Expect(base.Hooks()).To(HaveLen(2))
	})

	It("should panic on a duplicated hook", func() {
		hook := NewMockHook(mockCtrl)
		base.AcceptHook(hook)

		Expect(func() { base.AcceptHook(hook) }).To(Panic())
	})

	It("should accept several function hooks", func() {
		count := 0
		base.AcceptHook(HookFunc(func(HookCtx) { count++ }))
		base.AcceptHook(HookFunc(func(HookCtx) { count += 10 }))

		base.InvokeHook(HookCtx{Pos: &HookPos{Name: "Pos"}})

		Expect(count).To(Equal(11))
	})
})

type named struct{}

func (named) String() string { return "named-item" }

var _ = Describe("LogHook", func() {
	var (
		buf    *bytes.Buffer
		logger *log.Logger
	)

	BeforeEach(func() {
		buf = new(bytes.Buffer)
		logger = log.New(buf, "", 0)
	})

	It("should log every position when no filter is given", func() {
		h := NewLogHook(logger)

		h.Func(HookCtx{Pos: &HookPos{Name: "Dispatch"}, Item: named{}})

		Expect(buf.String()).To(Equal("Dispatch named-item\n"))
	})

	It("should only log filtered positions", func() {
		keep := &HookPos{Name: "Keep"}
		drop := &HookPos{Name: "Drop"}
		h := NewLogHook(logger, keep)

		h.Func(HookCtx{Pos: drop, Item: named{}})
		h.Func(HookCtx{Pos: keep, Item: 3, Detail: "extra"})

		Expect(buf.String()).To(Equal("Keep 3 extra\n"))
	})
})
