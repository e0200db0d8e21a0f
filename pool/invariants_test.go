package pool_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/vramkit/devicepool/driver"
	"github.com/vramkit/devicepool/internal/fakedriver"
	"github.com/vramkit/devicepool/pool"
)

// newPool builds a pool of the given strategy over a fresh fake driver,
// initialized with no limit.
func newPool(name pool.Name) pool.Pool {
	dev := fakedriver.New(0)
	p := pool.New(name, dev, nil)
	Expect(p.Init(pool.Config{AllowSplit: true})).To(Succeed())
	return p
}

var _ = DescribeTable("a freshly allocated handle is never smaller than requested",
	func(name pool.Name) {
		p := newPool(name)
		for _, sz := range []uint64{1, 512, 4096, 1 << 20, 3 * (1 << 20)} {
			h, err := p.Alloc(context.Background(), sz)
			Expect(err).NotTo(HaveOccurred())
			Expect(h.Size()).To(BeNumerically(">=", sz))
			Expect(p.Free(h)).To(Succeed())
		}
	},
	Entry("dummy", pool.Dummy),
	Entry("simple", pool.Simple),
	Entry("split", pool.Split),
)

var _ = DescribeTable("used_bytes tracks exactly the outstanding handles",
	func(name pool.Name) {
		p := newPool(name)

		var held []uint64
		var h1, h2 = mustAlloc(p, 4096), mustAlloc(p, 8192)
		held = append(held, h1.Size(), h2.Size())

		var total uint64
		for _, s := range held {
			total += s
		}
		Expect(p.UsedBytes()).To(Equal(total))

		Expect(p.Free(h1)).To(Succeed())
		Expect(p.UsedBytes()).To(Equal(h2.Size()))

		Expect(p.Free(h2)).To(Succeed())
		Expect(p.UsedBytes()).To(BeZero())
	},
	Entry("dummy", pool.Dummy),
	Entry("simple", pool.Simple),
	Entry("split", pool.Split),
)

var _ = DescribeTable("double-free is always rejected as invalid state",
	func(name pool.Name) {
		p := newPool(name)
		h := mustAlloc(p, 4096)
		Expect(p.Free(h)).To(Succeed())
		Expect(p.Free(h)).To(HaveOccurred())
	},
	Entry("dummy", pool.Dummy),
	Entry("simple", pool.Simple),
	Entry("split", pool.Split),
)

var _ = DescribeTable("Deinit rejects outstanding handles",
	func(name pool.Name) {
		p := newPool(name)
		mustAlloc(p, 4096)
		Expect(p.Deinit()).To(HaveOccurred())
	},
	Entry("dummy", pool.Dummy),
	Entry("simple", pool.Simple),
	Entry("split", pool.Split),
)

func mustAlloc(p pool.Pool, nbytes uint64) driver.Handle {
	h, err := p.Alloc(context.Background(), nbytes)
	Expect(err).NotTo(HaveOccurred())
	return h
}
