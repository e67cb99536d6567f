package aggregate_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/qclab/internal/aggregate"
	"github.com/san-kum/qclab/internal/dynamo"
)

func column(vals ...float64) *dynamo.Tensor {
	t, _ := dynamo.FromReal(vals, len(vals))
	return t
}

func matrix(rows, cols int, vals ...float64) *dynamo.Tensor {
	t, _ := dynamo.FromReal(vals, rows, cols)
	return t
}

// recorded returns an accumulator holding the batch mean of the given
// per-trajectory energies and 2-mode coordinates.
func recorded(seeds []int64, energy []float64, coords []float64) *aggregate.Data {
	d := aggregate.New(seeds...)
	err := d.Record(map[string]*dynamo.Tensor{
		"energy": column(energy...),
		"z":      matrix(len(energy), 2, coords...),
	}, float64(len(energy)))
	Expect(err).NotTo(HaveOccurred())
	return d
}

func expectClose(a, b *aggregate.Data) {
	ExpectWithOffset(1, a.NormFactor).To(BeNumerically("~", b.NormFactor, 1e-12))
	ExpectWithOffset(1, a.Keys()).To(Equal(b.Keys()))
	for _, key := range a.Keys() {
		at, _ := a.Tensor(key)
		bt, _ := b.Tensor(key)
		ExpectWithOffset(1, at.EqualApprox(bt, 1e-12)).To(BeTrue(), "key %s: %v vs %v", key, at, bt)
	}
}

var _ = Describe("Record", func() {
	It("stores the batch mean under the first weight", func() {
		d := recorded([]int64{0, 1, 2}, []float64{1, 2, 6}, []float64{1, 0, 3, 0, 5, 3})

		Expect(d.NormFactor).To(Equal(3.0))
		e, ok := d.Tensor("energy")
		Expect(ok).To(BeTrue())
		Expect(e.Rank()).To(Equal(0))
		Expect(real(e.At())).To(BeNumerically("~", 3, 1e-15))

		z, _ := d.Tensor("z")
		Expect(z.Shape()).To(Equal([]int{2}))
		Expect(real(z.At(0))).To(BeNumerically("~", 3, 1e-15))
		Expect(real(z.At(1))).To(BeNumerically("~", 1, 1e-15))
	})

	It("keeps the first norm factor on later records", func() {
		d := aggregate.New()
		Expect(d.Record(map[string]*dynamo.Tensor{"x": column(2, 2)}, 2)).To(Succeed())
		Expect(d.Record(map[string]*dynamo.Tensor{"x": column(4, 4)}, 10)).To(Succeed())
		Expect(d.NormFactor).To(Equal(2.0))
		x, _ := d.Tensor("x")
		Expect(real(x.At())).To(Equal(4.0))
	})

	It("rejects a zero weight on a later record without mutating", func() {
		d := aggregate.New()
		Expect(d.Record(map[string]*dynamo.Tensor{"x": column(2, 2)}, 2)).To(Succeed())

		err := d.Record(map[string]*dynamo.Tensor{"x": column(8, 8)}, 0)
		Expect(err).To(MatchError(dynamo.ErrZeroNormalization))
		Expect(d.NormFactor).To(Equal(2.0))
		x, _ := d.Tensor("x")
		Expect(real(x.At())).To(Equal(2.0))

		err = d.RecordStep(0, 1, map[string]*dynamo.Tensor{"y": column(1, 1)}, 0)
		Expect(err).To(MatchError(dynamo.ErrZeroNormalization))
		_, ok := d.Tensor("y")
		Expect(ok).To(BeFalse())
	})

	It("records zero outputs without producing NaN", func() {
		d := aggregate.New(0, 1, 2, 3)
		err := d.Record(map[string]*dynamo.Tensor{"energy": column(0, 0, 0, 0)}, 4)
		Expect(err).NotTo(HaveOccurred())
		e, _ := d.Tensor("energy")
		Expect(e.IsValid()).To(BeTrue())
		Expect(e.At()).To(BeZero())
	})

	It("rejects a zero first weight without mutating", func() {
		d := aggregate.New()
		err := d.Record(map[string]*dynamo.Tensor{"x": column(1)}, 0)
		Expect(errors.Is(err, dynamo.ErrZeroNormalization)).To(BeTrue())
		Expect(d.NormFactor).To(BeZero())
		Expect(d.Values).To(BeEmpty())
	})

	It("rejects outputs with different trajectory counts", func() {
		d := aggregate.New()
		err := d.Record(map[string]*dynamo.Tensor{"a": column(1, 2), "b": column(1, 2, 3)}, 2)
		Expect(errors.Is(err, dynamo.ErrInvalidBatchShape)).To(BeTrue())
		Expect(d.Values).To(BeEmpty())
		Expect(d.NormFactor).To(BeZero())
	})

	It("rejects reserved keys", func() {
		d := aggregate.New()
		err := d.Record(map[string]*dynamo.Tensor{aggregate.SeedKey: column(1)}, 1)
		Expect(errors.Is(err, aggregate.ErrReservedKey)).To(BeTrue())
	})

	It("rejects a shape change for an existing key", func() {
		d := aggregate.New()
		Expect(d.Record(map[string]*dynamo.Tensor{"x": column(1, 2)}, 2)).To(Succeed())
		err := d.Record(map[string]*dynamo.Tensor{"x": matrix(2, 2, 1, 2, 3, 4)}, 2)
		Expect(errors.Is(err, dynamo.ErrDimensionMismatch)).To(BeTrue())
		x, _ := d.Tensor("x")
		Expect(x.Rank()).To(Equal(0))
	})
})

var _ = Describe("RecordStep", func() {
	It("fills one row of the time series per step", func() {
		d := aggregate.New()
		for step, v := range []float64{1, 3, 5} {
			Expect(d.RecordStep(step, 3, map[string]*dynamo.Tensor{"e": column(v, v+2)}, 2)).To(Succeed())
		}
		e, _ := d.Tensor("e")
		Expect(e.Shape()).To(Equal([]int{3}))
		Expect(e.Real()).To(Equal([]float64{2, 4, 6}))
	})

	It("rejects steps outside the series", func() {
		d := aggregate.New()
		err := d.RecordStep(3, 3, map[string]*dynamo.Tensor{"e": column(1)}, 1)
		Expect(errors.Is(err, dynamo.ErrParameterBounds)).To(BeTrue())
		Expect(d.Values).To(BeEmpty())
	})

	It("rejects a series length change", func() {
		d := aggregate.New()
		Expect(d.RecordStep(0, 3, map[string]*dynamo.Tensor{"e": column(1)}, 1)).To(Succeed())
		err := d.RecordStep(0, 4, map[string]*dynamo.Tensor{"e": column(1)}, 1)
		Expect(errors.Is(err, dynamo.ErrDimensionMismatch)).To(BeTrue())
	})
})

var _ = Describe("Merge", func() {
	var a, b, c *aggregate.Data

	BeforeEach(func() {
		a = recorded([]int64{0, 1}, []float64{1, 2}, []float64{1, 2, 3, 4})
		b = recorded([]int64{2, 3, 4}, []float64{0.5, 7, -1}, []float64{0, 1, 1, 0, 2, 2})
		c = recorded([]int64{5}, []float64{10}, []float64{-3, 3})
	})

	It("weights values by norm factor", func() {
		m, err := aggregate.Merge(a, b)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.NormFactor).To(Equal(5.0))
		e, _ := m.Tensor("energy")
		Expect(real(e.At())).To(BeNumerically("~", (1+2+0.5+7-1)/5.0, 1e-12))
		Expect(m.Seeds).To(Equal([]int64{0, 1, 2, 3, 4}))
	})

	It("matches recording the whole ensemble at once", func() {
		whole := recorded([]int64{0, 1, 2, 3, 4, 5},
			[]float64{1, 2, 0.5, 7, -1, 10},
			[]float64{1, 2, 3, 4, 0, 1, 1, 0, 2, 2, -3, 3})
		m, err := aggregate.MergeAll(a, b, c)
		Expect(err).NotTo(HaveOccurred())
		expectClose(m, whole)
	})

	It("is associative", func() {
		ab, err := aggregate.Merge(a, b)
		Expect(err).NotTo(HaveOccurred())
		left, err := aggregate.Merge(ab, c)
		Expect(err).NotTo(HaveOccurred())

		bc, err := aggregate.Merge(b, c)
		Expect(err).NotTo(HaveOccurred())
		right, err := aggregate.Merge(a, bc)
		Expect(err).NotTo(HaveOccurred())

		expectClose(left, right)
		Expect(left.Seeds).To(Equal(right.Seeds))
	})

	It("is commutative up to seed order", func() {
		ab, err := aggregate.Merge(a, b)
		Expect(err).NotTo(HaveOccurred())
		ba, err := aggregate.Merge(b, a)
		Expect(err).NotTo(HaveOccurred())
		expectClose(ab, ba)
		Expect(ba.Seeds).To(Equal([]int64{2, 3, 4, 0, 1}))
	})

	It("reproduces an accumulator merged with its halves", func() {
		half := a.Clone()
		half.NormFactor /= 2
		m, err := aggregate.Merge(half, half.Clone())
		Expect(err).NotTo(HaveOccurred())
		expectClose(m, a)
	})

	It("leaves its inputs untouched", func() {
		before := a.Clone()
		_, err := aggregate.Merge(a, b)
		Expect(err).NotTo(HaveOccurred())
		expectClose(a, before)
		Expect(a.Seeds).To(Equal(before.Seeds))

		m, _ := aggregate.Merge(a, b)
		z, _ := m.Tensor("z")
		z.Set(100, 0)
		az, _ := a.Tensor("z")
		Expect(az.At(0)).NotTo(Equal(complex(100, 0)))
	})

	It("copies keys present on one side only", func() {
		Expect(c.Record(map[string]*dynamo.Tensor{"extra": column(4)}, 1)).To(Succeed())
		m, err := aggregate.Merge(a, c)
		Expect(err).NotTo(HaveOccurred())
		extra, ok := m.Tensor("extra")
		Expect(ok).To(BeTrue())
		Expect(real(extra.At())).To(Equal(4.0))
	})

	It("merges nested groups recursively", func() {
		a.Values["group"] = map[string]any{"v": 1.0, "t": column(2)}
		b.Values["group"] = map[string]any{"v": 6.0, "t": column(7)}
		m, err := aggregate.Merge(a, b)
		Expect(err).NotTo(HaveOccurred())
		g := m.Values["group"].(map[string]any)
		Expect(g["v"]).To(BeNumerically("~", 4.0, 1e-12))
		Expect(real(g["t"].(*dynamo.Tensor).At(0))).To(BeNumerically("~", 5.0, 1e-12))
	})

	It("fails on a zero combined norm factor", func() {
		_, err := aggregate.Merge(aggregate.New(), aggregate.New())
		Expect(errors.Is(err, dynamo.ErrZeroNormalization)).To(BeTrue())
	})

	It("fails on values that cannot be averaged", func() {
		a.Values["label"] = "left"
		b.Values["label"] = "right"
		_, err := aggregate.Merge(a, b)
		Expect(errors.Is(err, dynamo.ErrUnsupportedValueType)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("label"))
	})

	It("fails on mismatched shapes", func() {
		b.Values["energy"] = column(1, 2)
		_, err := aggregate.Merge(a, b)
		Expect(errors.Is(err, dynamo.ErrDimensionMismatch)).To(BeTrue())
	})
})

var _ = Describe("Tree", func() {
	It("round-trips through the nested mapping", func() {
		a := recorded([]int64{3, 4}, []float64{1, 2}, []float64{1, 2, 3, 4})
		a.Values["meta"] = map[string]any{"note": "x"}
		tree := a.Tree()
		Expect(tree).To(HaveKey(aggregate.SeedKey))
		Expect(tree[aggregate.NormFactorKey]).To(Equal(2.0))

		back, err := aggregate.FromTree(tree)
		Expect(err).NotTo(HaveOccurred())
		Expect(back.Seeds).To(Equal([]int64{3, 4}))
		e, _ := back.Tensor("energy")
		Expect(real(e.At())).To(BeNumerically("~", 1.5, 1e-15))
		Expect(back.Values["meta"]).To(Equal(map[string]any{"note": "x"}))
	})

	It("rejects a malformed norm factor", func() {
		_, err := aggregate.FromTree(map[string]any{aggregate.NormFactorKey: "two"})
		Expect(errors.Is(err, dynamo.ErrUnsupportedValueType)).To(BeTrue())
	})
})

var _ = Describe("SharedSeeds", func() {
	It("finds trajectories recorded by more than one part", func() {
		a := aggregate.New(0, 1, 2)
		b := aggregate.New(2, 3)
		c := aggregate.New(0, 5)
		Expect(aggregate.SharedSeeds(a, b, c)).To(Equal([]int64{0, 2}))
	})

	It("is empty for disjoint parts", func() {
		a := aggregate.New(0, 1)
		b := aggregate.New(2, 3)
		Expect(aggregate.SharedSeeds(a, b)).To(BeEmpty())
	})

	It("ignores repeats inside a single part", func() {
		Expect(aggregate.SharedSeeds(aggregate.New(4, 4))).To(BeEmpty())
	})
})
