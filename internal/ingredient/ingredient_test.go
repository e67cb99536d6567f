package ingredient

import (
	"errors"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/qclab/internal/constants"
	"github.com/san-kum/qclab/internal/dynamo"
)

type testOwner struct {
	c *constants.Constants
}

func (o *testOwner) Constants() *constants.Constants { return o.c }

// scaledSquare returns scale * z^2 elementwise for one trajectory.
func scaledSquare(owner Owner, params Parameters, kw Kwargs) (*dynamo.Tensor, error) {
	z, err := kw.Tensor("z")
	if err != nil {
		return nil, err
	}
	scale, err := kw.Float("scale")
	if err != nil {
		return nil, err
	}
	out := z.Clone()
	for i, v := range out.Data() {
		out.Data()[i] = complex(scale, 0) * v * v
	}
	return out, nil
}

func batchZ(rows, cols int) *dynamo.Tensor {
	z := dynamo.NewTensor(rows, cols)
	for i := range z.Data() {
		z.Data()[i] = complex(float64(i), float64(-i)/2)
	}
	return z
}

func TestVectorizeMatchesPerTrajectory(t *testing.T) {
	g := NewWithT(t)
	owner := &testOwner{c: constants.New(nil)}
	params := SeedList{10, 11, 12, 13}

	z := batchZ(4, 3)
	scales := []float64{1, 2, 3, 4}
	batched := Vectorize(scaledSquare)

	out, err := batched(owner, params, Kwargs{"z": z, "scale": scales})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(out.Shape()).To(Equal([]int{4, 3}))

	for n := 0; n < 4; n++ {
		single, err := scaledSquare(owner, params, Kwargs{"z": z.Row(n), "scale": scales[n]})
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(out.Row(n).Equal(single)).To(BeTrue(), "trajectory %d", n)
	}
}

func TestVectorizePassesScalarsThrough(t *testing.T) {
	owner := &testOwner{c: constants.New(nil)}
	var seen []float64
	f := func(_ Owner, _ Parameters, kw Kwargs) (*dynamo.Tensor, error) {
		s, _ := kw.Float("scale")
		seen = append(seen, s)
		return dynamo.Scalar(complex(s, 0)), nil
	}

	out, err := Vectorize(f)(owner, SeedList{1, 2, 3}, Kwargs{"scale": 0.5})
	if err != nil {
		t.Fatalf("vectorize: %v", err)
	}
	if len(seen) != 3 || seen[0] != 0.5 || seen[2] != 0.5 {
		t.Errorf("scalar kwarg not passed through: %v", seen)
	}
	if got := out.Shape(); len(got) != 1 || got[0] != 3 {
		t.Errorf("expected shape [3], got %v", got)
	}
}

func TestVectorizeBatchSizeOverride(t *testing.T) {
	owner := &testOwner{c: constants.New(nil)}
	out, err := Vectorize(scaledSquare)(owner, SeedList{1}, Kwargs{
		"z":          batchZ(2, 1),
		"scale":      1.0,
		BatchSizeKey: 2,
	})
	if err != nil {
		t.Fatalf("vectorize: %v", err)
	}
	if out.Len() != 2 {
		t.Errorf("expected batch of 2, got %d", out.Len())
	}
}

func TestVectorizeRejectsMismatchedBatch(t *testing.T) {
	tests := []struct {
		name string
		kw   Kwargs
		key  string
	}{
		{"short tensor", Kwargs{"z": batchZ(2, 3), "scale": 1.0}, "z"},
		{"long slice", Kwargs{"z": batchZ(3, 3), "scale": []float64{1, 2, 3, 4}}, "scale"},
		{"scalar tensor", Kwargs{"z": dynamo.Scalar(1), "scale": 1.0}, "z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			f := func(o Owner, p Parameters, kw Kwargs) (*dynamo.Tensor, error) {
				calls++
				return scaledSquare(o, p, kw)
			}
			_, err := Vectorize(f)(&testOwner{}, SeedList{1, 2, 3}, tt.kw)
			if !errors.Is(err, dynamo.ErrInvalidBatchShape) {
				t.Fatalf("expected ErrInvalidBatchShape, got %v", err)
			}
			var be *dynamo.BatchError
			if !errors.As(err, &be) || be.Key != tt.key {
				t.Errorf("expected BatchError for %q, got %v", tt.key, err)
			}
			if calls != 0 {
				t.Errorf("ingredient must not run on invalid input, ran %d times", calls)
			}
		})
	}
}

func TestVectorizeRejectsNilResult(t *testing.T) {
	f := func(o Owner, p Parameters, kw Kwargs) (*dynamo.Tensor, error) {
		z, err := kw.Tensor("z")
		if err != nil {
			return nil, err
		}
		if real(z.At()) == 1 {
			return nil, nil
		}
		return z.Clone(), nil
	}

	z, _ := dynamo.FromReal([]float64{0, 1, 2}, 3)
	_, err := Vectorize(f)(&testOwner{}, SeedList{0, 1, 2}, Kwargs{"z": z})
	if !errors.Is(err, dynamo.ErrInvalidBatchShape) {
		t.Fatalf("expected ErrInvalidBatchShape, got %v", err)
	}
}

func TestSparsifyAdapterRoundTrip(t *testing.T) {
	g := NewWithT(t)
	owner := &testOwner{c: constants.New(nil)}
	owner.c.Set("diag", 2.5)

	dense := func(_ Owner, c *constants.Constants, params Parameters, kw Kwargs) (*dynamo.Tensor, error) {
		d, err := c.Float("diag")
		if err != nil {
			return nil, err
		}
		n := len(params.Seeds())
		out := dynamo.NewTensor(n, 3, 3)
		for b := 0; b < n; b++ {
			for i := 0; i < 3; i++ {
				out.Set(complex(d*float64(i), 0), b, i, i)
			}
		}
		return out, nil
	}

	params := SeedList{0, 1}
	want, err := dense(owner, owner.c, params, nil)
	g.Expect(err).NotTo(HaveOccurred())

	sp, err := Sparsify(dense)(owner, owner.c, params, nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(sp.NNZ()).To(Equal(4), "the (0,0) diagonal entry is exactly zero")
	g.Expect(sp.Dense().Equal(want)).To(BeTrue())

	back, err := Densify(Sparsify(dense))(owner, owner.c, params, nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(back.Equal(want)).To(BeTrue())
}

func TestWithOwnerConstants(t *testing.T) {
	owner := &testOwner{c: constants.New(nil)}
	owner.c.Set("x", 3.0)
	f := WithOwnerConstants(func(_ Owner, c *constants.Constants, _ Parameters, _ Kwargs) (*dynamo.Tensor, error) {
		x, err := c.Float("x")
		return dynamo.Scalar(complex(x, 0)), err
	})
	out, err := f(owner, SeedList{}, nil)
	if err != nil || out.Data()[0] != 3 {
		t.Errorf("got %v, %v", out, err)
	}
}
