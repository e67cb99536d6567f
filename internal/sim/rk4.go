package sim

import "github.com/san-kum/qclab/internal/dynamo"

// Derivative returns dz/dt for a (batch, modes) coordinate tensor.
type Derivative func(z *dynamo.Tensor) (*dynamo.Tensor, error)

// RK4 is the classical fourth-order step on complex coordinates. Scratch
// tensors are reused between steps of equal shape.
type RK4 struct {
	k1, k2, k3, k4 []complex128
	scratch        *dynamo.Tensor
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(z *dynamo.Tensor) {
	if r.scratch == nil || !r.scratch.SameShape(z) {
		n := z.Size()
		r.k1 = make([]complex128, n)
		r.k2 = make([]complex128, n)
		r.k3 = make([]complex128, n)
		r.k4 = make([]complex128, n)
		r.scratch = dynamo.NewTensor(z.Shape()...)
	}
}

func (r *RK4) Step(f Derivative, z *dynamo.Tensor, dt float64) (*dynamo.Tensor, error) {
	r.ensureScratch(z)
	x := z.Data()
	s := r.scratch.Data()
	h := complex(dt, 0)

	stage := func(k []complex128, in *dynamo.Tensor) error {
		d, err := f(in)
		if err != nil {
			return err
		}
		copy(k, d.Data())
		return nil
	}

	if err := stage(r.k1, z); err != nil {
		return nil, err
	}
	for i := range x {
		s[i] = x[i] + h*0.5*r.k1[i]
	}
	if err := stage(r.k2, r.scratch); err != nil {
		return nil, err
	}
	for i := range x {
		s[i] = x[i] + h*0.5*r.k2[i]
	}
	if err := stage(r.k3, r.scratch); err != nil {
		return nil, err
	}
	for i := range x {
		s[i] = x[i] + h*r.k3[i]
	}
	if err := stage(r.k4, r.scratch); err != nil {
		return nil, err
	}

	result := dynamo.NewTensor(z.Shape()...)
	out := result.Data()
	h6 := h / 6
	for i := range x {
		out[i] = x[i] + h6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	return result, nil
}
