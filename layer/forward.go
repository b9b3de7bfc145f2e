package layer

import (
	"fmt"

	"github.com/m-marini/wheellyj-sub014/errs"
	"github.com/m-marini/wheellyj-sub014/state"
	"github.com/m-marini/wheellyj-sub014/tensor"
)

func (l *Layer) input(st *state.State, name string) (*tensor.Tensor, error) {
	t, ok := st.GetValues(name)
	if !ok {
		return nil, fmt.Errorf("layer: %s: %w: input %q has no values", l.name, errs.ErrSpecInvalid, name)
	}

	return t, nil
}

func (l *Layer) inputTensors(st *state.State) ([]*tensor.Tensor, error) {
	out := make([]*tensor.Tensor, len(l.inputs))
	for i, name := range l.inputs {
		t, err := l.input(st, name)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}

	return out, nil
}

// Forward computes <name>.values (and <name>.mask, for Dense with
// training dropout) from the layer's declared inputs. training selects
// whether Dense samples and applies a dropout mask.
func (l *Layer) Forward(st *state.State, training bool) error {
	switch l.kind {
	case Dense:
		return l.forwardDense(st, training)
	case Linear:
		return l.forwardLinear(st)
	case Tanh:
		return l.forwardTanh(st)
	case ReLU:
		return l.forwardReLU(st)
	case Softmax:
		return l.forwardSoftmax(st)
	case Sum:
		return l.forwardSum(st)
	case Concat:
		return l.forwardConcat(st)
	case Dropout:
		return l.forwardDropout(st)
	default:
		return fmt.Errorf("layer: %s: %w: unknown kind %v", l.name, errs.ErrSpecInvalid, l.kind)
	}
}

func (l *Layer) forwardDense(st *state.State, training bool) error {
	x, err := l.input(st, l.inputs[0])
	if err != nil {
		return err
	}

	w, ok := st.GetWeights(l.name)
	if !ok {
		return fmt.Errorf("layer: %s: %w: missing weights", l.name, errs.ErrSpecInvalid)
	}
	b, ok := st.GetBias(l.name)
	if !ok {
		return fmt.Errorf("layer: %s: %w: missing bias", l.name, errs.ErrSpecInvalid)
	}

	xEff := x
	if training && l.dense.DropOut < 1 {
		mask := tensor.Bernoulli(x.Shape(), l.dense.DropOut, st.RNG())
		st.PutMask(l.name, mask)

		masked, err := l.engine.Mul(x, mask)
		if err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}
		xEff = tensor.UnaryScalar(masked, l.dense.DropOut, l.engine.Ops().Div)
	}

	y, err := l.engine.MatMul(xEff, w)
	if err != nil {
		return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
	}
	y, err = l.engine.Add(y, b)
	if err != nil {
		return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
	}
	st.PutValues(l.name, y)

	return nil
}

func (l *Layer) forwardLinear(st *state.State) error {
	x, err := l.input(st, l.inputs[0])
	if err != nil {
		return err
	}

	scaled := tensor.UnaryScalar(x, l.linear.W, l.engine.Ops().Mul)
	y := tensor.UnaryScalar(scaled, l.linear.B, l.engine.Ops().Add)
	st.PutValues(l.name, y)

	return nil
}

func (l *Layer) forwardTanh(st *state.State) error {
	x, err := l.input(st, l.inputs[0])
	if err != nil {
		return err
	}

	y, err := l.engine.Tanh(x)
	if err != nil {
		return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
	}
	st.PutValues(l.name, y)

	return nil
}

func (l *Layer) forwardReLU(st *state.State) error {
	x, err := l.input(st, l.inputs[0])
	if err != nil {
		return err
	}

	y, err := l.engine.Max(x, 0)
	if err != nil {
		return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
	}
	st.PutValues(l.name, y)

	return nil
}

func (l *Layer) forwardSoftmax(st *state.State) error {
	x, err := l.input(st, l.inputs[0])
	if err != nil {
		return err
	}

	scaled := tensor.UnaryScalar(x, l.softmax.Temperature, l.engine.Ops().Div)
	y, err := l.engine.Softmax(scaled, 1)
	if err != nil {
		return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
	}
	st.PutValues(l.name, y)

	return nil
}

func (l *Layer) forwardSum(st *state.State) error {
	inputs, err := l.inputTensors(st)
	if err != nil {
		return err
	}

	y, err := tensor.Stack(inputs)
	if err != nil {
		return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
	}
	st.PutValues(l.name, y)

	return nil
}

func (l *Layer) forwardConcat(st *state.State) error {
	inputs, err := l.inputTensors(st)
	if err != nil {
		return err
	}

	y, err := tensor.HStack(inputs)
	if err != nil {
		return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
	}
	st.PutValues(l.name, y)

	return nil
}

func (l *Layer) forwardDropout(st *state.State) error {
	x, err := l.input(st, l.inputs[0])
	if err != nil {
		return err
	}
	st.PutValues(l.name, x)

	return nil
}
