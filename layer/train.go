package layer

import (
	"fmt"

	"github.com/m-marini/wheellyj-sub014/errs"
	"github.com/m-marini/wheellyj-sub014/state"
	"github.com/m-marini/wheellyj-sub014/tensor"
)

// Train reads <name>.grads, updates this layer's parameters and
// eligibility traces (Dense only), and accumulates a gradient into each
// input's .grads entry. A missing .grads entry for this layer is treated
// as zero: the layer contributes nothing and is left untouched, which is
// how a sink with no supplied gradient is excluded from training for this
// step.
func (l *Layer) Train(st *state.State, delta *tensor.Tensor, lambda float32, kpi KPI) error {
	g, ok := st.GetGrads(l.name)
	if !ok {
		return nil
	}

	switch l.kind {
	case Dense:
		return l.trainDense(st, g, delta, lambda, kpi)
	case Linear:
		return l.trainLinear(st, g)
	case Tanh:
		return l.trainTanh(st, g)
	case ReLU:
		return l.trainReLU(st, g)
	case Softmax:
		return l.trainSoftmax(st, g)
	case Sum:
		return l.trainSum(st, g)
	case Concat:
		return l.trainConcat(st, g)
	case Dropout:
		return l.trainDropout(st, g)
	default:
		return fmt.Errorf("layer: %s: %w: unknown kind %v", l.name, errs.ErrSpecInvalid, l.kind)
	}
}

// trainDense implements the row-sequential eligibility-trace update: the
// trace and parameter update at row i must observe row i-1's update, so
// this loop must never be parallelized or vectorized across rows, since
// doing so would change which gradient each row's trace update observes.
func (l *Layer) trainDense(st *state.State, g *tensor.Tensor, delta *tensor.Tensor, lambda float32, kpi KPI) error {
	input := l.inputs[0]

	x, err := l.input(st, input)
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
	ew, ok := st.GetWeightsTrace(l.name)
	if !ok {
		return fmt.Errorf("layer: %s: %w: missing weights trace", l.name, errs.ErrSpecInvalid)
	}
	eb, ok := st.GetBiasTrace(l.name)
	if !ok {
		return fmt.Errorf("layer: %s: %w: missing bias trace", l.name, errs.ErrSpecInvalid)
	}

	wT, err := l.engine.Transpose(w)
	if err != nil {
		return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
	}
	gradIn, err := l.engine.MatMul(g, wT)
	if err != nil {
		return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
	}
	dropoutApplied := l.dense.DropOut < 1
	if dropoutApplied {
		gradIn = tensor.UnaryScalar(gradIn, l.dense.DropOut, l.engine.Ops().Div)
	}
	if err := st.Add(state.Key{Layer: input, Slot: state.Grads}, gradIn); err != nil {
		return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
	}

	var mask *tensor.Tensor
	if dropoutApplied {
		mask, ok = st.GetMask(l.name)
		if !ok {
			return fmt.Errorf("layer: %s: %w: missing dropout mask at train time", l.name, errs.ErrSpecInvalid)
		}
	}

	batch := g.Dim(0)
	for i := 0; i < batch; i++ {
		gRow, err := g.Row(i)
		if err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}
		xRow, err := x.Row(i)
		if err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}

		xEffRow := xRow
		gEffRow := gRow
		if dropoutApplied {
			maskRow, err := mask.Row(i)
			if err != nil {
				return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
			}
			maskedRow, err := l.engine.Mul(xRow, maskRow)
			if err != nil {
				return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
			}
			xEffRow = tensor.UnaryScalar(maskedRow, l.dense.DropOut, l.engine.Ops().Div)
			gEffRow = tensor.UnaryScalar(gRow, l.dense.DropOut, l.engine.Ops().Div)
		}

		if err := l.engine.ScaleInPlace(eb, lambda); err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}
		if err := l.engine.AddInPlace(eb, gEffRow); err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}

		xEffRowT, err := l.engine.Transpose(xEffRow)
		if err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}
		outer, err := l.engine.MatMul(xEffRowT, gRow)
		if err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}
		if err := l.engine.ScaleInPlace(ew, lambda); err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}
		if err := l.engine.AddInPlace(ew, outer); err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}

		deltaI, err := delta.At(i, 0)
		if err != nil {
			return fmt.Errorf("layer: %s: %w: delta row %d: %v", l.name, errs.ErrShapeMismatch, i, err)
		}

		db := tensor.UnaryScalar(eb, deltaI, l.engine.Ops().Mul)
		dw := tensor.UnaryScalar(ew, deltaI, l.engine.Ops().Mul)

		if err := l.engine.AddInPlace(b, db); err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}
		if err := l.engine.AddInPlace(w, dw); err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}

		clipped, err := l.engine.Clip(w, -l.dense.MaxAbsWeights, l.dense.MaxAbsWeights)
		if err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}
		st.PutWeights(l.name, clipped)
		w = clipped

		if kpi != nil {
			kpi(l.name+"_db", db)
			kpi(l.name+"_dw", dw)
		}
	}

	return nil
}

func (l *Layer) trainLinear(st *state.State, g *tensor.Tensor) error {
	gradIn := tensor.UnaryScalar(g, l.linear.W, l.engine.Ops().Mul)

	return l.accumulateInput(st, l.inputs[0], gradIn)
}

func (l *Layer) trainTanh(st *state.State, g *tensor.Tensor) error {
	y, ok := st.GetValues(l.name)
	if !ok {
		return fmt.Errorf("layer: %s: %w: missing values", l.name, errs.ErrSpecInvalid)
	}

	dtanh := tensor.Unary(y, l.engine.Ops().TanhGrad)
	gradIn, err := l.engine.Mul(g, dtanh)
	if err != nil {
		return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
	}

	return l.accumulateInput(st, l.inputs[0], gradIn)
}

func (l *Layer) trainReLU(st *state.State, g *tensor.Tensor) error {
	x, err := l.input(st, l.inputs[0])
	if err != nil {
		return err
	}

	mask, err := l.engine.GreaterThanScalar(x, 0)
	if err != nil {
		return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
	}
	gradIn, err := l.engine.Mul(g, mask)
	if err != nil {
		return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
	}

	return l.accumulateInput(st, l.inputs[0], gradIn)
}

// trainSoftmax applies the row-wise softmax Jacobian: for row i,
// grad_in_i = (g_i ⊙ y_i) · (I - 1·y_i^T) / T.
func (l *Layer) trainSoftmax(st *state.State, g *tensor.Tensor) error {
	y, ok := st.GetValues(l.name)
	if !ok {
		return fmt.Errorf("layer: %s: %w: missing values", l.name, errs.ErrSpecInvalid)
	}

	n := y.Dim(1)
	identity := tensor.Identity(n)
	onesCol := tensor.Zeros([]int{n, 1})
	for i := range onesCol.Data() {
		onesCol.Data()[i] = 1
	}

	batch := y.Dim(0)
	gradIn := tensor.Zeros([]int{batch, n})
	for i := 0; i < batch; i++ {
		yRow, err := y.Row(i)
		if err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}
		gRow, err := g.Row(i)
		if err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}

		outerY, err := l.engine.MatMul(onesCol, yRow)
		if err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}
		jac, err := l.engine.Sub(identity, outerY)
		if err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}
		gy, err := l.engine.Mul(gRow, yRow)
		if err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}
		prod, err := l.engine.MatMul(gy, jac)
		if err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}
		rowGrad := tensor.UnaryScalar(prod, l.softmax.Temperature, l.engine.Ops().Div)
		if err := gradIn.SetRow(i, rowGrad); err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}
	}

	return l.accumulateInput(st, l.inputs[0], gradIn)
}

func (l *Layer) trainSum(st *state.State, g *tensor.Tensor) error {
	for _, input := range l.inputs {
		if err := l.accumulateInput(st, input, g); err != nil {
			return err
		}
	}

	return nil
}

func (l *Layer) trainConcat(st *state.State, g *tensor.Tensor) error {
	offset := 0
	for _, input := range l.inputs {
		width, ok := st.Size(input)
		if !ok {
			return fmt.Errorf("layer: %s: %w: unknown size for input %q", l.name, errs.ErrSpecInvalid, input)
		}

		slice, err := g.Slice(1, offset, offset+width)
		if err != nil {
			return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
		}
		if err := l.accumulateInput(st, input, slice); err != nil {
			return err
		}
		offset += width
	}

	return nil
}

func (l *Layer) trainDropout(st *state.State, g *tensor.Tensor) error {
	return l.accumulateInput(st, l.inputs[0], g)
}

func (l *Layer) accumulateInput(st *state.State, input string, gradIn *tensor.Tensor) error {
	if err := st.Add(state.Key{Layer: input, Slot: state.Grads}, gradIn); err != nil {
		return fmt.Errorf("layer: %s: %w: %v", l.name, errs.ErrShapeMismatch, err)
	}

	return nil
}
