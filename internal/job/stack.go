package job

// Stack is a cursor over the full cross-product of the index space. It emits
// cells in row-major order with the last index varying fastest; enumeration
// order is a public contract that callers and tests depend on.
type Stack struct {
	top Job
}

// NewStack positions a cursor at the origin of the given span vector.
func NewStack(spans []int) (*Stack, error) {
	if len(spans) == 0 {
		return nil, ErrDimensionMismatch
	}
	top, err := New(make([]int, len(spans)), spans)
	if err != nil {
		return nil, err
	}
	return &Stack{top: top}, nil
}

// Order returns the dimensionality of the stack.
func (s *Stack) Order() int {
	return s.top.Order()
}

// Spans returns the span vector shared by every job the stack emits.
func (s *Stack) Spans() []int {
	return s.top.Spans()
}

// IsEmpty reports whether the cursor has run off the end of the space.
// Exhaustion is observable on the first dimension alone.
func (s *Stack) IsEmpty() bool {
	if len(s.top.dims) == 0 {
		panic("job stack has no dimensions")
	}
	return s.top.dims[0].IsFinished()
}

// Next emits the cell under the cursor and advances. After the final cell the
// second return value is false on every subsequent call.
//
// Advancing increments the last dimension; whenever a dimension reaches its
// span it is reset to zero and the preceding dimension is incremented. There
// is no wrap-around: once dimension zero is exhausted the stack stays empty.
func (s *Stack) Next() (Job, bool) {
	if s.top.dims[0].IsFinished() {
		return Job{}, false
	}
	if !s.top.dims[len(s.top.dims)-1].HasJob() {
		panic("job stack cursor in an inconsistent position")
	}
	result := s.top.clone()
	s.top.dims[len(s.top.dims)-1].Next()
	for {
		repeat := false
		for i := 1; i < len(s.top.dims); i++ {
			if s.top.dims[i].IsFinished() {
				s.top.dims[i-1].Next()
				s.top.dims[i].Reset()
				repeat = true
				break
			}
		}
		if !repeat {
			break
		}
	}
	return result, true
}
