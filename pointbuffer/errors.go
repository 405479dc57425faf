package pointbuffer

import "fmt"

// StrideMismatchError is returned by Append when the same attribute kind is
// present in both sources with a different elements-per-point stride.
type StrideMismatchError struct {
	Kind    Kind
	Stride1 int
	Stride2 int
}

func (e *StrideMismatchError) Error() string {
	return fmt.Sprintf("pointbuffer: stride mismatch for %s: %d != %d", e.Kind, e.Stride1, e.Stride2)
}
