package link

// Result carries the outcome of an operation that can fail in normal
// operation, such as an ACK timeout or an empty FIFO. Success false with a
// nil error is not exceptional.
type Result[T any] struct {
	Success bool
	Value   T
}

func succeed[T any](v T) Result[T] {
	return Result[T]{Success: true, Value: v}
}

func failed[T any]() Result[T] {
	return Result[T]{}
}
