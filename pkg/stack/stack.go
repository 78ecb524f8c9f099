package stack

// Stack is a LIFO of values of type T
type Stack[T any] struct {
	a []T
}

// New creates a new stack holding the given elements, last one on top
func New[T any](elm ...T) *Stack[T] {
	s := Stack[T]{a: make([]T, 0, len(elm))}
	s.a = append(s.a, elm...)

	return &s
}

// Push adds an element to the top of the stack
func (s *Stack[T]) Push(elm T) {
	s.a = append(s.a, elm)
}

// Pop removes and returns the top element of the stack.
// The second result is false if the stack is empty.
func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	if len(s.a) == 0 {
		return zero, false
	}

	elm := s.a[len(s.a)-1]
	s.a[len(s.a)-1] = zero
	s.a = s.a[:len(s.a)-1]

	return elm, true
}

// Peek returns the top element of the stack without removing it
func (s *Stack[T]) Peek() (T, bool) {
	if len(s.a) == 0 {
		var zero T
		return zero, false
	}

	return s.a[len(s.a)-1], true
}

// Get the size of the stack
func (s *Stack[T]) Size() int {
	return len(s.a)
}

// Clear drops every element
func (s *Stack[T]) Clear() {
	clear(s.a)
	s.a = s.a[:0]
}

