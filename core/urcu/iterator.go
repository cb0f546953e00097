package urcu

// Iterator is a forward position in a List.
// The zero Iterator is the past-the-end sentinel.
type Iterator[T any] struct {
	node *Node[T]
}

// Valid reports whether the iterator refers to an element.
func (it Iterator[T]) Valid() bool {
	return it.node != nil
}

// Next returns the following position.
func (it Iterator[T]) Next() Iterator[T] {
	return Iterator[T]{it.node.next.Load()}
}

// Value returns a copy of the element.
func (it Iterator[T]) Value() T {
	return it.node.value
}

// Ptr returns a pointer to the element.
// Mutation through this pointer is only safe if T synchronizes internally.
func (it Iterator[T]) Ptr() *T {
	return &it.node.value
}

// Equal determines whether two iterators refer to the same position.
func (it Iterator[T]) Equal(other Iterator[T]) bool {
	return it.node == other.node
}

// Const converts to a read-only iterator.
func (it Iterator[T]) Const() ConstIterator[T] {
	return ConstIterator[T]{it.node}
}

// ConstIterator is a read-only forward position in a List.
type ConstIterator[T any] struct {
	node *Node[T]
}

// Valid reports whether the iterator refers to an element.
func (it ConstIterator[T]) Valid() bool {
	return it.node != nil
}

// Next returns the following position.
func (it ConstIterator[T]) Next() ConstIterator[T] {
	return ConstIterator[T]{it.node.next.Load()}
}

// Value returns a copy of the element.
func (it ConstIterator[T]) Value() T {
	return it.node.value
}

// Equal determines whether two iterators refer to the same position.
func (it ConstIterator[T]) Equal(other ConstIterator[T]) bool {
	return it.node == other.node
}
