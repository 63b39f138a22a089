// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package queue

// Queue represents an unbounded FIFO queue which is implemented using an
// array.  Items are dequeued by advancing a head index, and the array is
// compacted once the dead prefix dominates.
type Queue[T any] struct {
	items []T
	head  int
}

// NewQueue returns an empty queue
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

// IsEmpty checks whether or not there are still items in the queue
func (p *Queue[T]) IsEmpty() bool {
	return p.Len() == 0
}

// Len returns the number of items in the queue.
func (p *Queue[T]) Len() uint {
	return uint(len(p.items) - p.head)
}

// Push a new item onto the back of the queue
func (p *Queue[T]) Push(item T) {
	p.items = append(p.items, item)
}

// PushAll pushes zero or more items onto the back of the queue, in order.
func (p *Queue[T]) PushAll(items []T) {
	p.items = append(p.items, items...)
}

// Peek at the item at the front of the queue.
func (p *Queue[T]) Peek() T {
	if p.IsEmpty() {
		panic("cannot peek into empty queue")
	}
	//
	return p.items[p.head]
}

// Pop the item at the front of the queue
func (p *Queue[T]) Pop() T {
	var empty T
	//
	if p.IsEmpty() {
		panic("cannot pop from empty queue")
	}
	//
	item := p.items[p.head]
	// Allow item to be collected
	p.items[p.head] = empty
	p.head++
	// Compact when the dead prefix dominates
	if p.head == len(p.items) {
		p.items, p.head = p.items[:0], 0
	} else if p.head > 32 && p.head*2 > len(p.items) {
		n := copy(p.items, p.items[p.head:])
		p.items, p.head = p.items[:n], 0
	}
	//
	return item
}

// Items returns a copy of the queue contents, ordered from front to back.
func (p *Queue[T]) Items() []T {
	items := make([]T, p.Len())
	copy(items, p.items[p.head:])
	//
	return items
}
