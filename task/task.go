// Package task enumerates the search tasks handed out to workers. A task is
// a fixed-length continuation from the current position, CPU first, given
// as 1-based columns.
package task

import (
	"errors"
	"fmt"
	"math"

	"lukechampine.com/frand"
)

var ErrInvalidTaskSpace = errors.New("invalid task space")

// maxTasks bounds columns^depth so a typo in the config cannot exhaust memory.
const maxTasks = 1 << 24

// Task is a sequence of columns to replay, alternating CPU and player.
type Task []int

// Root is the column the CPU would play now.
func (t Task) Root() int {
	if len(t) == 0 {
		return 0
	}
	return t[0]
}

// Size returns columns^depth.
func Size(columns, depth int) (int, error) {
	if columns < 1 || depth < 1 {
		return 0, fmt.Errorf("%w: %d columns, depth %d", ErrInvalidTaskSpace, columns, depth)
	}
	n := math.Pow(float64(columns), float64(depth))
	if n > maxTasks {
		return 0, fmt.Errorf("%w: %d columns at depth %d is %.0f tasks", ErrInvalidTaskSpace, columns, depth, n)
	}
	return int(n), nil
}

// Generate returns the full cartesian product {1..columns}^depth in
// lexicographic order.
func Generate(columns, depth int) ([]Task, error) {
	n, err := Size(columns, depth)
	if err != nil {
		return nil, err
	}
	tasks := make([]Task, n)
	for i := range tasks {
		t := make(Task, depth)
		rem := i
		for d := depth - 1; d >= 0; d-- {
			t[d] = rem%columns + 1
			rem /= columns
		}
		tasks[i] = t
	}
	return tasks, nil
}

// Bag is the pool of tasks for one CPU move. Each task comes out once.
// A Bag belongs to the coordinator loop and is not safe for concurrent use.
type Bag struct {
	tasks []Task
	total int
}

// NewBag takes ownership of tasks. With shuffle set the pop order is random.
func NewBag(tasks []Task, shuffle bool) *Bag {
	if shuffle {
		frand.Shuffle(len(tasks), func(i, j int) {
			tasks[i], tasks[j] = tasks[j], tasks[i]
		})
	}
	return &Bag{tasks: tasks, total: len(tasks)}
}

// Pop removes a task. It reports false once the bag is empty.
func (b *Bag) Pop() (Task, bool) {
	if len(b.tasks) == 0 {
		return nil, false
	}
	t := b.tasks[len(b.tasks)-1]
	b.tasks = b.tasks[:len(b.tasks)-1]
	return t, true
}

// Len is the number of tasks left.
func (b *Bag) Len() int { return len(b.tasks) }

// Total is the number of tasks the bag started with.
func (b *Bag) Total() int { return b.total }
