package engine

import "fmt"

// TaskKind selects what a Task does when executed.
type TaskKind int

const (
	// TaskAddFile adds a file named on the command line.
	TaskAddFile TaskKind = iota
	// TaskAddLibrary adds a library by name.
	TaskAddLibrary
	// TaskPromote loads an archive member.
	TaskPromote
	// TaskInclude requires a definition for a symbol.
	TaskInclude
)

var taskKindNames = [...]string{"add-file", "add-library", "promote", "include"}

func (k TaskKind) String() string {
	if int(k) < len(taskKindNames) {
		return taskKindNames[k]
	}
	return fmt.Sprintf("task(%d)", int(k))
}

// MarshalText lets tasks be dumped as YAML or JSON.
func (k TaskKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the String form.
func (k *TaskKind) UnmarshalText(b []byte) error {
	for i, n := range taskKindNames {
		if n == string(b) {
			*k = TaskKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown task kind %q", b)
}

// Task is one pending resolution action. It carries plain data only.
type Task struct {
	Kind TaskKind `yaml:"kind"`
	// Name is a path or file name, a library name, or a symbol.
	Name string `yaml:"name,omitempty"`
	// Archive and Offset identify the member of a TaskPromote.
	Archive int   `yaml:"archive,omitempty"`
	Offset  int64 `yaml:"offset,omitempty"`
	// Origin is the label of the input that asked for the task; empty for
	// the command line.
	Origin string `yaml:"origin,omitempty"`
	// Default marks default libraries, which /nodefaultlib can suppress.
	Default      bool `yaml:"default,omitempty"`
	WholeArchive bool `yaml:"whole_archive,omitempty"`
	// Seed is the 1-based position of a command-line input, for
	// matching prefetched results.
	Seed int `yaml:"seed,omitempty"`
}

func (t Task) String() string {
	if t.Kind == TaskPromote {
		return fmt.Sprintf("%s archive#%d@%d", t.Kind, t.Archive, t.Offset)
	}
	return fmt.Sprintf("%s %s", t.Kind, t.Name)
}

// Queue is a FIFO of tasks. An empty queue means resolution reached its
// fixed point.
type Queue struct {
	items []Task
	head  int
}

// Push appends t at the tail.
func (q *Queue) Push(t Task) {
	q.items = append(q.items, t)
}

// Pop removes and returns the head task. It panics on an empty queue.
func (q *Queue) Pop() Task {
	if q.head == len(q.items) {
		panic("engine: pop from empty task queue")
	}
	t := q.items[q.head]
	q.items[q.head] = Task{}
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return t
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int { return len(q.items) - q.head }

// Pending returns a copy of the pending tasks in execution order.
func (q *Queue) Pending() []Task {
	return append([]Task(nil), q.items[q.head:]...)
}
