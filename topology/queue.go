package topology

// Queue identifies a named destination (queue, subject, channel or topic).
// Queue is a comparable value: two queues are equal iff every field is equal.
type Queue struct {
	Name string
	// RoutingKey overrides Name as the binding key when set.
	RoutingKey string
	Durable    bool
	Exclusive  bool
	AutoDelete bool
}

// QueueOption configures a Queue built by NewQueue.
type QueueOption func(*Queue)

// WithRoutingKey sets the binding key used instead of the queue name.
func WithRoutingKey(key string) QueueOption {
	return func(q *Queue) { q.RoutingKey = key }
}

// Durable marks the queue as surviving broker restarts.
func Durable() QueueOption { return func(q *Queue) { q.Durable = true } }

// Exclusive marks the queue as owned by a single connection.
func Exclusive() QueueOption { return func(q *Queue) { q.Exclusive = true } }

// AutoDelete marks the queue for deletion once its last consumer goes away.
func AutoDelete() QueueOption { return func(q *Queue) { q.AutoDelete = true } }

// NewQueue builds a Queue with default flags and the given options applied.
func NewQueue(name string, opts ...QueueOption) Queue {
	q := Queue{Name: name}
	for _, o := range opts {
		o(&q)
	}

	return q
}

// QueueOf normalizes a bare name or a Queue descriptor into a Queue.
func QueueOf[T string | Queue](v T) Queue {
	switch q := any(v).(type) {
	case Queue:
		return q
	case string:
		return Queue{Name: q}
	}

	return Queue{}
}

// Routing returns the key the queue is bound with.
func (q Queue) Routing() string {
	if q.RoutingKey != "" {
		return q.RoutingKey
	}

	return q.Name
}

func (q Queue) String() string { return q.Name }
