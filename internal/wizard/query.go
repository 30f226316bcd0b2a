package wizard

// QueryStatus is the state of one data fetch.
type QueryStatus string

const (
	StatusIdle    QueryStatus = "idle"
	StatusLoading QueryStatus = "loading"
	StatusSuccess QueryStatus = "success"
	StatusError   QueryStatus = "error"
)

// QueryResult holds the outcome of a fetch. A query that cannot run yet
// (its provider is unknown) stays idle.
type QueryResult[T any] struct {
	Status QueryStatus
	Data   T
	Err    error
}

// Query is the status view of a QueryResult of any type.
type Query interface {
	QueryStatus() QueryStatus
	QueryError() error
}

func (q *QueryResult[T]) QueryStatus() QueryStatus {
	if q.Status == "" {
		return StatusIdle
	}
	return q.Status
}

func (q *QueryResult[T]) QueryError() error { return q.Err }

func (q *QueryResult[T]) succeed(data T) {
	q.Status, q.Data, q.Err = StatusSuccess, data, nil
}

func (q *QueryResult[T]) fail(err error) {
	var zero T
	q.Status, q.Data, q.Err = StatusError, zero, err
}

// set records the terminal result of a fetch.
func (q *QueryResult[T]) set(data T, err error) {
	if err != nil {
		q.fail(err)
		return
	}
	q.succeed(data)
}

// pending reports whether the query should run on the next attempt.
func (q *QueryResult[T]) pending() bool {
	return q.QueryStatus() != StatusSuccess
}

// AggregateStatus combines query states: any error wins, then any query
// still loading or idle, and success only when every query succeeded.
func AggregateStatus(queries []Query) QueryStatus {
	status := StatusSuccess
	for _, q := range queries {
		switch q.QueryStatus() {
		case StatusError:
			return StatusError
		case StatusLoading:
			status = StatusLoading
		case StatusIdle:
			if status != StatusLoading {
				status = StatusIdle
			}
		}
	}
	return status
}

// FirstError returns the index and error of the first failed query, or -1
// and nil.
func FirstError(queries []Query) (int, error) {
	for i, q := range queries {
		if q.QueryStatus() == StatusError {
			return i, q.QueryError()
		}
	}
	return -1, nil
}
