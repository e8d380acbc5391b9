// Package task runs long external work off the request path.
//
// Callers submit a WorkFunc together with a free-form type tag and get back a
// task id immediately. A fixed pool of workers takes tasks from a single FIFO
// queue and runs them; the outcome (result or error) is recorded in an
// in-memory table that callers poll by id. Nothing survives a restart.
//
// Cancellation only prevents pending tasks from starting. A running task is
// never interrupted by Cancel; work functions that need a time bound must
// enforce it themselves through the context they receive.
package task
