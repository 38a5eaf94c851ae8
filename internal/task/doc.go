// Package task runs background work off the request path: a bounded
// in-memory queue feeding a pool of workers. Session records are written to
// the progress store this way so a slow or failing database never delays a
// learner.
package task
