// Package session runs live study sessions.
//
// Every Session owns one goroutine that processes learner input and timer
// callbacks strictly one at a time, so the study engines it drives never see
// concurrent mutation. Public methods post a closure to that goroutine and
// wait for it to run. Delayed transitions are scheduled on a clock.Clock and
// tracked per session; abandoning a session stops them all and drops any
// callback that was already on its way.
package session
