package domain

import "errors"

// ErrTurnInFlight is returned by session stores when a turn is started on a
// session whose previous turn has not settled.
var ErrTurnInFlight = errors.New("turn already in flight")
