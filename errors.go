package pi2

import "github.com/zeebo/errs"

// Error is the class of general errors returned by this package.
var Error = errs.Class("pi2")

// ErrProtocol is the class of write-protocol violations: operations invoked
// in a state where running them would corrupt on-disk data. Handles return
// these instead of silently proceeding.
var ErrProtocol = errs.Class("pi2: protocol")
