package testutils

import (
	"github.com/flanksource/gigs/context"
)

// Variables used to aid testing.
//
// It's better to fire up a single embedded database instance
// for the entire test suite.
// The variables are here so they can be imported by other packages as well.
var (
	DefaultContext context.Context
)
