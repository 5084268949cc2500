package subscription

import "errors"

// ErrRouterClosed is returned by Subscribe calls after Router.Close.
var ErrRouterClosed = errors.New("subscription router closed")
