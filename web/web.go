package web

import _ "embed"

// IndexHTML is the static chat page served at the root endpoint.
//
//go:embed index.html
var IndexHTML []byte
