package curator

import _ "embed"

// Version is the release version of curator.
//
//go:embed VERSION
var Version string
