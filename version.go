package zlang

// Version is the interpreter version reported by the CLI.
var Version = "0.3.0"

// BuildDate is stamped by the release build via -ldflags.
var BuildDate = "dev"
