package botwalk

// Version is the release version, overridable at build time via
// -ldflags "-X github.com/botwalk/botwalk.Version=...".
var Version = "0.1.0-dev"
