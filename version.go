package sluice

// Version is the release version. Builds may override it with
// -ldflags "-X github.com/aretw0/sluice.Version=...".
var Version = "0.1.0"
