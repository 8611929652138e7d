package server

// Version is set at build time with
// -ldflags "-X github.com/dhnt/tlserve/internal/server.Version=v1.0.0".
var Version = "dev"
