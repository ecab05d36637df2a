//go:build integration

// Package integration exercises the remote sources against real servers.
//
// These tests require Docker. They start nginx for HTTP range requests and
// MinIO for S3 using testcontainers.
// Run with: go test -tags=integration ./integration/...
package integration
