// Package test provides infrastructure and utilities for integration testing in vidbatch.
//
// The test package wires the real API server, the real API client and the
// submission worker together against a file-based SQLite database, an
// in-process Redis and the mock video provider, so the whole flow from upload
// to finished video can be exercised without external services.
//
// The package provides:
//
//   - Suite: a struct that manages the complete setup and its cleanup
//
//   - Helpers for the common steps of a batch, such as uploading a data file
//     and waiting for every job of a project
//
// Example Usage:
//
//	func TestExample(t *testing.T) {
//	    s := test.NewSuite(t)
//	    defer s.Cleanup()
//
//	    project := s.UploadCSV("people", "name\nAnna\n")
//	    // Use s.APIClient to make requests
//	    // Use s.Video to inspect what was submitted
//	}
package test
