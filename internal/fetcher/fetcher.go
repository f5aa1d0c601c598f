// Package fetcher pulls distributor sales exports from remote drops and
// parses the spreadsheet formats they arrive in.
package fetcher

import "context"

// Source is a remote drop of distributor sales files.
type Source interface {
	// List returns the names of sales files currently in the drop.
	List(ctx context.Context) ([]string, error)

	// Fetch downloads one file into destDir and returns its local path.
	Fetch(ctx context.Context, name, destDir string) (string, error)
}
