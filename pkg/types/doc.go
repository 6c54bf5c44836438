// Package types defines the gigboard schema model: columns, rows, the closed
// status and category vocabularies, the remote record shape, the row-store
// and identity boundaries, and the standard errors shared by every package.
package types
