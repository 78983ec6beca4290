// Package sqlite provides the file-backed save-game store.
package sqlite
