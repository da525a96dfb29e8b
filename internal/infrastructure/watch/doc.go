// Package watch keeps a session in sync with an HTML file on disk.
package watch
