// Package power wraps the host's power-off primitive.
package power
