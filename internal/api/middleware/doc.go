// Package middleware provides gin middleware for the admin HTTP surface.
package middleware
