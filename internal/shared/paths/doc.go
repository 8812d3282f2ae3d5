// Package paths maps the caller's virtual path space onto the real filesystem.
//
// Callers on the far side of the shuttle boundary cannot see the service's
// filesystem namespace. They address the exported tree through a reserved
// prefix, VirtualRoot, which the Resolver swaps for the configured real root
// before any filesystem access happens.
//
// # Path Forms
//
//	/__cross_profile_root__/DCIM/a.jpg   (virtual, rewritten)
//	/storage/DCIM/a.jpg                  (real, passed through)
//
// Real paths reach the resolver when a caller round-trips a document ID that
// an earlier list or create call returned.
//
// # Usage
//
//	r := paths.NewResolver("/storage")
//	real := r.Resolve("/__cross_profile_root__/DCIM") // /storage/DCIM
package paths
