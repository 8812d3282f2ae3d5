/*
Package shuttle implements the file shuttle service: a remote filesystem
surface served across an isolation boundary.

# Operations

	Ping           liveness probe
	ListChildren   direct children of a directory, in directory order
	GetMetadata    one entry projected into EntryMetadata
	OpenFile       mode-qualified handle to a real file
	OpenThumbnail  read-only handle to a cached thumbnail
	CreateEntry    new directory or empty file under a parent
	DeleteEntry    non-recursive delete, returns the parent

Path arguments may start with paths.VirtualRoot, which the Resolver rewrites
to the configured real root before any filesystem access. Expected failures
(not found, already exists, no thumbnail, bad mode) all collapse into
ErrNoResult. Callers cannot tell them apart.

# Lifecycle

A Service is Active from construction. Every call, Ping included, cancels
the pending stop and schedules a new one timeout later. If the timeout
elapses with no call the Service moves to Stopped and notifies its Owner
exactly once. Calls on a stopped Service return ErrStopped. There is no way
back: the host binds a new Service instead.

Calls and the expiry check share one mutex, so a late timer firing can never
stop a Service that was just renewed.
*/
package shuttle
