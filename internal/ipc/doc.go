/*
Package ipc carries shuttle calls over a Unix stream socket.

# Framing

Each message is a 4-byte big-endian length followed by a JSON body. A
response that carries a file handle has the descriptor attached to its first
byte as SCM_RIGHTS ancillary data, and sets "handle": true in the body.

	request  {"id","op","path","mode","mime_type","display_name"}
	response {"id","ok","entries","entry","doc_id","handle","more","fault"}

ok=false with no fault is the absent result. A fault is a transport-level
failure: the service stopped, the op is unknown, or the frame was malformed.

A long listing arrives as several frames; all but the last set "more" and
the client joins their entries.

# Binding

The first connection binds a fresh shuttle.Service. Later connections share
it. When the service stops itself after its idle timeout the server closes
every connection bound to it, and the next connection binds a new service.
*/
package ipc
