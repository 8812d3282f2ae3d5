// Package grpc exposes shuttle liveness through the standard gRPC health
// service.
//
// The health server listens on its own Unix socket. The service name
// "fileshuttle.FileShuttle" reports SERVING while a shuttle instance is bound
// and NOT_SERVING otherwise; the empty service name reports the process.
//
// Example Usage:
//
//	hs := grpc.NewHealthServer("/tmp/fileshuttle-health.sock", log)
//	go hs.Serve(ctx)
//
//	client, err := grpc.NewHealthClient("/tmp/fileshuttle-health.sock")
//	status, err := client.Check(ctx)
package grpc
