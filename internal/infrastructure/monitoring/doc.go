/*
Package monitoring provides Prometheus metrics for the shuttle.

# Overview

Every collector lives on a private registry owned by Metrics, so several
servers (or tests) can run in one process without duplicate registration.

# Metrics

  - fileshuttle_calls_total{op,result}: calls by outcome (ok, absent, stopped, fault)
  - fileshuttle_call_duration_seconds{op}: call latency
  - fileshuttle_handles_sent_total{kind}: descriptors passed (file, thumbnail)
  - fileshuttle_instances_active / _total, fileshuttle_idle_stops_total
  - fileshuttle_thumbnails_generated_total{result}
  - fileshuttle_admin_http_requests_total, fileshuttle_admin_http_request_duration_seconds

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "list_children")
	defer timer.Stop(monitoring.ResultOK)

A nil *Metrics is accepted everywhere and records nothing.
*/
package monitoring
