// Package api provides the graydb HTTP status and governance API.
//
// Routes:
//
//	GET  /metrics                              Prometheus text (pool + process)
//	GET  /api/v1/health                        pool ping, 503 when unreachable
//	GET  /api/v1/metrics                       runtime, pool and registry stats
//	GET  /api/v1/pool                          pool statistics
//	GET  /api/v1/pool/connections              live connections
//	GET  /api/v1/deviations[?status=proposed]  registry records
//	GET  /api/v1/deviations/{id}               one record
//	POST /api/v1/deviations/{id}/transition    governance decision
//	GET  /api/v1/gate                          release gate verdict
//	GET  /api/v1/parity                        last harness report
//	POST /api/v1/parity/run                    run the battery now
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
