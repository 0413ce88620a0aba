// Package app wires the portfolio analytics API server together and manages
// its lifecycle.
//
// # Initialization Flow
//
//  1. Load configuration from defaults, an optional YAML file and the environment
//  2. Initialize logging and OpenTelemetry
//  3. Open the cache, the database and the snapshot repository
//  4. Assemble the cached market data sources
//  5. Create the analysis services and the websocket hub
//  6. Mount the HTTP handlers behind the middleware chain
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM, then drains in-flight requests,
// disconnects websocket clients, closes the cache and database, and flushes
// telemetry. Initialization errors are returned to the caller; the package
// never calls os.Exit.
package app
