// Package mongo connects to MongoDB with the official v2 driver.
//
// Connect retries the initial connection and ping, which keeps container
// start order from failing the service. Healthcheck returns a probe suitable
// for httpserver.ReadinessHandler.
package mongo
