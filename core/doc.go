// Package core contains the tenant registry, service registrar, request
// dispatcher and shutdown coordinator. Concrete service drivers (databases,
// caches, log sinks) and transports live in sibling packages and must depend
// on core, never the other way around.
package core
