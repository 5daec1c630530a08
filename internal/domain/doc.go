// Package domain models canonical electricity-grid events.
//
// # Event kinds
//
// Five kinds share a common core (zone key, timezone-aware datetime, source,
// source type):
//
//	exchange             net flow across "A->B", positive from A to B
//	totalConsumption     consumption in MW
//	totalProduction      generation in MW
//	productionBreakdown  production per mode plus optional storage per mode
//	price                day-ahead price per MWh with an ISO-4217 currency
//
// # Construction
//
// Every kind has a strict constructor (NewExchange, NewPrice, ...) returning a
// wrapped sentinel error, and a safe factory (CreateExchange, CreatePrice, ...)
// that logs the failure at ERROR and reports false. Adapters only use the safe
// factories, usually through the per-kind lists, so one malformed sample never
// aborts a batch.
//
// Shared invariants:
//
//   - the datetime is set and carries a location (naive strings are rejected at decode time)
//   - the datetime is not before 2000-01-01 UTC
//   - measured datapoints are at most 24h ahead of the domain clock
//   - the zone, or both ends and the exchange itself, are configured
//
// # Absent versus zero
//
// Mix values are optional. An absent mode means the source did not report it;
// zero means the source reported no output. Wire records omit absent modes.
//
// # Negative production
//
// CreateProductionBreakdown clears negative production modes with a warning
// and lists them under correctedModes. Storage keeps its sign: positive charges,
// negative discharges.
package domain
