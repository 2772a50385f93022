// Package core defines the domain model for logforge.
//
// The central entity is LogRecord, the unit every pipeline stage produces or
// annotates. Records are created by the gen package, mutated by the anomaly
// injector, linked by the correlation engine, and finally annotated with a
// severity bucket by the scorer. After the stage that owns a field completes,
// that field is treated as immutable; there is no update lifecycle.
//
// Structured fields are a tagged variant: exactly one of the SIEM, ERP or App
// sub-structures is populated, matching SourceType. Consumers that need a flat
// view (sinks, the quality checker) use Fields().
package core
