// Package domain models climate-network observation data: stations,
// variables (elements), hourly timestamps, and the raw element values the
// query layer returns for them.
//
// # Identifiers
//
// Every observed value is addressed by three integer ids:
//
//	station id    one ground station (display name, UTC offset in hours)
//	timestamp id  one UTC hour; consecutive ids are consecutive hours
//	variable id   one measured element, e.g. hourly average temperature
//
// Hourly values are stamped at the end of the observation hour: the value
// for timestamp "2010010101" covers 00:00–01:00 UTC.
//
// # Sub-hour channels
//
// Sensors sampled every 5 or 15 minutes are stored as one variable per
// offset ("channels"), e.g. twelve 5-minute temperature variables per hour.
// Variable ids at or above [SubhourlyIDBase] are reserved for synthetic
// group variables that fold such channels back into a single quantity with
// a minute-resolution timestamp. See package subhourly.
//
// # Values and flags
//
// Values arrive as decimal strings and are kept exact. A value may be
// absent in the source; such rows cannot become records. Quality flags are
// integer bitmasks. A value of -9999.0 (or the legacy -999.0) marks a
// missing measurement; placeholders synthesized for absent values carry
// -9999.0 with flag 0.
//
// # Lookup keys
//
// Stations, variables, and timestamps can be looked up by id, by a name or
// description, or by an already-resolved object. [Key] is the closed set of
// these variants; the object form reduces to an id key via the Key methods
// on [Station], [Variable], and [Timestamp].
package domain
