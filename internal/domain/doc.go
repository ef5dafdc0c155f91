// Package domain models Bureau of Meteorology (BOM) daily weather
// observation data and the station directory that accompanies it.
//
// # Data Source
//
// BOM publishes a single compressed archive (IDCKWCDEA0.tgz) containing one
// CSV file per station per month plus a fixed-width station directory. The
// archive is landed into object storage by an upstream job; this service
// stages it into PostgreSQL.
//
// # Archive Layout
//
//	tables/<region>/<station>/<station>-YYYYMM.csv   observation files
//	tables/stations_db.txt                           station directory
//
// The region segment ("vic", "wa", ...) is the state the file was
// published under. Some stations are published under more than one state
// directory; see [DefaultStateExceptions].
//
// # Observation Files
//
// ISO-8859-1 text. Twelve banner lines, an optional column heading row,
// the comma-delimited body and a one-line footer. Body columns, in order:
//
//	Station Name, Date (DD/MM/YYYY), Evapotranspiration (mm),
//	Rain (mm), Pan Evaporation (mm), Maximum Temperature (C),
//	Minimum Temperature (C), Maximum Relative Humidity (%),
//	Minimum Relative Humidity (%), Average 10m Wind Speed (m/sec),
//	Solar Radiation (MJ/sq m)
//
// Empty cells mean the station has no instrument or did not report. They
// are kept as absent values (nil) and are never coerced to zero.
//
// # Station Directory
//
// Fixed-width text, byte offsets:
//
//	[0,8)   station id (zero padded to six digits when staged)
//	[8,12)  state
//	[12,18) district code
//	[18,59) station name
//	[59,75) station since, YYYYMMDD followed by filler
//	[75,84) latitude
//	[84,94) longitude
//
// # Natural Keys
//
// Observations are keyed by (station name, date); stations by station id.
// The loader inserts only rows whose key is not already staged, so a run can
// be repeated safely.
package domain
