// Package domain models hazard alerts collected from public feeds and the
// pure functions that normalize each feed's items into a flat [Record].
//
// # Sources
//
// Each source publishes a different wire shape:
//
//	noaa_swpc         JSON array of SWPC products with free-text bodies
//	nasa_donki        JSON array of DONKI notifications
//	usgs_earthquakes  GeoJSON FeatureCollection, time in epoch milliseconds
//	firms             CSV hotspots, one row per satellite detection
//	aemet             tar archive of CAP 1.2 XML documents
//	ign               RSS 2.0, details embedded in Spanish prose
//	gdacs             RSS 2.0 with gdacs: extension elements
//	meteoalarm        RSS 2.0
//
// Parsers never perform I/O. A parser returns an error only when the item
// lacks the fields its unique key is built from; any other missing value
// becomes a JSON null.
//
// # Text mining
//
// Free-text fields are mined with package-level regular expressions, one per
// extracted field. A pattern that does not match leaves its field nil:
//
//	SWPC:  "K-index of 5", "Valid From: 2024 May 10 1200 UTC",
//	       "Potential Impacts: ..." (rest of the body, newlines collapsed)
//	IGN:   "magnitud 2.1", "en <location> en la fecha", "fecha 10/05/2024 08:12:45 en la siguiente"
//	GDACS: "Magnitude 6.1M" in gdacs:severity, else in title and description
//
// # Keys
//
// Sources with a natural identifier keep it (DONKI message_id, USGS code,
// CAP identifier, Meteoalarm guid, GDACS guid). The rest get a derived key:
// the first 8 bytes of SHA-256 over the "|"-joined immutable fields, hex
// encoded and prefixed with the source tag, e.g. "firms-3fa2...". Identical
// upstream fields therefore always produce the same key. See [deriveKey].
//
// # Timestamps
//
// Timestamps are kept as the source wrote them. Formats used for marker
// comparison are strftime patterns ("%Y-%m-%d %H:%M:%S.%f"); see
// [ParseTimestamp] and [FormatTimestamp].
package domain
