// Package domain models municipal police incident data and the pure
// transformations applied to it before rendering.
//
// # Data Source
//
// Incident records come from the City of Dallas open data portal
// ("Public Safety - Police Incidents"), exported as a wide CSV. The pipeline
// only reads five of its columns: the leading count column, "Year of
// Incident", "Type of Incident", "Division", and "Zip Code".
//
// # Export Conventions
//
// Zip codes:
//
//	The export renders zip codes as floats ("75201.0") because the column
//	contains blanks. [NormalizePostalCode] strips the float suffix, requires
//	all digits, and left-pads to five characters, so "9049.0" becomes "09049".
//	Rows with a blank or non-numeric zip are unmappable and dropped at ingest.
//
// Incident types:
//
//	Free-text descriptions in inconsistent case, e.g. "BURGLARY OF HABITATION
//	- FORCED ENTRY" or "Theft of Service". Matching is case-insensitive
//	substring search against the property-crime keyword list in
//	[FilterPropertyIncidents]. TRESPASS, FRAUD, and FORGERY are deliberately
//	not in the list: they are statutory property offenses but not the
//	burglary/theft activity the map is about.
//
// Counts:
//
//	Each row carries a pre-aggregated incident count rather than representing
//	a single incident. Aggregation sums these counts; it never counts rows.
//
// # Category Collapse
//
// All matched rows are presented under the single "Property Crime" category.
// The original subtype survives into [LocationSummary].CountsByType so popups
// can list the breakdown per location.
package domain
