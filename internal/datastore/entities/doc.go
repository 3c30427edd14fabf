// Package entities defines the GORM models for disaster reports and their
// grouping.
//
// # Grouping hierarchy
//
//   - Event: a named, user-curated group of Data
//   - Datum: the automatic bucket for one (area, date, category) key
//   - Report: a single submission; belongs to exactly one Datum
//
// # Supporting entities
//
//   - User: accounts that log in and star reports
//   - Attachment: stored image belonging to a Report
//   - Star: per-user bookmark of a Report
//
// Deleting an Event or Datum that is still referenced fails at the database
// level (ON DELETE RESTRICT). Attachments and Stars cascade with their Report.
package entities
