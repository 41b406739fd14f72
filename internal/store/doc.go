// Package store persists segmentation runs in PostgreSQL.
//
// Each run is written in a single transaction: the run row, one row per
// cluster center and one row per clustered customer. Customer rows are
// loaded with COPY. The schema name is validated before use since it is
// interpolated into the SQL text.
package store
