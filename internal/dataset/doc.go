// Package dataset reads IMDb title.basics dumps and fixture files and loads
// them into a title.Repository.
//
// The dump is tab separated with a header line; \N marks a NULL field and
// header names are lower-cased to become row columns, so "tconst",
// "titleType" and "startYear" line up with title.FromRow. Gzip input is
// detected from its magic bytes.
package dataset
