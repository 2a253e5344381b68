// Package title maps external representations of an IMDb title onto Record.
//
// There are two construction paths with deliberately separate naming schemes:
//
//	mapping key     row column
//	-----------     ------------
//	id              tconst
//	title_type      titletype
//	primary_title   primarytitle
//	start_year      startyear
//
// FromMapping reads a map[string]string, typically decoded from a request body
// or a fixture file. FromRow reads anything implementing RowSource: a database
// row collected by the stores, a dataset line, or MapRow in tests.
//
// Both constructors treat a missing identifier as a broken precondition and
// panic; ParseMapping and ParseRow return ErrMissingID instead. A start year
// that is present but not a number is simply absent.
package title
