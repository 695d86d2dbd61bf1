// Package errors provides coded, actionable errors for the nextgo command
// and its configuration loader.
//
// Each error has a code that maps to a registered template:
//
//   - E1xx: configuration (file not found, parse failure, schema violation)
//   - E2xx: engine (preparation, asset source, manifest)
//   - E3xx: command line (flags, listen address)
//
// Errors carry an optional location inside a configuration file, a detail
// paragraph and a suggestion:
//
//	err := errors.New("E102").
//	    WithLocation("nextgo.yaml", 4, 9).
//	    WithSuggestion(`Use "header", "param" or "none"`)
//
//	fmt.Print(err.Format())
//	// ERROR E102: Configuration does not match the schema
//	//
//	//   nextgo.yaml:4:9
//	//
//	//        2 │ fetch:
//	//        3 │   header: X-Requested-With
//	//   →    4 │   mode: query
//	//          │         ^
//	//        5 │ static:
//	//
//	//   Hint: Use "header", "param" or "none"
package errors
