// Package config loads the nextgo server configuration file.
//
// The configuration lives in nextgo.json, nextgo.yaml or nextgo.yml at the
// project root (looked up in that order):
//
//	port: 3000
//	dev: false
//	buildDir: build
//	fetch:
//	  mode: header
//	  header: X-Requested-With
//	  value: Next-Fetch
//	static:
//	  extensions: [.js, .css, .png]
//	  allowOriginPatterns: ['^https://(www\.)?example\.com$']
//	metrics:
//	  enabled: true
//
// Files are checked against an embedded CUE schema before they are decoded,
// so a misspelled key or a wrong type is reported with its line and column.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    errors.Print(os.Stderr, err)
//	    os.Exit(1)
//	}
//	app := nextgo.New(engine, cfg.App())
package config
