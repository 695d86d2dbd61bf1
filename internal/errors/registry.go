package errors

import "sort"

// Template defines a registered error.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

var registry = map[string]Template{
	// Configuration (E100-E199)

	"E100": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No nextgo.json, nextgo.yaml or nextgo.yml was found in the project directory.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Configuration file could not be parsed",
		Detail:   "The file is not valid JSON or YAML.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Configuration does not match the schema",
		Detail:   "A field has the wrong type or a value outside the allowed set.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Invalid regular expression",
		Detail:   "Allow-origin patterns and the hot reload pattern must be valid Go regular expressions (RE2 syntax).",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Port out of range",
		Detail:   "The server port must be between 1 and 65535.",
	},
	"E105": {
		Category: CategoryConfig,
		Message:  "Configuration could not be written",
	},

	// Engine (E200-E299)

	"E200": {
		Category: CategoryEngine,
		Message:  "Engine preparation failed",
		Detail:   "The rendering engine could not load its build. Requests are answered with 503 until the process restarts.",
	},
	"E201": {
		Category: CategoryEngine,
		Message:  "Asset source unavailable",
		Detail:   "The build output directory or bucket could not be opened.",
	},
	"E202": {
		Category: CategoryEngine,
		Message:  "Build manifest is invalid",
		Detail:   "build-manifest.json must be a JSON object with a buildId string and a files map.",
	},

	// Command line (E300-E399)

	"E300": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
	},
	"E301": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The HTTP server stopped with an error.",
	},
}

// Codes returns all registered codes in order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
