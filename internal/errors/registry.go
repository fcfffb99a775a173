package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
	DocURL     string
}

const docBase = "https://vango.dev/docs/qstate/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Reactive core (Q001-Q099)
	// ============================================

	"Q001": {
		Category:   CategoryRuntime,
		Message:    "Unsupported state target",
		Suggestion: "Only map[string]any records and *[]any sequences can be made reactive",
		DocURL:     docBase + "Q001",
	},
	"Q002": {
		Category:   CategoryRuntime,
		Message:    "Target is already wrapped",
		Suggestion: "Pass the raw target, or reuse the existing handle returned by GetOrCreate",
		DocURL:     docBase + "Q002",
	},
	"Q003": {
		Category:   CategoryRuntime,
		Message:    "Write to immutable state",
		Suggestion: "Immutable handles and frozen values are read-only; copy the data into a mutable store first",
		DocURL:     docBase + "Q003",
	},
	"Q004": {
		Category:   CategoryRuntime,
		Message:    "Value is not serializable",
		Suggestion: "Store plain data only, or mark runtime-only values with qobject.NoSerialize",
		DocURL:     docBase + "Q004",
	},
	"Q005": {
		Category:   CategoryRuntime,
		Message:    "State mutation during render",
		Suggestion: "Move the mutation into an event handler or effect",
		DocURL:     docBase + "Q005",
	},
	"Q006": {
		Category: CategoryRuntime,
		Message:  "Index out of range",
		DocURL:   docBase + "Q006",
	},
	"Q007": {
		Category: CategoryRuntime,
		Message:  "Operation not supported for this target kind",
		DocURL:   docBase + "Q007",
	},

	// ============================================
	// Configuration (Q100-Q199)
	// ============================================

	"Q100": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration file",
		Suggestion: "Check that qstate.json is valid JSON",
		DocURL:     docBase + "Q100",
	},
	"Q101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		DocURL:   docBase + "Q101",
	},
	"Q102": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Create qstate.json in the project root or pass --config",
		DocURL:     docBase + "Q102",
	},

	// ============================================
	// Scripts and state documents (Q200-Q299)
	// ============================================

	"Q200": {
		Category:   CategoryScript,
		Message:    "Invalid state document",
		Suggestion: "State documents must be a JSON object or array",
		DocURL:     docBase + "Q200",
	},
	"Q201": {
		Category:   CategoryScript,
		Message:    "Script too long",
		Suggestion: "Split the script or raise limits.maxScriptOps in qstate.json",
		DocURL:     docBase + "Q201",
	},
	"Q202": {
		Category: CategoryScript,
		Message:  "Invalid script operation",
		DocURL:   docBase + "Q202",
	},
	"Q203": {
		Category: CategoryScript,
		Message:  "Path does not resolve",
		DocURL:   docBase + "Q203",
	},

	// ============================================
	// CLI (Q300-Q399)
	// ============================================

	"Q300": {
		Category: CategoryCLI,
		Message:  "Cannot read input file",
		DocURL:   docBase + "Q300",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
