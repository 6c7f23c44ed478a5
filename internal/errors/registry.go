package errors

import "slices"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// Error codes used across the module.
const (
	CodeConfigNotFound     = "S001"
	CodeConfigParse        = "S002"
	CodeConfigInvalid      = "S003"
	CodeConfigPort         = "S004"
	CodeConfigChangePolicy = "S005"
	CodeConfigLogLevel     = "S006"
	CodeConfigLogFormat    = "S007"
	CodeConfigInitial      = "S008"
	CodeConfigExists       = "S009"
	CodeListenerPanic      = "S020"
	CodeInspectListen      = "S040"
	CodeInspectShutdown    = "S041"
)

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (S001-S019)
	// ============================================

	CodeConfigNotFound: {
		Category:   CategoryConfig,
		Message:    "Config file not found",
		Detail:     "No sharedstore.json was found in the current directory or any parent directory.",
		Suggestion: "Run 'sharedstore config init' to create one",
	},
	CodeConfigParse: {
		Category: CategoryConfig,
		Message:  "Invalid config JSON",
		Detail:   "The config file could not be parsed as JSON.",
	},
	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "One or more configuration values failed validation.",
	},
	CodeConfigPort: {
		Category:   CategoryConfig,
		Message:    "Invalid inspector port",
		Detail:     "inspector.port must be between 1 and 65535.",
		Suggestion: "Set inspector.port to a free port such as 7070",
	},
	CodeConfigChangePolicy: {
		Category:   CategoryConfig,
		Message:    "Invalid change policy",
		Detail:     "store.changePolicy controls whether Set reports unchanged writes.",
		Suggestion: `Use "writes" or "changes"`,
	},
	CodeConfigLogLevel: {
		Category:   CategoryConfig,
		Message:    "Invalid log level",
		Suggestion: `Use "debug", "info", "warn" or "error"`,
	},
	CodeConfigLogFormat: {
		Category:   CategoryConfig,
		Message:    "Invalid log format",
		Suggestion: `Use "text" or "json"`,
	},
	CodeConfigInitial: {
		Category: CategoryConfig,
		Message:  "Invalid initial state",
		Detail:   "store.initial keys must be non-empty strings.",
	},
	CodeConfigExists: {
		Category:   CategoryConfig,
		Message:    "Config file already exists",
		Suggestion: "Pass --force to overwrite it",
	},

	// ============================================
	// Store Errors (S020-S039)
	// ============================================

	CodeListenerPanic: {
		Category: CategoryStore,
		Message:  "Listener panicked",
		Detail:   "A store listener panicked while handling an event. The other listeners still received it.",
	},

	// ============================================
	// Inspector Errors (S040-S059)
	// ============================================

	CodeInspectListen: {
		Category:   CategoryInspect,
		Message:    "Inspector failed to listen",
		Detail:     "The inspector could not bind to the configured address.",
		Suggestion: "Check that inspector.port is not in use, or pass --port",
	},
	CodeInspectShutdown: {
		Category: CategoryInspect,
		Message:  "Inspector shutdown failed",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
