// Package constants provides shared constants used across the application
// to avoid circular dependencies between packages.
package constants

import "time"

// Timeout constants used across the application
const (
	// DefaultProviderTimeout bounds a single natural-language provider call,
	// retries included.
	DefaultProviderTimeout = 10 * time.Second
	// BridgePollInterval is how long the bridge consumer blocks waiting for a command
	BridgePollInterval = 1 * time.Second
	// BridgeResultTimeout is how long a bridge producer waits for its result
	BridgeResultTimeout = 5 * time.Second
	// DefaultShutdownTimeout bounds graceful shutdown of the HTTP front end
	DefaultShutdownTimeout = 5 * time.Second
)

// Application defaults
const (
	DefaultProviderKind = "openai"
	DefaultOpenAIModel  = "gpt-3.5-turbo"
	DefaultGeminiModel  = "gemini-1.5-flash"
	DefaultOpenAIURL    = "https://api.openai.com/v1/chat/completions"
	DefaultGeminiURL    = "https://generativelanguage.googleapis.com/v1beta/models"
	DefaultMaxTokens    = 500
	DefaultTemperature  = 0.1
	DefaultServeAddr    = "127.0.0.1:5000"
)

// Capacities
const (
	// HistoryCapacity is the number of most recent history entries kept on disk
	HistoryCapacity = 1000
	// BridgeQueueCapacity is the default size of each bridge queue
	BridgeQueueCapacity = 64
	// MaxResolvedCommands caps how many lines one natural-language request may expand to
	MaxResolvedCommands = 32
	// MaxProcessListing is the number of processes shown by ps
	MaxProcessListing = 20
)

// NaturalLanguagePrefix marks an input line as a natural-language request
const NaturalLanguagePrefix = "ai"
