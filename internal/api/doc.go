// Package api calls the remote natural-language provider.
//
// # Architecture
//
//   - provider.go: Provider capability (BuildRequest, ParseResponse) and errors
//   - openai.go: OpenAI-compatible chat completions variant
//   - gemini.go: Google generateContent variant
//   - client.go: HTTP client with a bounded timeout
//   - retry.go: exponential backoff for 429 and 5xx replies
//
// # Usage
//
//	cfg := config.NewConfig()
//	if err := cfg.Validate(); err != nil {
//	    // handle error
//	}
//	client, err := api.NewClient(cfg.Provider, logging.DefaultLogger)
//	if err != nil {
//	    // handle error
//	}
//	reply, err := client.Complete(ctx, systemPrompt, userPrompt)
//
// Every failure wraps ErrProviderTransport or ErrProviderParse, so callers can
// fall back to local heuristics with a single errors.Is check.
package api
