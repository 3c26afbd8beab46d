// Package cmd implements the CLI commands for the ai-shell application.
//
// # Architecture
//
//   - root.go: Main entry point, App struct, cobra command setup and session wiring
//   - interactive.go: Terminal REPL built on go-prompt, with command and path completion
//   - serve.go: HTTP and WebSocket front end; one session driven through the bridge
//   - setup.go: Provider configuration and a test request
//   - status.go: Resolved configuration report
//
// # Key Components
//
// ## App
//
// The App struct holds the configuration and the filesystem used by the
// command registry. It's created in Execute() and passed to every command.
// newSession assembles a registry, an interpreter (remote provider when a
// credential is configured, local keyword matching otherwise) and a session.
//
// ## InteractiveSession
//
// Feeds each prompt line to session.Process and prints the result. History
// is preloaded into the prompt and saved on exit.
//
// # Usage
//
//	func main() {
//	    cmd.Execute()
//	}
package cmd
