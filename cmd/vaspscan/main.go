package main

// Build-time variables 'version', 'commit', and 'date' are declared in
// root.go and populated via -ldflags.

// main is the entry point for the vaspscan application. It invokes Execute
// (defined in root.go), which sets up and runs the root Cobra command.
func main() {
	Execute()
}
