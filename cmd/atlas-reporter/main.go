package main

// main is the entry point for the atlas-reporter application. Execute
// (defined in root.go) sets up the root Cobra command, loads configuration
// and runs the batch; RunE errors are printed by Cobra and set the exit code.
func main() {
	Execute()
}
