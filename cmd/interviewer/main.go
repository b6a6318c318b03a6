// Command interviewer runs LLM-driven interview sessions, either
// interactively in the terminal or as an HTTP service.
package main

func main() {
	Execute()
}
