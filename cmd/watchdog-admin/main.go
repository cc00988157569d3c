// Package main is the entry point for the Feed Watchdog admin.
package main

func main() {
	Execute()
}
