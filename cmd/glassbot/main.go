// Command glassbot runs the bot over a webhook or long polling and manages
// its webhook registration.
package main

func main() {
	Execute()
}
