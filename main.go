package main

import "github.com/anabananasophia/Talia-bot/cmd"

func main() {
	cmd.Execute()
}
