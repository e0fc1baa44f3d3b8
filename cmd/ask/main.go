package main

import "chatroom-backend/internal/cli"

func main() {
	cli.Execute()
}
