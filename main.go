package main

import (
	"twitter-notifier/bot"
	"twitter-notifier/handlers"
)

func main() {
	bot.Run(handlers.Register)
}
