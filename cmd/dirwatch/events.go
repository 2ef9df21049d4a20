package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/watchkit/dirwatch"
)

func printEvent(e dirwatch.Event) {
	if flagJSON {
		b, err := json.Marshal(e)
		if err != nil {
			fmt.Println("{}")
			return
		}
		fmt.Println(string(b))
		return
	}

	if e.OldPath != "" {
		fmt.Printf(time.Now().Format("15:04:05.000")+" %-6s %s %s -> %s\n", e.Type, e.Kind, e.OldPath, e.Path)
		return
	}
	fmt.Printf(time.Now().Format("15:04:05.000")+" %-6s %s %s\n", e.Type, e.Kind, e.Path)
}

func printEvents(events []dirwatch.Event) {
	for _, e := range events {
		printEvent(e)
	}
}
