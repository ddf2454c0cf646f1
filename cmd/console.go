/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"fmt"

	"github.com/prototyp3d/prototyp3d/internal/progress"
)

// consoleSink prints progress events as they happen. DEBUG chatter from
// the QA agent only shows up with --verbose.
type consoleSink struct{}

func (consoleSink) Publish(eventType progress.EventType, message string, _ map[string]any) {
	if eventType == progress.EventDebug && !verbose {
		return
	}
	fmt.Printf("[%s] %s\n", eventType, message)
}
