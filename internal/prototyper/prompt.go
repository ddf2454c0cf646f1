// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Prompt construction and response parsing for the coordinator

package prototyper

import (
	"fmt"

	"github.com/prototyp3d/prototyp3d/internal/ticket"
	"github.com/prototyp3d/prototyp3d/internal/workspace"
)

func buildSummaryPrompt(sources []workspace.SourceFile) string {
	return fmt.Sprintf(`You are an expert software engineer reviewing a Three.js project.

**FILES**
%s

### INSTRUCTIONS:
Summarize what this project currently does: the scene it renders, the objects
in it, the interactions it supports and how the files relate to each other.
Return your response in **valid JSON format** with the following structure:

`+"```json"+`
{
    "summary": "A concise description of the current state of the project."
}
`+"```", workspace.FormatBlocks(sources))
}

func buildPlanPrompt(goal, summary string) string {
	return fmt.Sprintf(`You are an expert technical project manager for Three.js applications.
A user wants the following prototype built:

**USER GOAL**
%s

***REPO SUMMARY***
%s

### INSTRUCTIONS:
Break the goal down into a small sequence of Jira-style tickets. Each ticket
must be independently implementable against the current repository and the
sequence must add up to the user's goal. Keep the list short and high-impact.
Return your response in **valid JSON format** with the following structure:

`+"```json"+`
{
    "tickets": [
        {
            "summary": "Short ticket title",
            "description": "Precise implementation instructions for this ticket."
        }
    ]
}
`+"```", goal, summary)
}

// parseTickets pulls the ticket list out of a structured planning
// response. Entries without a usable summary are skipped.
func parseTickets(data map[string]any) []ticket.Ticket {
	rawList, ok := data["tickets"].([]any)
	if !ok {
		return nil
	}

	tickets := make([]ticket.Ticket, 0, len(rawList))
	for _, raw := range rawList {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		summary, _ := entry["summary"].(string)
		description, _ := entry["description"].(string)
		if summary == "" {
			continue
		}
		tickets = append(tickets, ticket.Ticket{Summary: summary, Description: description})
	}
	return tickets
}
