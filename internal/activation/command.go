// Package activation presents the steps that link a chat group to a newly
// created workspace and copies the bind command for the user.
package activation

import (
	"fmt"

	"github.com/fazosimples/botfut/internal/workspace"
)

// CommandPrefix is the literal the bot listens for in a group.
const CommandPrefix = "/bind "

// Command returns the bind command for a workspace: the prefix followed by
// the slug, or by the id when the slug is empty. It is pure.
func Command(w workspace.Created) string {
	key := w.Slug
	if key == "" {
		key = w.ID
	}
	return CommandPrefix + key
}

// Step is one instruction shown to the user.
type Step struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Instructions returns the fixed two-step activation procedure.
func Instructions(w workspace.Created, botContact string) []Step {
	return []Step{
		{
			Number: 1,
			Title:  "Adicione o bot ao grupo",
			Detail: fmt.Sprintf("Adicione o contato %s ao grupo do WhatsApp da sua pelada.", botContact),
		},
		{
			Number: 2,
			Title:  "Envie o comando no grupo",
			Detail: fmt.Sprintf("No grupo, envie exatamente: %s", Command(w)),
		},
	}
}
