package models

// Person is an assignee that can be mentioned in chat.
type Person struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	DiscordID string `json:"discordId"`
}

// Mention renders the chat mention for the person.
func (p Person) Mention() string {
	if p.DiscordID == "" {
		return ""
	}
	return "<@" + p.DiscordID + ">"
}
