package domain

// RoleUser is the completion API role of a prompt turn.
const RoleUser = "user"

// ChatMessage is one turn of a completion request, independent of provider.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
