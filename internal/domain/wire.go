package domain

import (
	"fmt"
	"strings"
)

// Literal protocol lines. Clients key off these exact strings, so they are
// defined once here and nowhere else.
const (
	PromptName = "Enter your name: "
	PromptRoom = "Enter chat room ID to join/create: "

	HistoryStart = "--- Message History ---"
	HistoryEnd   = "--- End of History ---"

	Farewell        = "You left the chat."
	ProcessingError = "An error occurred while processing your message."
)

// ChatLine is the broadcast (and persisted) form of a chat message.
func ChatLine(name, text string) string {
	return fmt.Sprintf("[%s]: %s", name, text)
}

func JoinConfirmation(room RoomName) string {
	return fmt.Sprintf("You joined room: %s", room)
}

func JoinedLine(name string) string {
	return fmt.Sprintf("%s joined the room.", name)
}

func LeftLine(name string) string {
	return fmt.Sprintf("%s left the room.", name)
}

// ActiveUsersLine formats the member summary. Names appear in join order;
// an empty list reads "None".
func ActiveUsersLine(names []string) string {
	joined := strings.Join(names, ", ")
	if joined == "" {
		joined = "None"
	}
	return "Active users: " + joined
}

func PrivateFromLine(sender, text string) string {
	return fmt.Sprintf("[Private from %s]: %s", sender, text)
}

func PrivateToLine(recipient, text string) string {
	return fmt.Sprintf("[Private to %s]: %s", recipient, text)
}

func UserNotFoundLine(name string) string {
	return fmt.Sprintf("User %q not found in this room.", name)
}
