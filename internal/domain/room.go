// Package domain contains entities and wire-format rules without runtime logic.
package domain

// RoomName identifies a chat room. It doubles as the persistence key for the
// room's history, so it is never rewritten once a session has joined.
type RoomName string
