package domain

import "github.com/google/uuid"

// Side tags which face of a card a memory tile shows.
type Side string

// Possible tile sides
const (
	SideFront Side = "front"
	SideBack  Side = "back"
)

// MemoryTile is one face of a card in memory-matching mode. Two tiles match
// when they share a CardID and carry different sides.
type MemoryTile struct {
	CardID  uuid.UUID `json:"card_id"`
	Side    Side      `json:"side"`
	Text    string    `json:"text"`
	Flipped bool      `json:"flipped"`
	Matched bool      `json:"matched"`
}

// Pairs reports whether t and other are the two faces of the same card.
func (t MemoryTile) Pairs(other MemoryTile) bool {
	return t.CardID == other.CardID && t.Side != other.Side
}

// TilesFor builds the front and back tiles for each card, face down.
func TilesFor(cards []Card) []MemoryTile {
	tiles := make([]MemoryTile, 0, len(cards)*2)
	for _, c := range cards {
		tiles = append(tiles,
			MemoryTile{CardID: c.ID, Side: SideFront, Text: c.Front},
			MemoryTile{CardID: c.ID, Side: SideBack, Text: c.Back},
		)
	}
	return tiles
}
