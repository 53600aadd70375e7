package conversation

import (
	"strings"

	"github.com/ashureev/planchat/internal/domain"
)

// Block is one rendered unit of a turn.
type Block struct {
	Text         string `json:"text"`
	Preformatted bool   `json:"preformatted,omitempty"`
}

// Blocks applies the rendering policy every renderer must follow: a
// formatted turn is a single preformatted block kept verbatim, anything else
// becomes one block per non-blank line.
func Blocks(t domain.Turn) []Block {
	if t.Formatted {
		return []Block{{Text: t.Content, Preformatted: true}}
	}
	var out []Block
	for _, line := range strings.Split(t.Content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, Block{Text: line})
	}
	return out
}

// TurnView is a turn together with its rendered blocks, as sent to the
// page.
type TurnView struct {
	domain.Turn
	Blocks []Block `json:"blocks"`
}

// View renders t for transport.
func View(t domain.Turn) TurnView {
	blocks := Blocks(t)
	if blocks == nil {
		blocks = []Block{}
	}
	return TurnView{Turn: t, Blocks: blocks}
}

// Views renders every turn in order.
func Views(turns []domain.Turn) []TurnView {
	out := make([]TurnView, 0, len(turns))
	for _, t := range turns {
		out = append(out, View(t))
	}
	return out
}
