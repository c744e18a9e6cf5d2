package interfaces

import (
	"github.com/ternarybob/equitylens/internal/models"
)

// PromptBuilder turns a section key and resolved identity into request text.
// today is formatted YYYY/MM/DD.
type PromptBuilder interface {
	Build(section models.Section, identity models.Identity, today string) (string, error)
}
