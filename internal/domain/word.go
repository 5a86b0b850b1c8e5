package domain

import (
	"fmt"
	"strings"
	"time"
)

// Word is a vocabulary entry surfaced as the word of the day.
type Word struct {
	ID         string
	Word       string
	Definition string
	ExtraJSON  *string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (w *Word) Validate() error {
	if strings.TrimSpace(w.Word) == "" {
		return fmt.Errorf("%w: word is required", ErrValidation)
	}
	if strings.TrimSpace(w.Definition) == "" {
		return fmt.Errorf("%w: definition is required", ErrValidation)
	}
	return nil
}
