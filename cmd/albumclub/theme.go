package main

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/justestif/albumclub/internal/validation"
)

func parseThemeID(s string) (uuid.UUID, error) {
	if err := validation.Var("theme", s, "uuid"); err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing theme id: %w", err)
	}
	return id, nil
}
