package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultContextLimit is assumed for models with no configured pricing row.
const DefaultContextLimit = 200_000

type ModelPricing struct {
	ID        string
	ModelName string
	// USD per one million tokens. Output tokens are priced independently of
	// input tokens and are typically more expensive; the two are never mixed
	// into a single per-token rate.
	InputUSDPerMTok  float64
	OutputUSDPerMTok float64
	ContextLimit     int
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewModelPricing(modelName string, inputUSD, outputUSD float64, contextLimit int, active bool) *ModelPricing {
	now := time.Now()
	if contextLimit <= 0 {
		contextLimit = DefaultContextLimit
	}
	return &ModelPricing{
		ID:               uuid.NewString(),
		ModelName:        modelName,
		InputUSDPerMTok:  inputUSD,
		OutputUSDPerMTok: outputUSD,
		ContextLimit:     contextLimit,
		Active:           active,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
