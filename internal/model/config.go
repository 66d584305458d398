package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/erik-whiting/RNA-FM/internal/checkpoint"
)

// DefaultMaxPositions is used when a checkpoint's args omit max_positions.
const DefaultMaxPositions = 1024

// Config holds the hyperparameters read from a rewritten checkpoint
// configuration. Field names are the canonical (prefix-free) arg names.
type Config struct {
	Arch               string `json:"arch"`
	Layers             int    `json:"layers"`
	EmbedDim           int    `json:"embed_dim"`
	FFNEmbedDim        int    `json:"ffn_embed_dim"`
	AttentionHeads     int    `json:"attention_heads"`
	MaxPositions       int    `json:"max_positions"`
	EmbLayerNormBefore bool   `json:"emb_layer_norm_before"`
	FinalBias          bool   `json:"final_bias"`
	EmbedPositionsMSA  bool   `json:"embed_positions_msa"`
}

// Errors returned by ParseConfig.
var (
	ErrInvalidConfig = errors.New("invalid model config")
)

// ParseConfig decodes cfg into a Config and validates it. Unknown args are
// ignored.
func ParseConfig(cfg checkpoint.Config) (Config, error) {
	c := Config{MaxPositions: DefaultMaxPositions}

	data, err := json.Marshal(cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to encode args: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks that the dimensions describe a buildable model.
func (c Config) Validate() error {
	switch {
	case c.Layers <= 0:
		return fmt.Errorf("%w: layers must be positive, got %d", ErrInvalidConfig, c.Layers)
	case c.EmbedDim <= 0:
		return fmt.Errorf("%w: embed_dim must be positive, got %d", ErrInvalidConfig, c.EmbedDim)
	case c.FFNEmbedDim <= 0:
		return fmt.Errorf("%w: ffn_embed_dim must be positive, got %d", ErrInvalidConfig, c.FFNEmbedDim)
	case c.AttentionHeads <= 0:
		return fmt.Errorf("%w: attention_heads must be positive, got %d", ErrInvalidConfig, c.AttentionHeads)
	case c.EmbedDim%c.AttentionHeads != 0:
		return fmt.Errorf("%w: embed_dim %d not divisible by attention_heads %d",
			ErrInvalidConfig, c.EmbedDim, c.AttentionHeads)
	case c.MaxPositions <= 0:
		return fmt.Errorf("%w: max_positions must be positive, got %d", ErrInvalidConfig, c.MaxPositions)
	}
	return nil
}
