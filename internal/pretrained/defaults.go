package pretrained

import (
	"github.com/erik-whiting/RNA-FM/internal/arch"
	"github.com/erik-whiting/RNA-FM/internal/checkpoint"
	"github.com/erik-whiting/RNA-FM/internal/model"
	"github.com/erik-whiting/RNA-FM/internal/tokenizer"
)

// ModelBuilderFunc adapts a function to ModelBuilder.
type ModelBuilderFunc func(family arch.Family, cfg checkpoint.Config, vocab Vocabulary) (ModelHandle, error)

// Build calls f.
func (f ModelBuilderFunc) Build(family arch.Family, cfg checkpoint.Config, vocab Vocabulary) (ModelHandle, error) {
	return f(family, cfg, vocab)
}

// VocabularyBuilderFunc adapts a function to VocabularyBuilder.
type VocabularyBuilderFunc func(archID, theme string) (Vocabulary, error)

// Build calls f.
func (f VocabularyBuilderFunc) Build(archID, theme string) (Vocabulary, error) {
	return f(archID, theme)
}

// DefaultModelBuilder builds the skeletons of package model.
func DefaultModelBuilder() ModelBuilder {
	return ModelBuilderFunc(func(family arch.Family, cfg checkpoint.Config, vocab Vocabulary) (ModelHandle, error) {
		m, err := model.New(family, cfg, vocab)
		if err != nil {
			return nil, err
		}
		return m, nil
	})
}

// DefaultVocabularyBuilder builds tokenizer alphabets.
func DefaultVocabularyBuilder() VocabularyBuilder {
	return VocabularyBuilderFunc(func(archID, theme string) (Vocabulary, error) {
		a, err := tokenizer.FromArchitecture(archID, theme)
		if err != nil {
			return nil, err
		}
		return a, nil
	})
}
