package arch

import (
	"sort"
	"strings"

	"github.com/erik-whiting/RNA-FM/internal/checkpoint"
)

// RewriteFunc maps a legacy configuration key or parameter name to its
// canonical form. Implementations are pure and total.
type RewriteFunc func(string) string

// Prefixes stripped by the legacy conventions.
const (
	encoderArgPrefix      = "encoder_"
	encoderParamPrefix    = "encoder."
	sentenceEncoderPrefix = "sentence_encoder."
	decoderArgPrefix      = "decoder_"
	decoderParamPrefix    = "decoder."
)

// Identity returns the key unchanged.
func Identity(s string) string {
	return s
}

// StripEncoderArg maps fairseq encoder args to model config fields:
//   - encoder_layers -> layers
//   - encoder_embed_dim -> embed_dim
func StripEncoderArg(s string) string {
	return strings.TrimPrefix(s, encoderArgPrefix)
}

// StripEncoderParam maps fairseq encoder parameter names to canonical names:
//   - encoder.sentence_encoder.layers.0.fc1.weight -> layers.0.fc1.weight
//   - encoder.lm_head.bias -> lm_head.bias
func StripEncoderParam(s string) string {
	s = strings.TrimPrefix(s, encoderParamPrefix)
	return strings.TrimPrefix(s, sentenceEncoderPrefix)
}

// StripDecoderArg maps decoder_layers -> layers and the like.
func StripDecoderArg(s string) string {
	return strings.TrimPrefix(s, decoderArgPrefix)
}

// StripDecoderParam maps decoder.layers.0.fc1.weight -> layers.0.fc1.weight.
func StripDecoderParam(s string) string {
	return strings.TrimPrefix(s, decoderParamPrefix)
}

// SwapRowColumn exchanges the row and column attention names of legacy MSA
// checkpoints. A key containing "row" has every "row" replaced by "column";
// otherwise every "column" is replaced by "row". Keys containing both are
// only ever rewritten in the row -> column direction.
func SwapRowColumn(s string) string {
	if strings.Contains(s, "row") {
		return strings.ReplaceAll(s, "row", "column")
	}
	return strings.ReplaceAll(s, "column", "row")
}

// MSAParam is the parameter rule of msa_transformer checkpoints.
var MSAParam = Compose(SwapRowColumn, StripEncoderParam)

// Compose returns a RewriteFunc applying fns from left to right.
func Compose(fns ...RewriteFunc) RewriteFunc {
	return func(s string) string {
		for _, fn := range fns {
			s = fn(s)
		}
		return s
	}
}

// RewriteConfig returns a new configuration with every key passed through fn.
// When two keys collide after rewriting, the one whose original key sorts
// last wins.
func RewriteConfig(cfg checkpoint.Config, fn RewriteFunc) checkpoint.Config {
	out := make(checkpoint.Config, len(cfg))
	for _, key := range cfg.Keys() {
		out[fn(key)] = cfg[key]
	}
	return out
}

// RewriteParams returns a new state dict with every name passed through fn.
// Collisions within sd are resolved like RewriteConfig. Tensors are shared,
// not copied.
func RewriteParams(sd checkpoint.StateDict, fn RewriteFunc) checkpoint.StateDict {
	names := make([]string, 0, len(sd))
	for name := range sd {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(checkpoint.StateDict, len(sd))
	for _, name := range names {
		out[fn(name)] = sd[name]
	}
	return out
}

// RewriteRecord returns rec with its configuration and parameters rewritten
// by the rules of d. A record marked canonical is rewritten with Identity.
// A nil record yields nil.
func RewriteRecord(rec *checkpoint.Record, d Descriptor) *checkpoint.Record {
	if rec == nil {
		return nil
	}
	configFn, paramFn := d.ConfigRewrite, d.ParamRewrite
	if rec.Canonical() {
		configFn, paramFn = Identity, Identity
	}
	return checkpoint.NewRecord(RewriteConfig(rec.Config, configFn), RewriteParams(rec.Params, paramFn))
}
