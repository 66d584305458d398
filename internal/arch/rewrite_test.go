package arch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erik-whiting/RNA-FM/internal/checkpoint"
	"github.com/erik-whiting/RNA-FM/internal/tensor"
)

func TestStripEncoderParam(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"encoder.sentence_encoder.foo.weight", "foo.weight"},
		{"encoder.sentence_encoder.layers.3.fc1.bias", "layers.3.fc1.bias"},
		{"encoder.lm_head.weight", "lm_head.weight"},
		{"sentence_encoder.embed_tokens.weight", "embed_tokens.weight"},
		{"plain.weight", "plain.weight"},
		{"layers.0.encoder.weight", "layers.0.encoder.weight"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StripEncoderParam(tt.in))
		})
	}
}

func TestArgRewrites(t *testing.T) {
	assert.Equal(t, "embed_dim", StripEncoderArg("encoder_embed_dim"))
	assert.Equal(t, "arch", StripEncoderArg("arch"))
	assert.Equal(t, "layers", StripDecoderArg("decoder_layers"))
	assert.Equal(t, "max_positions", StripDecoderArg("max_positions"))
	assert.Equal(t, "layers.0.fc1.weight", StripDecoderParam("decoder.layers.0.fc1.weight"))
	assert.Equal(t, "embed_out", StripDecoderParam("embed_out"))
}

func TestSwapRowColumn(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"layer.rows_attn.weight", "layer.columns_attn.weight"},
		{"layer.columns_attn.weight", "layer.rows_attn.weight"},
		{"layers.0.row_self_attention.layer.q_proj.weight", "layers.0.column_self_attention.layer.q_proj.weight"},
		{"embed_tokens.weight", "embed_tokens.weight"},
		// both present: only the row -> column direction applies
		{"row_to_column", "column_to_column"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SwapRowColumn(tt.in))
		})
	}
}

func TestMSAParam(t *testing.T) {
	assert.Equal(t,
		"layers.1.column_self_attention.layer_norm.bias",
		MSAParam("encoder.sentence_encoder.layers.1.row_self_attention.layer_norm.bias"))
	assert.Equal(t, "foo.weight", MSAParam("encoder.sentence_encoder.foo.weight"))
}

func TestRewritesAreDeterministic(t *testing.T) {
	keys := []string{
		"encoder.sentence_encoder.layers.0.row_self_attention.layer.k_proj.weight",
		"decoder.embed_out",
		"encoder_attention_heads",
		"plain",
	}
	for _, id := range DefaultRegistry().IDs() {
		d, err := DefaultRegistry().Resolve(id)
		require.NoError(t, err)
		for _, k := range keys {
			assert.Equal(t, d.ParamRewrite(k), d.ParamRewrite(k), "%s param %s", id, k)
			assert.Equal(t, d.ConfigRewrite(k), d.ConfigRewrite(k), "%s config %s", id, k)
		}
	}
}

func TestRewriteParams(t *testing.T) {
	a, _ := tensor.NewRaw(tensor.Shape{1}, tensor.Float32)
	b, _ := tensor.NewRaw(tensor.Shape{2}, tensor.Float32)
	sd := checkpoint.StateDict{
		"encoder.sentence_encoder.x": a,
		"encoder.lm_head.bias":       b,
	}

	out := RewriteParams(sd, StripEncoderParam)

	assert.Equal(t, []string{"lm_head.bias", "x"}, out.Names())
	assert.Same(t, a, out["x"])
	assert.Len(t, sd, 2)
	assert.Contains(t, sd, "encoder.sentence_encoder.x", "input must not be modified")
}

func TestRewriteParams_CollisionIsLastWriteWins(t *testing.T) {
	first, _ := tensor.NewRaw(tensor.Shape{1}, tensor.Float32)
	second, _ := tensor.NewRaw(tensor.Shape{1}, tensor.Float32)
	sd := checkpoint.StateDict{
		"encoder.sentence_encoder.w": first,
		"sentence_encoder.w":         second,
	}

	out := RewriteParams(sd, StripEncoderParam)

	require.Len(t, out, 1)
	assert.Same(t, second, out["w"], "sentence_encoder.w sorts last")
}

func TestRewriteConfig(t *testing.T) {
	cfg := checkpoint.Config{
		"arch":                    "roberta_large",
		"encoder_layers":          12,
		"encoder_attention_heads": 20,
	}

	out := RewriteConfig(cfg, StripEncoderArg)

	assert.Equal(t, checkpoint.Config{
		"arch":            "roberta_large",
		"layers":          12,
		"attention_heads": 20,
	}, out)
	assert.Contains(t, cfg, "encoder_layers")
}

func TestRewriteRecord(t *testing.T) {
	row, _ := tensor.NewRaw(tensor.Shape{1}, tensor.Float32)
	col, _ := tensor.NewRaw(tensor.Shape{1}, tensor.Float32)
	msa, err := DefaultRegistry().Resolve(MSATransformer)
	require.NoError(t, err)

	legacy := checkpoint.NewRecord(
		checkpoint.Config{"arch": "msa_transformer", "encoder_layers": 1},
		checkpoint.StateDict{
			"encoder.sentence_encoder.layers.0.row_self_attention.w":    row,
			"encoder.sentence_encoder.layers.0.column_self_attention.w": col,
		})
	out := RewriteRecord(legacy, msa)
	assert.Equal(t, checkpoint.Config{"arch": "msa_transformer", "layers": 1}, out.Config)
	assert.Same(t, row, out.Params["layers.0.column_self_attention.w"])
	assert.Same(t, col, out.Params["layers.0.row_self_attention.w"])

	canonical := checkpoint.NewRecord(
		checkpoint.Config{"arch": "msa_transformer", "layers": 1, checkpoint.CanonicalKey: true},
		checkpoint.StateDict{
			"layers.0.row_self_attention.w":    row,
			"layers.0.column_self_attention.w": col,
		})
	out = RewriteRecord(canonical, msa)
	assert.Same(t, row, out.Params["layers.0.row_self_attention.w"], "canonical names are kept")
	assert.Same(t, col, out.Params["layers.0.column_self_attention.w"])
	assert.Equal(t, canonical.Config, out.Config)

	assert.Nil(t, RewriteRecord(nil, msa))
}
