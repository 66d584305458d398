package model

import (
	"github.com/erik-whiting/RNA-FM/internal/nn"
	"github.com/erik-whiting/RNA-FM/internal/tensor"
)

const layerNormEps = 1e-5

// attention builds q/k/v/out projections, optionally with the learned
// key/value biases of ESM-1.
func attention(d int, biasKV bool) *nn.Container {
	c := nn.NewContainer().
		Add("k_proj", nn.NewLinear(d, d, true)).
		Add("v_proj", nn.NewLinear(d, d, true)).
		Add("q_proj", nn.NewLinear(d, d, true)).
		Add("out_proj", nn.NewLinear(d, d, true))
	if biasKV {
		c.AddParameter("bias_k", nn.NewParameter("bias_k", tensor.Shape{1, 1, d}, tensor.Float32, nil))
		c.AddParameter("bias_v", nn.NewParameter("bias_v", tensor.Shape{1, 1, d}, tensor.Float32, nil))
	}
	return c
}

// transformerLayer is the pre-norm block of ProteinBertModel.
func transformerLayer(d, ffn int, biasKV bool) *nn.Container {
	return nn.NewContainer().
		Add("self_attn", attention(d, biasKV)).
		Add("self_attn_layer_norm", nn.NewLayerNorm(d, layerNormEps)).
		Add("fc1", nn.NewLinear(d, ffn, true)).
		Add("fc2", nn.NewLinear(ffn, d, true)).
		Add("final_layer_norm", nn.NewLayerNorm(d, layerNormEps))
}

// residualBlock wraps layer with the layer norm applied before it.
func residualBlock(layer nn.Module, d int) *nn.Container {
	return nn.NewContainer().
		Add("layer", layer).
		Add("layer_norm", nn.NewLayerNorm(d, layerNormEps))
}

// axialLayer is one MSA Transformer block: row attention, column attention
// and a feed-forward network, each in a normalized residual block.
func axialLayer(d, ffn int) *nn.Container {
	ff := nn.NewContainer().
		Add("fc1", nn.NewLinear(d, ffn, true)).
		Add("fc2", nn.NewLinear(ffn, d, true))
	return nn.NewContainer().
		Add("row_self_attention", residualBlock(attention(d, false), d)).
		Add("column_self_attention", residualBlock(attention(d, false), d)).
		Add("feed_forward_layer", residualBlock(ff, d))
}

// contactHead is the logistic regression over stacked attention maps.
func contactHead(layers, heads int) *nn.Container {
	return nn.NewContainer().
		Add("regression", nn.NewLinear(layers*heads, 1, true))
}

// lmHead is the RoBERTa masked-language-model head. Its weight is tied to
// embed_tokens in training but stored under its own name.
func lmHead(d, vocab int) *nn.Container {
	return nn.NewContainer().
		Add("dense", nn.NewLinear(d, d, true)).
		Add("layer_norm", nn.NewLayerNorm(d, layerNormEps)).
		AddParameter("weight", nn.NewParameter("weight", tensor.Shape{vocab, d}, tensor.Float32, nil)).
		AddParameter("bias", nn.NewParameter("bias", tensor.Shape{vocab}, tensor.Float32, nil))
}

// learnedPositions reserves padding_idx+1 extra rows, as positions are
// counted from padding_idx+1.
func learnedPositions(maxPositions, d, paddingIdx int) *nn.Embedding {
	return nn.NewEmbedding(maxPositions+paddingIdx+1, d, paddingIdx)
}
