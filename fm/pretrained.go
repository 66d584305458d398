// Copyright 2025 RNA-FM Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package fm

import "context"

// Hub names of the pretrained checkpoints.
const (
	ESM1T34670MUR50S    = "esm1_t34_670M_UR50S"
	ESM1T34670MUR50D    = "esm1_t34_670M_UR50D"
	ESM1T34670MUR100    = "esm1_t34_670M_UR100"
	ESM1T1285MUR50S     = "esm1_t12_85M_UR50S"
	ESM1T643MUR50S      = "esm1_t6_43M_UR50S"
	ESM1bT33650MUR50S   = "esm1b_t33_650M_UR50S"
	ESMMSA1T12100MUR50S = "esm_msa1_t12_100M_UR50S"
)

// RNAFMPath is the default location of the RNA-FM checkpoint.
const RNAFMPath = "./pretrained/RNA-FM_pretrained.safetensors"

// ESM1_t34_670M_UR50S loads the 34 layer ESM-1 model trained on UniRef50 (sparse).
//
//nolint:revive // names follow the published checkpoint names
func ESM1_t34_670M_UR50S(ctx context.Context, opts ...Option) (*Result, error) {
	return LoadHub(ctx, ESM1T34670MUR50S, opts...)
}

// ESM1_t34_670M_UR50D loads the 34 layer ESM-1 model trained on UniRef50 (dense).
//
//nolint:revive // names follow the published checkpoint names
func ESM1_t34_670M_UR50D(ctx context.Context, opts ...Option) (*Result, error) {
	return LoadHub(ctx, ESM1T34670MUR50D, opts...)
}

// ESM1_t34_670M_UR100 loads the 34 layer ESM-1 model trained on UniRef100.
//
//nolint:revive // names follow the published checkpoint names
func ESM1_t34_670M_UR100(ctx context.Context, opts ...Option) (*Result, error) {
	return LoadHub(ctx, ESM1T34670MUR100, opts...)
}

// ESM1_t12_85M_UR50S loads the 12 layer ESM-1 model.
//
//nolint:revive // names follow the published checkpoint names
func ESM1_t12_85M_UR50S(ctx context.Context, opts ...Option) (*Result, error) {
	return LoadHub(ctx, ESM1T1285MUR50S, opts...)
}

// ESM1_t6_43M_UR50S loads the 6 layer ESM-1 model.
//
//nolint:revive // names follow the published checkpoint names
func ESM1_t6_43M_UR50S(ctx context.Context, opts ...Option) (*Result, error) {
	return LoadHub(ctx, ESM1T643MUR50S, opts...)
}

// ESM1b_t33_650M_UR50S loads the 33 layer ESM-1b model.
//
//nolint:revive // names follow the published checkpoint names
func ESM1b_t33_650M_UR50S(ctx context.Context, opts ...Option) (*Result, error) {
	return LoadHub(ctx, ESM1bT33650MUR50S, opts...)
}

// ESM_MSA1_t12_100M_UR50S loads the MSA Transformer.
//
//nolint:revive // names follow the published checkpoint names
func ESM_MSA1_t12_100M_UR50S(ctx context.Context, opts ...Option) (*Result, error) {
	return LoadHub(ctx, ESMMSA1T12100MUR50S, opts...)
}

// RNAFM loads the RNA-FM checkpoint from RNAFMPath with the RNA alphabet.
// Later options override the theme.
func RNAFM(opts ...Option) (*Result, error) {
	return LoadLocal(RNAFMPath, append([]Option{WithTheme("rna")}, opts...)...)
}
