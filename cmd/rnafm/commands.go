package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erik-whiting/RNA-FM/fm"
	"github.com/erik-whiting/RNA-FM/internal/arch"
	"github.com/erik-whiting/RNA-FM/internal/loader"
)

// loadReport is the JSON form of a loaded model.
type loadReport struct {
	Model      string   `json:"model"`
	Arch       string   `json:"arch"`
	Version    string   `json:"version"`
	Parameters int      `json:"parameters"`
	Alphabet   int      `json:"alphabet_size"`
	MaskIndex  int      `json:"mask_index"`
	Warnings   []string `json:"warnings,omitempty"`
}

func newLoadReport(res *fm.Result) loadReport {
	r := loadReport{
		Model:      res.Model.Name(),
		Arch:       res.Arch,
		Version:    res.Model.Version(),
		Parameters: res.Model.NumParameters(),
		Alphabet:   res.Alphabet.Size(),
		MaskIndex:  res.Alphabet.MaskIndex(),
	}
	for _, w := range res.Warnings {
		r.Warnings = append(r.Warnings, w.Error())
	}
	return r
}

func (a *app) loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <name|path>",
		Short: "Load a checkpoint and report the model it builds",
		Long: `Load a checkpoint from a .safetensors/.born file or from the hub,
rewrite its legacy keys, validate it against the model schema and assign
the parameters. Fails when the checkpoint does not match the model.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := fm.LoadModelAndAlphabet(cmd.Context(), args[0], a.options()...)
			if err != nil {
				return err
			}

			if a.cfg.Output.Format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(newLoadReport(res))
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Summary())
			return err
		},
	}
}

func (a *app) convertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <name|path> <out>",
		Short: "Write a checkpoint with canonical parameter names",
		Long: `Load a checkpoint, then write its parameters under canonical names
to <out>. The output format follows the extension (.safetensors or .born).
Contact regression weights are included when they were loaded. The output
keeps the architecture id and is marked canonical, so loading it applies no
legacy renaming.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			primary, regression, err := a.fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			res, err := fm.LoadRecords(primary, regression, a.options()...)
			if err != nil {
				return err
			}

			params := fm.StateDict{}
			for name, p := range res.Model.NamedParameters() {
				if !p.Assigned() {
					continue
				}
				raw, err := p.Tensor()
				if err != nil {
					return err
				}
				params[name] = raw
			}

			cfg := maps.Clone(res.Config)
			cfg[fm.CanonicalKey] = true
			if err := loader.WriteCheckpoint(args[1], fm.NewRecord(cfg, params)); err != nil {
				return err
			}
			a.logger.Info("wrote checkpoint",
				zap.String("path", args[1]),
				zap.String("model", res.Model.Name()),
				zap.Int("params", len(params)))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d parameters to %s\n", len(params), args[1])
			return err
		},
	}
}

func (a *app) archsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archs",
		Short: "List the known checkpoint architectures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ARCH\tMODEL\tTHEME\tZERO MASK")
			for _, id := range fm.Architectures() {
				d, err := arch.Resolve(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", d.ID, d.Family, d.Theme, d.ZeroMaskEmbedding)
			}
			return tw.Flush()
		},
	}
}
