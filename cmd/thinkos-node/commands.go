package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/aifa"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/cmps"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/config"
)

func newConfigCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Imprime la configuración efectiva (defaults + YAML + env) en YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := cfg().Marshal()
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(b)
			return err
		},
	}
}

func newAIFACmd(cfg func() *config.Config) *cobra.Command {
	aifaCmd := &cobra.Command{
		Use:   "aifa",
		Short: "Operaciones contra el servicio AIFA",
	}
	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "GET /health contra AIFA",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			client := aifa.New(aifa.Options{BaseURL: c.AIFA.URL, Timeout: c.AIFA.Timeout})
			ctx, cancel := context.WithTimeout(cmd.Context(), c.AIFA.Timeout)
			defer cancel()
			if err := client.Health(ctx); err != nil {
				return fmt.Errorf("ping fallo: %w", err)
			}
			fmt.Println("ok")
			return nil
		},
	}
	aifaCmd.AddCommand(pingCmd)
	return aifaCmd
}

func newCompositeCmd(cfg func() *config.Config) *cobra.Command {
	w := cmps.StaticWeights
	cmd := &cobra.Command{
		Use:   "composite",
		Short: "Calcula el composite CMPS con los scores configurados y los pesos dados",
		RunE: func(cmd *cobra.Command, args []string) error {
			score := cmps.Composite(cfg().Scores, w)
			if !cmps.Valid(score) {
				return fmt.Errorf("composite no finito: %v", score)
			}
			fmt.Printf("%.6f\n", score)
			return nil
		},
	}
	cmd.Flags().Float64Var(&w.W0, "w0", w.W0, "peso continuity")
	cmd.Flags().Float64Var(&w.W1, "w1", w.W1, "peso cognition")
	cmd.Flags().Float64Var(&w.W2, "w2", w.W2, "peso synergy")
	cmd.Flags().Float64Var(&w.W3, "w3", w.W3, "peso adaptation")
	cmd.Flags().Float64Var(&w.W4, "w4", w.W4, "peso integrity")
	return cmd
}
