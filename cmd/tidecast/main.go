// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package main provides the tidecast CLI: fit a model from a config
// file and a CSV history, predict from a saved model, and verify that
// a saved model round-trips.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tidecast-ml/tidecast/forecast"
)

const version = "v0.1.0-dev"

var verbose bool

func main() {
	root := &cobra.Command{
		Use:           "tidecast",
		Short:         "Additive time-series forecasting",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(fitCommand(), predictCommand(), verifyCommand(), versionCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tidecast: %v\n", err)
		os.Exit(1)
	}
}

func logger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func fitCommand() *cobra.Command {
	var configPath, outputPath string

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit a model from a config file and its CSV history",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, settings, err := forecast.FromConfig(configPath)
			if err != nil {
				return err
			}
			if settings.Data.Path == "" {
				return fmt.Errorf("config %s: data.path is required", configPath)
			}

			df, err := forecast.ReadCSV(settings.Data.Path, m.Timestamp, m.Metric, settings.Data.TimeLayout)
			if err != nil {
				return err
			}

			log := logger()
			defer func() { _ = log.Sync() }()

			if err := m.Fit(df, settings.EngineOptions(log)); err != nil {
				return err
			}
			if err := forecast.Save(m, outputPath); err != nil {
				return err
			}
			fmt.Printf("fitted %s on %d rows, saved to %s\n", m.Backend.Kind(), df.NumRows(), outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "tidecast.toml", "Path to model config file")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "model.json", "Path to write the fitted model (.gz compresses)")
	return cmd
}

func predictCommand() *cobra.Command {
	var modelPath string
	var horizon int

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Forecast future values from a saved model",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := forecast.Load(modelPath)
			if err != nil {
				return err
			}
			result, err := m.Predict(horizon)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "model.json", "Path to a saved model")
	cmd.Flags().IntVarP(&horizon, "horizon", "n", 30, "Number of future periods to forecast")
	return cmd
}

func verifyCommand() *cobra.Command {
	var modelPath string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that a saved model round-trips without loss",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := forecast.Load(modelPath)
			if err != nil {
				return err
			}
			if err := forecast.Verify(m); err != nil {
				return err
			}

			data, err := forecast.ToJSON(m)
			if err != nil {
				return err
			}
			restored, err := forecast.FromJSON(data)
			if err != nil {
				return err
			}
			if err := forecast.Equivalent(m, restored); err != nil {
				return err
			}
			fmt.Printf("%s: schema complete, round trip lossless\n", modelPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "model.json", "Path to a saved model")
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tidecast %s\n", version)
		},
	}
}
