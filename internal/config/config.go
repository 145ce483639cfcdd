// Copyright 2026 The Tidecast Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package config builds models from declarative run configuration files
// (TOML or YAML).
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tidecast-ml/tidecast/internal/engine"
	"github.com/tidecast-ml/tidecast/internal/model"
)

// Settings mirrors the run configuration file.
type Settings struct {
	Model struct {
		Metric           string  // name of the value column
		Timestamp        string  // name of the time column
		SamplingPeriod   string  `mapstructure:"sampling_period"`   // observation spacing, Go duration string
		Likelihood       string  // observation likelihood label
		NChangepoints    int     `mapstructure:"n_changepoints"`    // trend changepoints
		ChangepointRange float64 `mapstructure:"changepoint_range"` // history fraction holding changepoints
		SeasonalityMode  string  `mapstructure:"seasonality_mode"`  // additive seasonal composition
	}

	Seasonalities []SeasonalitySettings // seasonal components, in file order

	Fit struct {
		Algorithm    string  // "map" or "laplace"
		Iterations   int     // maximum optimizer steps
		LearningRate float64 `mapstructure:"learning_rate"` // optimizer learning rate
		Tolerance    float64 // convergence threshold on the gradient norm
		Draws        int     // posterior draws for "laplace"
		Seed         int64   // RNG seed for posterior draws
	}

	Data struct {
		Path       string // CSV file with the training series
		TimeLayout string `mapstructure:"time_layout"` // Go time layout of the time column
	}

	sourcePath string
}

// Load reads a configuration file. The format is inferred from the file
// extension (.toml, .yaml, .yml).
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("model.metric", "y")
	v.SetDefault("model.timestamp", "ds")
	v.SetDefault("model.likelihood", "normal")
	v.SetDefault("model.n_changepoints", 10)
	v.SetDefault("model.changepoint_range", 0.8)
	v.SetDefault("model.seasonality_mode", "additive")
	v.SetDefault("fit.algorithm", engine.AlgorithmMAP)
	v.SetDefault("data.time_layout", time.RFC3339)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	s.sourcePath = path
	return &s, nil
}

// BuildModel constructs the model the settings describe. The source path
// and format ride along as dynamic extras on the model.
func (s *Settings) BuildModel() (*model.Model, error) {
	var samplingPeriod time.Duration
	if s.Model.SamplingPeriod != "" {
		var err error
		samplingPeriod, err = time.ParseDuration(s.Model.SamplingPeriod)
		if err != nil {
			return nil, fmt.Errorf("model.sampling_period: %w", err)
		}
	}

	m := model.New(model.Config{
		Metric:           s.Model.Metric,
		Timestamp:        s.Model.Timestamp,
		SamplingPeriod:   samplingPeriod,
		Likelihood:       s.Model.Likelihood,
		NChangepoints:    s.Model.NChangepoints,
		ChangepointRange: s.Model.ChangepointRange,
		SeasonalityMode:  s.Model.SeasonalityMode,
	})

	for _, block := range s.Seasonalities {
		season, err := block.build()
		if err != nil {
			return nil, err
		}
		if err := m.AddSeasonality(season); err != nil {
			return nil, err
		}
	}

	if s.sourcePath != "" {
		m.SetExtra("config_path", s.sourcePath)
		m.SetExtra("config_format", strings.TrimPrefix(filepath.Ext(s.sourcePath), "."))
	}
	return m, nil
}

// EngineOptions translates the fit block into engine options.
func (s *Settings) EngineOptions(logger *zap.Logger) engine.Options {
	return engine.Options{
		Algorithm:    s.Fit.Algorithm,
		Iterations:   s.Fit.Iterations,
		LearningRate: s.Fit.LearningRate,
		Tolerance:    s.Fit.Tolerance,
		Draws:        s.Fit.Draws,
		Seed:         s.Fit.Seed,
		Logger:       logger,
	}
}

// SeasonalitySettings mirrors one seasonality block.
type SeasonalitySettings struct {
	Name         string
	Period       string  // Go duration string, e.g. "168h" for weekly
	FourierOrder int     `mapstructure:"fourier_order"`
	PriorScale   float64 `mapstructure:"prior_scale"`
	Mode         string
}

func (b SeasonalitySettings) build() (*model.Seasonality, error) {
	period, err := time.ParseDuration(b.Period)
	if err != nil {
		return nil, fmt.Errorf("seasonality %q: period: %w", b.Name, err)
	}
	return &model.Seasonality{
		Name:         b.Name,
		Period:       period,
		FourierOrder: b.FourierOrder,
		PriorScale:   b.PriorScale,
		Mode:         b.Mode,
	}, nil
}
