// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sassoftware/viya-pdf-press/logger"
)

// Mode controls how a batch reacts to a file that cannot be compressed.
type Mode string

const (
	Strict     Mode = "strict"
	BestEffort Mode = "best-effort"
)

type Config struct {
	Quality           Preset        `validate:"oneof=maximum balanced gentle"`
	QualityOverride   float64       `validate:"gte=0,lte=1"`
	MaxConcurrentPDFs int           `validate:"min=1,max=10"`
	FileTimeout       time.Duration `validate:"required"`
	Mode              Mode          `validate:"oneof=strict best-effort"`
	MinStreamSize     int           `validate:"min=1"`
	DictWindow        int           `validate:"min=64,max=4096"`
	MinImageDimension int           `validate:"min=1"`
	Producer          string        `validate:"max=256"`
	Creator           string        `validate:"max=256"`
	DownloadTTL       time.Duration `validate:"required"`
	DebugOn           bool
	Logger            logger.LogFunc
}

func NewDefaultConfig() *Config {
	return &Config{
		Quality:           Balanced,
		MaxConcurrentPDFs: 5,
		FileTimeout:       2 * time.Minute,
		Mode:              BestEffort,
		MinStreamSize:     256,
		DictWindow:        400,
		MinImageDimension: 8,
		Producer:          "viya-pdf-press",
		Creator:           "viya-pdf-press",
		DownloadTTL:       5 * time.Minute,
		DebugOn:           false,
	}
}

func (cfg *Config) Validate() error {
	logger.Debug("Validating Config Object")
	validate := validator.New()
	return validate.Struct(cfg)
}

// JPEGQuality returns the quality factor in (0, 1] used for re-encoding.
// A non-zero QualityOverride wins over the preset.
func (cfg *Config) JPEGQuality() float64 {
	if cfg.QualityOverride > 0 {
		return cfg.QualityOverride
	}
	return cfg.Quality.Factor()
}
