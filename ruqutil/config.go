/*
Copyright © 2024 the RUQ authors.
This file is part of RUQ.

RUQ is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

RUQ is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with RUQ.  If not, see <http://www.gnu.org/licenses/>.
*/

package ruqutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ruq"
	"github.com/spatialmodel/ruq/fieldstore"
	"github.com/spatialmodel/ruq/internal/hash"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

// StudyConfig unmarshals a viper configuration into a study configuration
// and checks that it is valid.
func StudyConfig(cfg *viper.Viper) (ruq.StudyConfig, error) {
	wells, err := observationWells(cfg.Get("ObservationWells"))
	if err != nil {
		return ruq.StudyConfig{}, fmt.Errorf("ruq: parsing ObservationWells: %v", err)
	}
	c := ruq.StudyConfig{
		NRealization: cfg.GetInt("NRealization"),
		Kg:           cfg.GetFloat64("Kg"),
		Lx:           cfg.GetInt("Lx"),
		Ly:           cfg.GetInt("Ly"),
		LambdaX:      cfg.GetInt("LambdaX"),
		LambdaY:      cfg.GetInt("LambdaY"),
		Source:       region(cfg, "Source"),
		Target:       region(cfg, "Target"),
		MCL:          cfg.GetFloat64("MCL"),
		Wells:        wells,
		Dt:           cfg.GetFloat64("Dt"),
		Bins:         cfg.GetInt("Bins"),
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("ruq: parsing study configuration: %w", err)
	}
	return c, nil
}

func region(cfg *viper.Viper, name string) ruq.Region {
	return ruq.Region{
		XL: cfg.GetInt(name + ".XL"),
		XU: cfg.GetInt(name + ".XU"),
		YL: cfg.GetInt(name + ".YL"),
		YU: cfg.GetInt(name + ".YU"),
	}
}

// observationWells parses well locations, which are either a list of
// [x, y] pairs from a configuration file or the equivalent JSON string
// from a command-line argument or environment variable.
func observationWells(v interface{}) ([]ruq.Well, error) {
	var pairs [][]int
	switch v := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		d := json.NewDecoder(bytes.NewBufferString(v))
		if err := d.Decode(&pairs); err != nil {
			return nil, err
		}
	case [][]int:
		pairs = v
	case []interface{}:
		for _, p := range v {
			xy, err := cast.ToIntSliceE(p)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, xy)
		}
	default:
		return nil, fmt.Errorf("invalid type %T", v)
	}
	var wells []ruq.Well
	for i, p := range pairs {
		if len(p) != 2 {
			return nil, fmt.Errorf("well %d has %d coordinates; it should have 2", i, len(p))
		}
		wells = append(wells, ruq.Well{X: p[0], Y: p[1]})
	}
	return wells, nil
}

// TrendLines returns the trend line expressions in cfg.
func TrendLines(cfg *viper.Viper) ruq.TrendLines {
	return ruq.TrendLines{
		Risk:       cfg.GetString("Trend.Risk"),
		Resilience: cfg.GetString("Trend.Resilience"),
	}
}

// newLogger returns a logger that writes to w and, if logFile is not
// empty, to logFile. The returned function closes the log file.
func newLogger(w io.Writer, logFile, level string) (*logrus.Logger, func() error, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("ruq: LogLevel: %v", err)
	}
	log := logrus.New()
	log.Level = lvl
	log.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableSorting:  true,
	}
	log.Out = w
	if logFile == "" {
		return log, func() error { return nil }, nil
	}
	f, err := os.Create(logFile)
	if err != nil {
		return nil, nil, fmt.Errorf("ruq: problem creating log file: %v", err)
	}
	log.Out = io.MultiWriter(w, f)
	return log, f.Close, nil
}

// session holds the resources that commands working on a study share.
type session struct {
	cfg      ruq.StudyConfig
	log      *logrus.Logger
	store    *fieldstore.Store
	p        *ruq.Postprocessor
	closeLog func() error
}

// openSession reads the study configuration and opens the logger and
// field store that it specifies.
func openSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := StudyConfig(Cfg)
	if err != nil {
		return nil, err
	}
	log, closeLog, err := newLogger(cmd.OutOrStderr(),
		os.ExpandEnv(Cfg.GetString("LogFile")), Cfg.GetString("LogLevel"))
	if err != nil {
		return nil, err
	}
	location := os.ExpandEnv(Cfg.GetString("Store"))
	store, err := fieldstore.Open(ctx, location)
	if err != nil {
		closeLog()
		return nil, err
	}
	store.Provenance = hash.Hash(cfg)
	store.Log = log
	log.WithFields(logrus.Fields{
		"store":      location,
		"provenance": store.Provenance,
		"command":    cmd.Name(),
	}).Debug("opened session")
	return &session{
		cfg:      cfg,
		log:      log,
		store:    store,
		p:        &ruq.Postprocessor{Store: store, Log: log},
		closeLog: closeLog,
	}, nil
}

// Close closes the field store and the log file.
func (s *session) Close() error {
	err := s.store.Close()
	if err2 := s.closeLog(); err == nil {
		err = err2
	}
	return err
}
