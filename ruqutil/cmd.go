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

// Package ruqutil contains the command-line interface for RUQ.
package ruqutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/ruq"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to RUQ.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Store",
			usage: `
              Store specifies the location where imported fields and post-processing
              results are saved. It can be a local directory or a blob storage URL
              in the format 'provider://bucket/prefix', where provider is 'file',
              'gs', or 's3'. It can include environment variables.`,
			defaultVal: "ruqdata",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile specifies the path to a file where log messages are written
              in addition to standard error. If it is empty, no log file is written.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel specifies the minimum severity of logged messages:
              debug, info, warning, or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "NRealization",
			usage: `
              NRealization is the number of realizations in the ensemble.`,
			shorthand:  "n",
			defaultVal: 100,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Kg",
			usage: `
              Kg is the geometric mean permeability of the ensemble.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Lx",
			usage: `
              Lx is the number of grid cells in the x direction.`,
			defaultVal: 256,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Ly",
			usage: `
              Ly is the number of grid cells in the y direction.`,
			defaultVal: 128,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LambdaX",
			usage: `
              LambdaX is the correlation length of the permeability field in the
              x direction, in grid cells.`,
			defaultVal: 16,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LambdaY",
			usage: `
              LambdaY is the correlation length of the permeability field in the
              y direction, in grid cells.`,
			defaultVal: 16,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Source.XL",
			usage: `
              Source.XL is the first column of the contaminant source zone.`,
			defaultVal: 16,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Source.XU",
			usage: `
              Source.XU is the column after the last column of the contaminant
              source zone.`,
			defaultVal: 32,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Source.YL",
			usage: `
              Source.YL is the first row of the contaminant source zone.`,
			defaultVal: 48,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Source.YU",
			usage: `
              Source.YU is the row after the last row of the contaminant
              source zone.`,
			defaultVal: 80,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Target.XL",
			usage: `
              Target.XL is the first column of the target zone where risk and
              resilience are evaluated.`,
			defaultVal: 192,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Target.XU",
			usage: `
              Target.XU is the column after the last column of the target zone.`,
			defaultVal: 224,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Target.YL",
			usage: `
              Target.YL is the first row of the target zone.`,
			defaultVal: 48,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Target.YU",
			usage: `
              Target.YU is the row after the last row of the target zone.`,
			defaultVal: 80,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "MCL",
			usage: `
              MCL is the maximum contaminant level, as a fraction of the
              initial peak concentration at the source.`,
			defaultVal: 0.1,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "ObservationWells",
			usage: `
              ObservationWells is a list of observation well locations
              in the format [[x0, y0], [x1, y1], ...], where x is the column
              and y is the row of the well.`,
			defaultVal: "[]",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Dt",
			usage: `
              Dt is the time step size of the concentration fields.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Bins",
			usage: `
              Bins is the number of histogram bins used to calculate the
              survival curves of the maximum concentration at the observation wells.`,
			defaultVal: 50,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Import.CFieldTemplate",
			usage: `
              Import.CFieldTemplate is the path to the concentration field .npy files
              written by the transport simulations, with the realization
              index replaced by [REAL]. For example: "cfields/cfield_[REAL].npy".
              It can be a local path, an http(s) URL, or a blob storage URL.
              If it is empty, concentration fields are not imported.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{importCmd.Flags()},
		},
		{
			name: "Import.KFieldFile",
			usage: `
              Import.KFieldFile is the path to a .npy file holding the
              log-permeability fields of all realizations, with shape [NRealization, Ly, Lx].
              If it is empty, permeability fields are not imported.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{importCmd.Flags()},
		},
		{
			name: "Import.FlowTemplate",
			usage: `
              Import.FlowTemplate is the path to the MODFLOW flow-transport link (.ftl)
              files of the realizations, with the realization index replaced by [REAL].
              If it is empty, flow fields are not imported.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{importCmd.Flags()},
		},
		{
			name: "Import.PlumeEdgeTemplate",
			usage: `
              Import.PlumeEdgeTemplate is the path to .npy files holding the track of
              the plume edge of each realization, with the realization index replaced
              by [REAL]. Each file is an [n, 3] array of (time, x, y) rows, with x and y
              in grid cells. The tracks are drawn on realization concentration plots.
              If it is empty, plume edge tracks are not imported.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{importCmd.Flags()},
		},
		{
			name: "Import.MaxConcTemplate",
			usage: `
              Import.MaxConcTemplate is like Import.PlumeEdgeTemplate but for the track of
              the concentration maximum of each realization.
              If it is empty, concentration maximum tracks are not imported.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{importCmd.Flags()},
		},
		{
			name: "SurvivalReport",
			usage: `
              SurvivalReport is the path of the TOML file where the survival
              curves of the observation wells are written.`,
			defaultVal: "survival.toml",
			flagsets:   []*pflag.FlagSet{survivalCmd.Flags()},
		},
		{
			name: "TrendReport",
			usage: `
              TrendReport is the path of the TOML file where the evaluated
              trend lines and the refitted resilience trend are written.`,
			defaultVal: "trend.toml",
			flagsets:   []*pflag.FlagSet{trendCmd.Flags()},
		},
		{
			name: "Trend.Risk",
			usage: `
              Trend.Risk is an expression for the maximum risk in the target zone
              as a function of the transport index eta. It can use the functions
              exp, log, and erf.`,
			defaultVal: ruq.DefaultTrendLines.Risk,
			flagsets:   []*pflag.FlagSet{trendCmd.Flags(), plotCmd.PersistentFlags()},
		},
		{
			name: "Trend.Resilience",
			usage: `
              Trend.Resilience is an expression for the maximum resilience in the
              target zone as a function of the transport index eta.`,
			defaultVal: ruq.DefaultTrendLines.Resilience,
			flagsets:   []*pflag.FlagSet{trendCmd.Flags(), plotCmd.PersistentFlags()},
		},
		{
			name: "PlotDir",
			usage: `
              PlotDir is the directory where figures are saved.`,
			defaultVal: "figures",
			flagsets:   []*pflag.FlagSet{plotCmd.PersistentFlags()},
		},
		{
			name: "target",
			usage: `
              target specifies what to plot: 'ensemble' for the ensemble
              statistics or the index of a single realization.`,
			defaultVal: "ensemble",
			flagsets:   []*pflag.FlagSet{plotCmd.PersistentFlags()},
		},
		{
			name: "time",
			usage: `
              time specifies the time step indices to plot for time-dependent fields.`,
			defaultVal: []int{0},
			flagsets:   []*pflag.FlagSet{plotCmd.PersistentFlags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("RUQ")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case []int:
				if option.shorthand == "" {
					set.IntSlice(option.name, option.defaultVal.([]int), option.usage)
				} else {
					set.IntSliceP(option.name, option.shorthand, option.defaultVal.([]int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(importCmd)
	Root.AddCommand(postprocCmd)
	postprocCmd.AddCommand(cfieldCmd, rrCmd, etaCmd, maxrrCmd, wellsCmd, allCmd)
	Root.AddCommand(survivalCmd)
	Root.AddCommand(trendCmd)
	Root.AddCommand(plotCmd)
	plotCmd.AddCommand(plotLogKCmd, plotCFieldCmd, plotRiskCmd, plotResilienceCmd, plotEtaCmd, plotSurvivalCmd)
	Root.AddCommand(exportCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("ruq: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "ruq",
	Short: "Risk and resilience of contaminated aquifers.",
	Long: `RUQ post-processes ensembles of groundwater contaminant transport simulations
into risk and resilience metrics. Use the subcommands specified below to import
simulation output, run the post-processing stages, and plot the results.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'RUQ_var' where 'var' is the
name of the variable to be set, with any '.' replaced by '_'.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
	SilenceUsage:      true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of RUQ.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("RUQ v%s\n", ruq.Version)
	},
	DisableAutoGenTag: true,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import simulation output",
	Long: `import reads the concentration fields, permeability fields, and flow
fields written by the transport simulations of each realization and saves
them in the Store for post-processing. It can also import the tracks of
the plume edge and the concentration maximum of each realization.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		return Import(ctx, s.store, s.cfg, ImportFiles{
			CFieldTemplate:    os.ExpandEnv(Cfg.GetString("Import.CFieldTemplate")),
			KFieldFile:        os.ExpandEnv(Cfg.GetString("Import.KFieldFile")),
			FlowTemplate:      os.ExpandEnv(Cfg.GetString("Import.FlowTemplate")),
			PlumeEdgeTemplate: os.ExpandEnv(Cfg.GetString("Import.PlumeEdgeTemplate")),
			MaxConcTemplate:   os.ExpandEnv(Cfg.GetString("Import.MaxConcTemplate")),
		}, s.log)
	},
	DisableAutoGenTag: true,
}

var postprocCmd = &cobra.Command{
	Use:   "postproc",
	Short: "Run post-processing stages",
	Long: `postproc runs post-processing stages on the imported simulation output.
Use the subcommands specified below to choose a stage; 'all' runs every stage
in order.`,
	DisableAutoGenTag: true,
}

// stageCmd returns a command that runs a post-processing stage.
func stageCmd(use, short, long string, stage func(context.Context, *ruq.Postprocessor, ruq.StudyConfig) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, err := openSession(ctx, cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			return stage(ctx, s.p, s.cfg)
		},
		DisableAutoGenTag: true,
	}
}

var cfieldCmd = stageCmd("cfield", "Stack concentration fields",
	`cfield stacks the concentration fields of all realizations and calculates
their ensemble mean and variance.`,
	func(ctx context.Context, p *ruq.Postprocessor, cfg ruq.StudyConfig) error {
		return p.Concentration(ctx, cfg)
	})

var rrCmd = stageCmd("rr", "Calculate risk and resilience fields",
	`rr calculates the exceedance, risk, and resilience fields of each realization
and their ensemble statistics. It requires the output of 'postproc cfield'.`,
	func(ctx context.Context, p *ruq.Postprocessor, cfg ruq.StudyConfig) error {
		return p.RiskResilience(ctx, cfg)
	})

var etaCmd = stageCmd("eta", "Calculate the transport index",
	`eta calculates the transport index of each realization from its
imported flow field.`,
	func(ctx context.Context, p *ruq.Postprocessor, cfg ruq.StudyConfig) error {
		_, err := p.Eta(ctx, cfg)
		return err
	})

var maxrrCmd = stageCmd("maxrr", "Calculate maximum risk and resilience",
	`maxrr calculates the maximum risk and resilience in the target zone for
each realization. It requires the output of 'postproc rr'.`,
	func(ctx context.Context, p *ruq.Postprocessor, cfg ruq.StudyConfig) error {
		_, _, err := p.MaxRiskResilience(ctx, cfg)
		return err
	})

var wellsCmd = stageCmd("wells", "Extract observation well maxima",
	`wells extracts the maximum concentration over time at each observation
well for each realization. It requires the output of 'postproc cfield'.`,
	func(ctx context.Context, p *ruq.Postprocessor, cfg ruq.StudyConfig) error {
		_, err := p.Wells(ctx, cfg)
		return err
	})

var allCmd = stageCmd("all", "Run all post-processing stages",
	`all runs the cfield, rr, maxrr, and wells stages followed by the survival
analysis, and the eta stage if flow fields have been imported.`,
	func(ctx context.Context, p *ruq.Postprocessor, cfg ruq.StudyConfig) error {
		return p.All(ctx, cfg)
	})

var survivalCmd = &cobra.Command{
	Use:   "survival",
	Short: "Calculate survival curves",
	Long: `survival calculates the empirical survival function of the maximum
concentration at each observation well, fits lognormal and beta distributions
to it, and writes the results to the file specified by SurvivalReport.
It requires the output of 'postproc wells'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		return Survival(ctx, s.p, s.cfg, os.ExpandEnv(Cfg.GetString("SurvivalReport")))
	},
	DisableAutoGenTag: true,
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Evaluate trend lines",
	Long: `trend evaluates the risk and resilience trend lines over the range of
the transport index, refits the resilience trend to the post-processed
realizations, and writes the results to the file specified by TrendReport.
It requires the output of 'postproc eta' and 'postproc maxrr'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		return Trend(ctx, s.p, s.cfg, TrendLines(Cfg), os.ExpandEnv(Cfg.GetString("TrendReport")))
	},
	DisableAutoGenTag: true,
}

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot results",
	Long: `plot draws post-processing results as PNG images in the directory
specified by PlotDir. Use the subcommands specified below to choose a figure.`,
	DisableAutoGenTag: true,
}

// figureCmd returns a command that draws figure kind.
func figureCmd(kind, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:   kind,
		Short: short,
		Long:  long,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, err := openSession(ctx, cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			target, err := ruq.ParseTarget(Cfg.GetString("target"))
			if err != nil {
				return err
			}
			times, err := toIntSliceE(Cfg.Get("time"))
			if err != nil {
				return fmt.Errorf("ruq: reading 'time': %v", err)
			}
			return Plot(ctx, s.p, s.cfg, kind, target, times, TrendLines(Cfg), os.ExpandEnv(Cfg.GetString("PlotDir")))
		},
		DisableAutoGenTag: true,
	}
}

var plotLogKCmd = figureCmd("logk", "Plot permeability fields",
	`logk plots the log-permeability field of a realization, or the ensemble
mean and variance of the log-permeability fields.`)

var plotCFieldCmd = figureCmd("cfield", "Plot concentration fields",
	`cfield plots the concentration field of a realization, or the ensemble mean
and variance, at each of the selected time steps.`)

var plotRiskCmd = figureCmd("risk", "Plot risk fields",
	`risk plots the risk field of a realization, or the ensemble probability of
exceeding the maximum contaminant level and its variance, at each of the
selected time steps.`)

var plotResilienceCmd = figureCmd("resilience", "Plot resilience fields",
	`resilience plots the resilience field of a realization, or the ensemble mean
and variance of the resilience fields.`)

var plotEtaCmd = figureCmd("eta", "Plot risk and resilience against eta",
	`eta plots the maximum risk and resilience of each realization against the
transport index together with the trend lines.`)

var plotSurvivalCmd = figureCmd("survival", "Plot survival curves",
	`survival plots the survival curve of the maximum concentration at each
observation well together with the fitted distributions.`)

var exportCmd = &cobra.Command{
	Use:   "export key file",
	Short: "Export a stored array",
	Long: `export writes the array saved in the Store under key to file in the
.npy format. Arrays with more than two dimensions are flattened to two
dimensions, keeping the length of the first.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		return Export(ctx, s.store, args[0], args[1])
	},
	DisableAutoGenTag: true,
}

// toIntSliceE converts a configuration value to a slice of ints. Values
// set on the command line arrive as JSON-style strings.
func toIntSliceE(s interface{}) ([]int, error) {
	switch v := s.(type) {
	case []int:
		return v, nil
	case []interface{}:
		return cast.ToIntSliceE(v)
	case string:
		var o []int
		if err := json.NewDecoder(bytes.NewBufferString(v)).Decode(&o); err != nil {
			return nil, err
		}
		return o, nil
	default:
		return cast.ToIntSliceE(s)
	}
}
