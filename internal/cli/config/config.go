// Package config loads the scan configuration from defaults, config file,
// profile, environment, and flags (highest priority), validates the merged
// result, and wires the classification policy.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/MaterialsRealm/vasp-workflows/pkg/scanner"
	"github.com/MaterialsRealm/vasp-workflows/pkg/scanner/convergence"
)

const (
	EnvPrefix         = "VASPSCAN"
	DefaultConfigName = "vaspscan"
)

// flagBindings maps viper keys to the flag names that feed them.
var flagBindings = map[string]string{
	"rootPath":       "root",
	"ignorePatterns": "ignore",
	"concurrency":    "concurrency",
	"atol":           "atol",
	"artifact":       "artifact",
	"statusFilePath": "status-file",
	"keyBy":          "key-by",
	"outputFormat":   "output-format",
	"verbose":        "verbose",
}

// LoadAndValidate loads configuration from all sources (defaults, file,
// profile, env, flags), validates the merged configuration, derives the
// effective options (absolute root, classification policy, TUI state), and
// sets up the logger. Returns the populated Options or an error.
func LoadAndValidate(cfgFile, profileName string, verbose bool, flags *pflag.FlagSet) (scanner.Options, *slog.Logger, error) {
	var opts scanner.Options
	v := viper.New()

	// Temporary basic logger for early loading errors.
	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			tempLogger.Error("Failed to get user home directory", slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			tempLogger.Debug("No configuration file found, using defaults/env/flags.")
		} else {
			used := cfgFile
			if used == "" {
				used = fmt.Sprintf("searched locations for %s.yaml", DefaultConfigName)
			}
			tempLogger.Error("Error reading configuration file", slog.String("path", used), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error reading config file '%s': %w", used, err)
		}
	} else {
		opts.ConfigFilePath = v.ConfigFileUsed()
		tempLogger.Debug("Using configuration file", slog.String("path", opts.ConfigFilePath))
	}

	// Apply profile: a named subtree merged over the base settings.
	opts.ProfileName = profileName
	if profileName != "" {
		profileKey := "profiles." + profileName
		if !v.IsSet(profileKey) {
			configPath := v.ConfigFileUsed()
			if configPath == "" {
				configPath = "(no config file found)"
			}
			err := fmt.Errorf("profile '%s' not found in config file '%s'", profileName, configPath)
			tempLogger.Error(err.Error())
			return opts, tempLogger, err
		}
		profileSettings := v.Sub(profileKey)
		if profileSettings == nil {
			err := fmt.Errorf("failed to load profile '%s' settings from config file '%s'", profileName, v.ConfigFileUsed())
			tempLogger.Error(err.Error())
			return opts, tempLogger, err
		}
		if err := v.MergeConfigMap(profileSettings.AllSettings()); err != nil {
			tempLogger.Error("Error merging profile", slog.String("profile", profileName), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error merging profile '%s': %w", profileName, err)
		}
		tempLogger.Debug("Applied configuration profile", slog.String("profile", profileName))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Flags win over everything else.
	for key, flagName := range flagBindings {
		flag := flags.Lookup(flagName)
		if flag == nil {
			tempLogger.Debug("Flag lookup failed during binding", slog.String("flag", flagName))
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			tempLogger.Error("Error binding flag", slog.String("flag", flagName), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error binding flag '--%s': %w", flagName, err)
		}
	}

	opts.RootPath = v.GetString("rootPath")
	opts.IgnorePatterns = v.GetStringSlice("ignorePatterns")
	opts.Concurrency = v.GetInt("concurrency")
	opts.Atol = v.GetFloat64("atol")
	opts.Artifact = v.GetString("artifact")
	opts.StatusFilePath = v.GetString("statusFilePath")
	opts.KeyBy = scanner.KeyBy(v.GetString("keyBy"))
	opts.OutputFormat = scanner.OutputFormat(v.GetString("outputFormat"))
	opts.TuiEnabled = v.GetBool("tuiEnabled")
	opts.Verbose = v.GetBool("verbose")

	// Boolean flag overrides; viper/cobra binding can be lossy for bools set
	// back to their default.
	if verbose || flags.Changed("verbose") {
		opts.Verbose = true
	}
	if flags.Changed("no-tui") {
		if noTui, _ := flags.GetBool("no-tui"); noTui {
			opts.TuiEnabled = false
		}
	}

	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logHandler)
	opts.Logger = logHandler

	if err := validateAndDeriveOptions(&opts, logger, flags); err != nil {
		return opts, logger, err
	}

	logger.Debug("Configuration loading and validation complete",
		slog.String("configFile", opts.ConfigFilePath),
		slog.String("profile", opts.ProfileName),
		slog.Bool("verbose", opts.Verbose),
		slog.String("logLevel", logLevel.String()),
	)
	return opts, logger, nil
}

// setDefaults establishes the default values for configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("verbose", scanner.DefaultVerbose)
	v.SetDefault("tuiEnabled", scanner.DefaultTuiEnabled)
	v.SetDefault("ignorePatterns", []string{})
	v.SetDefault("concurrency", scanner.DefaultConcurrency)
	v.SetDefault("atol", scanner.DefaultAtol)
	v.SetDefault("artifact", scanner.DefaultArtifact)
	v.SetDefault("statusFilePath", scanner.DefaultStatusFile)
	v.SetDefault("keyBy", string(scanner.DefaultKeyBy))
	v.SetDefault("outputFormat", string(scanner.DefaultOutputFormat))
}

// isValidEnumValue checks if a value is present in a slice of allowed enum
// values. Case-sensitive.
func isValidEnumValue[T ~string](value T, allowedValues []T) bool {
	return slices.Contains(allowedValues, value)
}

// validateAndDeriveOptions performs semantic validation on the populated
// Options, wires the classification policy, and derives the effective TUI
// state. Errors wrap scanner.ErrConfigValidation.
func validateAndDeriveOptions(opts *scanner.Options, logger *slog.Logger, flags *pflag.FlagSet) error {
	if opts.RootPath == "" {
		err := fmt.Errorf("%w: root path is required (-r, --root)", scanner.ErrConfigValidation)
		logger.Error(err.Error(), slog.String("key", "rootPath"))
		return err
	}
	absRoot, err := filepath.Abs(opts.RootPath)
	if err != nil {
		err = fmt.Errorf("%w: cannot resolve absolute root path '%s': %w", scanner.ErrConfigValidation, opts.RootPath, err)
		logger.Error(err.Error(), slog.String("key", "rootPath"), slog.String("value", opts.RootPath))
		return err
	}
	opts.RootPath = absRoot
	info, err := os.Stat(opts.RootPath)
	if err != nil {
		if os.IsNotExist(err) {
			err = fmt.Errorf("%w: root path '%s' does not exist", scanner.ErrConfigValidation, opts.RootPath)
		} else {
			err = fmt.Errorf("%w: cannot access root path '%s': %w", scanner.ErrConfigValidation, opts.RootPath, err)
		}
		logger.Error(err.Error(), slog.String("key", "rootPath"), slog.String("value", opts.RootPath))
		return err
	}
	if !info.IsDir() {
		err = fmt.Errorf("%w: root path '%s' is not a directory", scanner.ErrConfigValidation, opts.RootPath)
		logger.Error(err.Error(), slog.String("key", "rootPath"), slog.String("value", opts.RootPath))
		return err
	}
	logger.Debug("Validated root path", slog.String("path", opts.RootPath))

	allowedKeyBy := []scanner.KeyBy{scanner.KeyByFolder, scanner.KeyByStatus}
	if !isValidEnumValue(opts.KeyBy, allowedKeyBy) {
		err := fmt.Errorf("%w: invalid value '%s' for key 'keyBy' (flag --key-by). Allowed: %v", scanner.ErrConfigValidation, opts.KeyBy, allowedKeyBy)
		logger.Error(err.Error(), slog.String("key", "keyBy"), slog.String("value", string(opts.KeyBy)))
		return err
	}
	allowedOutputFormat := []scanner.OutputFormat{scanner.OutputFormatText, scanner.OutputFormatJSON}
	if !isValidEnumValue(opts.OutputFormat, allowedOutputFormat) {
		err := fmt.Errorf("%w: invalid value '%s' for key 'outputFormat' (flag --output-format). Allowed: %v", scanner.ErrConfigValidation, opts.OutputFormat, allowedOutputFormat)
		logger.Error(err.Error(), slog.String("key", "outputFormat"), slog.String("value", string(opts.OutputFormat)))
		return err
	}

	if opts.Concurrency < 0 {
		err := fmt.Errorf("%w: invalid value '%d' for key 'concurrency' (flag --concurrency). Must be >= 0", scanner.ErrConfigValidation, opts.Concurrency)
		logger.Error(err.Error(), slog.String("key", "concurrency"), slog.Int("value", opts.Concurrency))
		return err
	}
	if opts.Atol <= 0 {
		err := fmt.Errorf("%w: invalid value '%g' for key 'atol' (flag --atol). Must be > 0", scanner.ErrConfigValidation, opts.Atol)
		logger.Error(err.Error(), slog.String("key", "atol"), slog.Float64("value", opts.Atol))
		return err
	}
	if opts.Artifact == "" || strings.ContainsRune(opts.Artifact, os.PathSeparator) {
		err := fmt.Errorf("%w: artifact must be a bare file name, got '%s'", scanner.ErrConfigValidation, opts.Artifact)
		logger.Error(err.Error(), slog.String("key", "artifact"), slog.String("value", opts.Artifact))
		return err
	}

	// The status file extension is checked here so a typo fails before the
	// scan rather than after it.
	if opts.StatusFilePath != "" {
		switch strings.ToLower(filepath.Ext(opts.StatusFilePath)) {
		case ".json", ".yaml", ".yml":
		default:
			err := fmt.Errorf("%w: status file '%s' must end in .json, .yaml, or .yml", scanner.ErrUnsupportedFormat, opts.StatusFilePath)
			logger.Error(err.Error(), slog.String("key", "statusFilePath"), slog.String("value", opts.StatusFilePath))
			return err
		}
	}

	// Wire the canonical policy.
	if opts.Classify == nil {
		opts.Classify = convergence.Classify(opts.Artifact, opts.Atol)
		logger.Debug("Using force-convergence classification policy",
			slog.String("artifact", opts.Artifact),
			slog.Float64("atol", opts.Atol))
	}

	// Verbose logging and the TUI share a terminal; verbose wins.
	if opts.Verbose && opts.TuiEnabled {
		logger.Debug("Verbose mode enabled, TUI disabled")
		opts.TuiEnabled = false
	}

	logger.Debug("Final derived settings validated",
		slog.Int("concurrency", opts.Concurrency),
		slog.Float64("atol", opts.Atol),
		slog.String("artifact", opts.Artifact),
		slog.String("statusFile", opts.StatusFilePath),
		slog.Bool("tuiEnabledEffective", opts.TuiEnabled),
	)
	return nil
}
