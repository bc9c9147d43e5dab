// Package config layers flags, YTVOX_* environment variables and the
// optional config file into model.Options.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"ytvox/internal/dirs"
	"ytvox/internal/model"
)

// EnvPrefix is prepended to upper-cased keys for environment overrides.
const EnvPrefix = "YTVOX"

// flagKeys maps persistent flag names to config keys.
var flagKeys = map[string]string{
	"downloads-dir":   "downloads_dir",
	"verbose":         "verbose",
	"dl-binary":       "dl_binary",
	"ffmpeg-binary":   "ffmpeg_binary",
	"spleeter-binary": "spleeter_binary",
	"log-level":       "log_level",
	"log-format":      "log_format",
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("downloads_dir", model.DefaultDownloadsDir)
	v.SetDefault("verbose", false)
	v.SetDefault("spleeter_model", model.DefaultSpleeterModel)
	v.SetDefault("concurrency", model.DefaultConcurrency)
	v.SetDefault("chunk_size_mb", model.DefaultChunkSizeBytes/(1024*1024))
	v.SetDefault("merge_format", model.DefaultMergeFormat)
	v.SetDefault("history", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Resolve layers defaults, the config file, YTVOX_* environment variables
// and root's persistent flags into a fresh Viper. It returns the effective
// options and the config file that was read ("" when none was found). A
// missing config file is not an error; a malformed one is.
func Resolve(root *cobra.Command, file string) (model.Options, string, error) {
	v := viper.New()
	if err := initViper(v, root, file); err != nil {
		return model.Options{}, "", err
	}
	return FromViper(v), v.ConfigFileUsed(), nil
}

func initViper(v *viper.Viper, root *cobra.Command, file string) error {
	_ = dirs.EnsureAll()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		if cfgDir, err := dirs.ConfigDir(); err == nil {
			v.AddConfigPath(cfgDir)
		}
		v.SetConfigName("config") // config.{yaml|yml|json|toml}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if root != nil {
		for flag, key := range flagKeys {
			if f := root.PersistentFlags().Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if file == "" && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// FromViper resolves the effective options from v.
func FromViper(v *viper.Viper) model.Options {
	o := model.Options{
		DownloadsDir:   v.GetString("downloads_dir"),
		Verbose:        v.GetBool("verbose"),
		DLBinary:       v.GetString("dl_binary"),
		FFmpegBinary:   v.GetString("ffmpeg_binary"),
		SpleeterBinary: v.GetString("spleeter_binary"),
		SpleeterModel:  v.GetString("spleeter_model"),
		Concurrency:    v.GetInt("concurrency"),
		ChunkSizeBytes: v.GetInt64("chunk_size_mb") * 1024 * 1024,
		MergeFormat:    v.GetString("merge_format"),
		History:        v.GetBool("history"),
		LogLevel:       v.GetString("log_level"),
		LogFormat:      v.GetString("log_format"),
	}
	return o.WithDefaults()
}

// File is the on-disk shape of the config file.
type File struct {
	DownloadsDir   string `yaml:"downloads_dir"`
	Verbose        bool   `yaml:"verbose"`
	DLBinary       string `yaml:"dl_binary,omitempty"`
	FFmpegBinary   string `yaml:"ffmpeg_binary,omitempty"`
	SpleeterBinary string `yaml:"spleeter_binary,omitempty"`
	SpleeterModel  string `yaml:"spleeter_model"`
	Concurrency    int    `yaml:"concurrency"`
	ChunkSizeMB    int64  `yaml:"chunk_size_mb"`
	MergeFormat    string `yaml:"merge_format"`
	History        bool   `yaml:"history"`
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
}

// FileFromOptions converts resolved options into the config file shape.
func FileFromOptions(o model.Options) File {
	return File{
		DownloadsDir:   o.DownloadsDir,
		Verbose:        o.Verbose,
		DLBinary:       o.DLBinary,
		FFmpegBinary:   o.FFmpegBinary,
		SpleeterBinary: o.SpleeterBinary,
		SpleeterModel:  o.SpleeterModel,
		Concurrency:    o.Concurrency,
		ChunkSizeMB:    o.ChunkSizeBytes / (1024 * 1024),
		MergeFormat:    o.MergeFormat,
		History:        o.History,
		LogLevel:       o.LogLevel,
		LogFormat:      o.LogFormat,
	}
}

// MarshalYAML renders options as a config file.
func MarshalYAML(o model.Options) ([]byte, error) {
	return yaml.Marshal(FileFromOptions(o))
}

// DefaultPath returns the config file path inside the config dir.
func DefaultPath() (string, error) {
	d, err := dirs.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.yaml"), nil
}

// WriteDefault writes a config file with default values to path. It refuses
// to overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	v := viper.New()
	SetDefaults(v)
	data, err := MarshalYAML(FromViper(v))
	if err != nil {
		return err
	}
	if err := dirs.Ensure(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
