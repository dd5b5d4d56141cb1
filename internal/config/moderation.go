package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ModerationConfig holds the tunable thresholds and denylist used to screen
// user-supplied text.
type ModerationConfig struct {
	CapsRatio           float64  `mapstructure:"caps_ratio"`
	CapsMinLength       int      `mapstructure:"caps_min_length"`
	RepetitionRatio     float64  `mapstructure:"repetition_ratio"`
	RepetitionMinLength int      `mapstructure:"repetition_min_length"`
	RepetitionMinTokens int      `mapstructure:"repetition_min_tokens"`
	DenyWords           []string `mapstructure:"deny_words"`
	DenySubstrings      []string `mapstructure:"deny_substrings"`
}

func DefaultModerationConfig() ModerationConfig {
	return ModerationConfig{
		CapsRatio:           0.7,
		CapsMinLength:       10,
		RepetitionRatio:     0.5,
		RepetitionMinLength: 20,
		RepetitionMinTokens: 3,
		DenyWords: []string{
			"spam", "scam", "fake", "fraud", "hate", "violence",
			"fuck", "fucking", "fucked", "shit", "shitting", "crap", "piss",
			"ass", "asshole", "bitch", "bastard",
			"dick", "cock", "pussy", "whore", "slut", "cunt", "motherfucker",
			"bullshit", "goddamn", "goddamned", "bugger", "wanker",
			"prick", "twat", "tosser", "bellend", "arse", "arsehole",
		},
		DenySubstrings: []string{
			"f*ck", "f**k", "s**t", "sh*t", "a**hole", "b***h", "m***********r",
		},
	}
}

type ModerationConfigHolder struct {
	current atomic.Value // holds ModerationConfig
}

// NewStaticModerationConfigHolder returns a holder that never reloads.
func NewStaticModerationConfigHolder(cfg ModerationConfig) (*ModerationConfigHolder, error) {
	if err := validateModerationConfig(cfg); err != nil {
		return nil, err
	}
	holder := &ModerationConfigHolder{}
	holder.current.Store(cfg)
	return holder, nil
}

// NewModerationConfigHolder reads moderation.yml and keeps watching it.
// A missing file falls back to defaults; an invalid reload keeps the last
// good config.
func NewModerationConfigHolder(cfg Config, log *zap.Logger) (*ModerationConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("moderation.config")

	v := viper.New()
	if path := strings.TrimSpace(cfg.ModerationConfigPath); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("moderation")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/groupchat")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("GROUPCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setModerationDefaults(v, DefaultModerationConfig())

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read moderation config: %w", err)
		}
		fileLoaded = false
		log.Info("moderation config file not found, using defaults")
	}

	current, err := unmarshalModeration(v)
	if err != nil {
		return nil, err
	}

	holder := &ModerationConfigHolder{}
	holder.current.Store(current)

	if fileLoaded {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := unmarshalModeration(v)
			if err != nil {
				log.Warn("invalid moderation config ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("moderation config reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *ModerationConfigHolder) Get() ModerationConfig {
	return h.current.Load().(ModerationConfig)
}

func setModerationDefaults(v *viper.Viper, defaults ModerationConfig) {
	v.SetDefault("moderation.caps_ratio", defaults.CapsRatio)
	v.SetDefault("moderation.caps_min_length", defaults.CapsMinLength)
	v.SetDefault("moderation.repetition_ratio", defaults.RepetitionRatio)
	v.SetDefault("moderation.repetition_min_length", defaults.RepetitionMinLength)
	v.SetDefault("moderation.repetition_min_tokens", defaults.RepetitionMinTokens)
	v.SetDefault("moderation.deny_words", defaults.DenyWords)
	v.SetDefault("moderation.deny_substrings", defaults.DenySubstrings)
}

func unmarshalModeration(v *viper.Viper) (ModerationConfig, error) {
	// Unmarshal goes through AllSettings, which merges defaults per leaf key.
	var file struct {
		Moderation ModerationConfig `mapstructure:"moderation"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return ModerationConfig{}, fmt.Errorf("decode moderation config: %w", err)
	}
	if err := validateModerationConfig(file.Moderation); err != nil {
		return ModerationConfig{}, err
	}
	return file.Moderation, nil
}

func validateModerationConfig(cfg ModerationConfig) error {
	if cfg.CapsRatio <= 0 || cfg.CapsRatio > 1 {
		return errors.New("moderation.caps_ratio must be in (0, 1]")
	}
	if cfg.RepetitionRatio <= 0 || cfg.RepetitionRatio > 1 {
		return errors.New("moderation.repetition_ratio must be in (0, 1]")
	}
	if cfg.CapsMinLength < 0 || cfg.RepetitionMinLength < 0 || cfg.RepetitionMinTokens < 0 {
		return errors.New("moderation lengths cannot be negative")
	}
	return nil
}
