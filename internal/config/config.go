package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	World  WorldConfig  `mapstructure:"world"`
	Map    MapConfig    `mapstructure:"map"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Port              string  `mapstructure:"port"`
	CommandsPerSecond float64 `mapstructure:"commands_per_second"`
	CommandBurst      int     `mapstructure:"command_burst"`
}

type WorldConfig struct {
	MaxPlayers         int   `mapstructure:"max_players"`
	TickMs             int   `mapstructure:"tick_ms"`
	Bots               int   `mapstructure:"bots"`
	Seed               int64 `mapstructure:"seed"` // 0 picks a time based seed
	BroadcastOnCommand bool  `mapstructure:"broadcast_on_command"`
}

func (w WorldConfig) TickPeriod() time.Duration {
	return time.Duration(w.TickMs) * time.Millisecond
}

// MapConfig picks where the land mask comes from: "generated" noise, a
// "preset" by name, or an ASCII "file".
type MapConfig struct {
	Source   string  `mapstructure:"source"`
	Preset   string  `mapstructure:"preset"`
	File     string  `mapstructure:"file"`
	Width    int     `mapstructure:"width"`
	Height   int     `mapstructure:"height"`
	SeaLevel float64 `mapstructure:"sea_level"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
	Dev        bool   `mapstructure:"dev"`
}

var ErrInvalid = errors.New("invalid config")

func (c Config) Validate() error {
	switch {
	case c.Server.Port == "":
		return fmt.Errorf("%w: server.port is empty", ErrInvalid)
	case c.World.MaxPlayers <= 0:
		return fmt.Errorf("%w: world.max_players must be positive", ErrInvalid)
	case c.World.TickMs <= 0:
		return fmt.Errorf("%w: world.tick_ms must be positive", ErrInvalid)
	case c.World.Bots < 0 || c.World.Bots > c.World.MaxPlayers:
		return fmt.Errorf("%w: world.bots must be within [0, max_players]", ErrInvalid)
	case c.Server.CommandsPerSecond <= 0 || c.Server.CommandBurst <= 0:
		return fmt.Errorf("%w: command rate limits must be positive", ErrInvalid)
	}

	switch c.Map.Source {
	case "generated", "preset":
		if c.Map.Width <= 0 || c.Map.Height <= 0 {
			return fmt.Errorf("%w: map dimensions must be positive", ErrInvalid)
		}
	case "file":
		if c.Map.File == "" {
			return fmt.Errorf("%w: map.file is required for source=file", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown map.source %q", ErrInvalid, c.Map.Source)
	}
	return nil
}
