package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	defaultConfigRelPath = "configs/conf.yml"
	envPrefix            = "CONQUEST"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.commands_per_second", 10.0)
	v.SetDefault("server.command_burst", 20)

	v.SetDefault("world.max_players", 10)
	v.SetDefault("world.tick_ms", 1000)
	v.SetDefault("world.bots", 4)
	v.SetDefault("world.seed", 0)
	v.SetDefault("world.broadcast_on_command", true)

	v.SetDefault("map.source", "generated")
	v.SetDefault("map.preset", "")
	v.SetDefault("map.file", "")
	v.SetDefault("map.width", 64)
	v.SetDefault("map.height", 48)
	v.SetDefault("map.sea_level", 0.45)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 7)
	v.SetDefault("log.compress", false)
	v.SetDefault("log.dev", false)
}

// Loader owns the viper instance so the config file can be watched after
// the first load.
type Loader struct {
	v    *viper.Viper
	path string
}

// Load reads cfgPath, or configs/conf.yml found by walking up from the
// working directory. No file at all is fine: defaults and env still apply.
func Load(cfgPath string) (Config, *Loader, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// hosting platforms hand out the listen port as bare PORT
	_ = v.BindEnv("server.port", envPrefix+"_SERVER_PORT", "PORT")

	l := &Loader{v: v}
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			cfgPath = findConfigUpward(wd)
		}
	} else if !filepath.IsAbs(cfgPath) {
		if wd, err := os.Getwd(); err == nil {
			cfgPath = filepath.Join(wd, cfgPath)
		}
	}

	if cfgPath != "" {
		if !fileExist(cfgPath) {
			return Config{}, nil, fmt.Errorf("config file not found: %s", cfgPath)
		}
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, nil, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
		l.path = cfgPath
	}

	cfg, err := l.decode()
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, l, nil
}

func (l *Loader) decode() (Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Path is empty when running on defaults only.
func (l *Loader) Path() string {
	return l.path
}

// Watch calls onChange with the re-decoded config each time the file
// changes. Invalid edits are reported through onError and otherwise ignored.
func (l *Loader) Watch(onChange func(Config), onError func(error)) {
	if l.path == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}

func findConfigUpward(startDir string) string {
	dir := startDir
	for {
		candidate := filepath.Join(dir, defaultConfigRelPath)
		if fileExist(candidate) {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func fileExist(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}
