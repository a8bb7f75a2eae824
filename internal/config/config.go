package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "LETTERBOX_"

type Application struct {
	Addr      string    `koanf:"addr"`
	Database  Database  `koanf:"db"`
	Redis     Redis     `koanf:"redis"`
	Calendar  Calendar  `koanf:"calendar"`
	Scheduler Scheduler `koanf:"scheduler"`
	Metrics   Metrics   `koanf:"metrics"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

// Redis backs notification de-duplication. When disabled every reminder is
// allowed through.
type Redis struct {
	Enabled  bool          `koanf:"enabled"`
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	DedupTTL time.Duration `koanf:"dedupttl"`
}

type Calendar struct {
	UpcomingDefaultLimit int `koanf:"upcomingdefaultlimit"`
	MaxLimit             int `koanf:"maxlimit"`
}

type Scheduler struct {
	Enabled bool `koanf:"enabled"`
	// Timezone is an IANA name, e.g. "Asia/Jakarta". Empty means the process local zone.
	Timezone           string        `koanf:"timezone"`
	UpcomingCheck      string        `koanf:"upcomingcheck"`
	OverdueCheck       string        `koanf:"overduecheck"`
	WeeklySummary      string        `koanf:"weeklysummary"`
	UpcomingWindowDays int           `koanf:"upcomingwindowdays"`
	ShutdownTimeout    time.Duration `koanf:"shutdowntimeout"`
}

type Metrics struct {
	Enabled bool `koanf:"enabled"`
}

func Defaults() Application {
	return Application{
		Addr: ":8181",
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "letterbox",
			Pass:   "",
			Name:   "letterbox",
			Schema: "letterbox",
		},
		Redis: Redis{
			Enabled:  false,
			Addr:     "localhost:6379",
			DedupTTL: 20 * time.Hour,
		},
		Calendar: Calendar{
			UpcomingDefaultLimit: 5,
			MaxLimit:             100,
		},
		Scheduler: Scheduler{
			Enabled:            true,
			UpcomingCheck:      "0 8 * * *",
			OverdueCheck:       "0 18 * * *",
			WeeklySummary:      "0 9 * * 1",
			UpcomingWindowDays: 3,
			ShutdownTimeout:    30 * time.Second,
		},
		Metrics: Metrics{
			Enabled: true,
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
