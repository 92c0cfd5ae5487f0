package core

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite only
	}

	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	// TimetableConfig is the raw weekly timetable: time slots (columns) and,
	// per lower-cased weekday name, the course scheduled in each slot ("" if none).
	TimetableConfig struct {
		Slots []string
		Days  map[string][]string
	}

	IdentityConfig struct {
		EncodingsDir string
		Tolerance    float64
	}

	Config struct {
		Env          string
		AppName      string
		Build        string
		Debug        bool
		TestMode     bool
		RollbarToken string
		WorkDir      string

		Database DatabaseConfig
		Server   ServerConfig
		Identity IdentityConfig

		// Courses is the configured course set; its length is the divisor of the overall percentage.
		Courses        []string
		Timetable      TimetableConfig
		StrictCalendar bool
	}
)

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

var defaultSlots = []string{"0900", "1000", "1100", "1200", "1300", "1400", "1500", "1600"}

// NewConfig loads the app configuration from defaults, an optional config/hazira.yaml,
// an optional config/.env.<env> file and the environment (in increasing priority).
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Hazira")
	v.SetDefault("build", "develop")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "hazira")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.path", "hazira.db")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("identity.encodingsDir", "encodings")
	v.SetDefault("identity.tolerance", 0.6)
	v.SetDefault("courses", []string{})
	v.SetDefault("timetable.slots", defaultSlots)
	v.SetDefault("strictCalendar", false)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := workDir()

	v.SetConfigName("hazira")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(wd, "config"))
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("config.ReadInConfig: %v", err)
		}
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:          env,
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		RollbarToken: v.GetString("rollbarToken"),
		WorkDir:      wd,
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
		},
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Identity: IdentityConfig{
			EncodingsDir: v.GetString("identity.encodingsDir"),
			Tolerance:    v.GetFloat64("identity.tolerance"),
		},
		Courses: v.GetStringSlice("courses"),
		Timetable: TimetableConfig{
			Slots: v.GetStringSlice("timetable.slots"),
			Days:  make(map[string][]string),
		},
		StrictCalendar: v.GetBool("strictCalendar"),
	}
	for day := range v.GetStringMap("timetable.days") {
		conf.Timetable.Days[strings.ToLower(day)] = v.GetStringSlice(fmt.Sprintf("timetable.days.%s", day))
	}
	return conf
}

// workDir is the directory holding the "config" folder: $HAZIRA_WORKDIR or the current directory.
func workDir() string {
	if wd := os.Getenv("HAZIRA_WORKDIR"); wd != "" {
		return wd
	}
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	return wd
}
