package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address                   string
		DebugAddress              string
		Host                      string
		SecretKey                 string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	// TutoringConfig bounds the office hours slots may be created in (inclusive).
	TutoringConfig struct {
		StartHour int
		EndHour   int
	}

	SemesterConfig struct {
		// Start overrides the computed start of the current semester when set.
		Start time.Time
	}

	NotificationsConfig struct {
		Enabled      bool
		OpsEmail     string
		ReminderLead time.Duration
		ReminderSpec string // cron spec
	}

	ToursConfig struct {
		Recipient string
	}

	Config struct {
		AppName              string
		Env                  string
		Build                string
		Debug                bool
		TestMode             bool
		WorkDir              string
		RollbarToken         string
		SendgridAPIKey       string
		DefaultFromEmail     string
		DefaultFromName      string
		FrontendBaseURL      string
		TimeZone             string
		AdminGroup           string
		AlumniRelationsGroup string

		Server        ServerConfig
		Database      DatabaseConfig
		Tutoring      TutoringConfig
		Semester      SemesterConfig
		Notifications NotificationsConfig
		Tours         ToursConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

func (conf *Config) DefaultFromAddress() mail.Address {
	return mail.Address{Name: conf.DefaultFromName, Address: conf.DefaultFromEmail}
}

// Location returns the chapter's local time zone, used to display event times.
func (conf *Config) Location() *time.Location {
	if conf.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(conf.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SemesterStart returns the configured semester start, or the start of the semester containing now.
func (conf *Config) SemesterStart(now time.Time) time.Time {
	if !conf.Semester.Start.IsZero() {
		return conf.Semester.Start
	}
	return SemesterOf(now).Start(now.Location())
}

// NewConfig loads the configuration from the environment (and optional config/.env.<env> file).
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "HKN")
	v.SetDefault("build", "develop")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("defaultFromName", "HKN")
	v.SetDefault("frontendBaseUrl", "http://localhost:3000")
	v.SetDefault("timeZone", "America/Los_Angeles")
	v.SetDefault("adminGroup", "officers")
	v.SetDefault("alumniRelationsGroup", "alumrel")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.secretKey", "ro7@-ck1f$pxk+j0l!q#=2n4v(s%u&yg8h^e*t)z9w_m3a6d")
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "hkn")
	v.SetDefault("database.user", "hkn")
	v.SetDefault("database.password", "hkn")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTls", true)

	v.SetDefault("tutoring.startHour", 11)
	v.SetDefault("tutoring.endHour", 16)
	v.SetDefault("semester.start", "")

	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.opsEmail", "ops@hkn.eecs.berkeley.edu")
	v.SetDefault("notifications.reminderLead", time.Hour)
	v.SetDefault("notifications.reminderSpec", "*/10 * * * *")

	v.SetDefault("tours.recipient", "deprel@hkn.eecs.berkeley.edu")

	// load .env if it exists (ignore if it does not)
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.Getwd(): %v", err)
	}
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
		AppName:              v.GetString("appName"),
		Env:                  env,
		Build:                v.GetString("build"),
		Debug:                v.GetBool("debug"),
		TestMode:             v.GetBool("testMode"),
		WorkDir:              wd,
		RollbarToken:         v.GetString("rollbarToken"),
		SendgridAPIKey:       v.GetString("sendgridApiKey"),
		DefaultFromEmail:     v.GetString("defaultFromEmail"),
		DefaultFromName:      v.GetString("defaultFromName"),
		FrontendBaseURL:      v.GetString("frontendBaseUrl"),
		TimeZone:             v.GetString("timeZone"),
		AdminGroup:           v.GetString("adminGroup"),
		AlumniRelationsGroup: v.GetString("alumniRelationsGroup"),
		Server: ServerConfig{
			Address:                   v.GetString("server.address"),
			DebugAddress:              v.GetString("server.debugAddress"),
			Host:                      v.GetString("server.host"),
			SecretKey:                 v.GetString("server.secretKey"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTls"),
		},
		Tutoring: TutoringConfig{
			StartHour: v.GetInt("tutoring.startHour"),
			EndHour:   v.GetInt("tutoring.endHour"),
		},
		Notifications: NotificationsConfig{
			Enabled:      v.GetBool("notifications.enabled"),
			OpsEmail:     v.GetString("notifications.opsEmail"),
			ReminderLead: v.GetDuration("notifications.reminderLead"),
			ReminderSpec: v.GetString("notifications.reminderSpec"),
		},
		Tours: ToursConfig{
			Recipient: v.GetString("tours.recipient"),
		},
	}
	if s := v.GetString("semester.start"); s != "" {
		start, err := time.Parse("2006-01-02", s)
		if err != nil {
			log.Fatalf("config.semester.start(%s): %v", s, err)
		}
		conf.Semester.Start = start
	}
	return conf
}

// NewTestConfig returns a Config suitable for tests; it never touches the environment.
func NewTestConfig() *Config {
	return &Config{
		AppName:              "HKN",
		Env:                  "TEST",
		Build:                "test",
		Debug:                false,
		TestMode:             true,
		DefaultFromEmail:     "noreply@localhost",
		DefaultFromName:      "HKN",
		FrontendBaseURL:      "http://localhost:3000",
		TimeZone:             "UTC",
		AdminGroup:           "officers",
		AlumniRelationsGroup: "alumrel",
		Server: ServerConfig{
			Host:                      "localhost",
			SecretKey:                 "secret",
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			ShutdownTimeout:           time.Second,
		},
		Tutoring: TutoringConfig{StartHour: 11, EndHour: 16},
		Notifications: NotificationsConfig{
			Enabled:      true,
			OpsEmail:     "ops@hkn.eecs.berkeley.edu",
			ReminderLead: time.Hour,
			ReminderSpec: "*/10 * * * *",
		},
		Tours: ToursConfig{Recipient: "deprel@hkn.eecs.berkeley.edu"},
	}
}
