package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env-default:"local"`
	Tokens     `yaml:"tokens"`
	Identity   `yaml:"identity"`
	Storage    `yaml:"storage"`
	RabbitMQ   `yaml:"rabbitmq"`
	Email      `yaml:"email"`
	Sender     `yaml:"sender"`
	HTTPServer `yaml:"http_server"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Tokens struct {
	UnsubscribeTokenSecret string `yaml:"unsubscribe_token_secret" env:"UNSUBSCRIBE_TOKEN_SECRET" env-required:"true"`
}

type Identity struct {
	Secret   string `yaml:"secret" env:"IDENTITY_TOKEN_SECRET" env-required:"true"`
	Audience string `yaml:"audience" env-required:"true"`
	Issuer   string `yaml:"issuer" env-required:"true"`
}

type Storage struct {
	Type     string `yaml:"type" env-default:"postgres"`
	Postgres `yaml:"postgres"`
	Redis    `yaml:"redis"`
}

type Postgres struct {
	Host     string `yaml:"host" env-default:"postgres"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Redis struct {
	Address  string `yaml:"address" env-default:"redis:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

type RabbitMQ struct {
	URL       string `yaml:"url"`
	QueueName string `yaml:"queue_name" env-default:"unsubscribe-events"`
}

type Email struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" env-default:"587"`
	Username string `yaml:"username"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	Sender   string `yaml:"sender"`
}

type Sender struct {
	APIDomain      string   `yaml:"api_domain"`
	WebDomain      string   `yaml:"web_domain"`
	Domains        []string `yaml:"domains"`
	DefaultSubject string   `yaml:"default_subject" env-default:"Test Email - Unsubscribe POC"`
}

func (p Postgres) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

func MustLoad(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("Config file does not exist" + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("Failed to read config" + err.Error())
	}

	return &cfg
}
