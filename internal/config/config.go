package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel          string     `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string     `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort        string     `yaml:"socket-port" env:"SOCKET_PORT" env-default:"8080"`
	Redis             Redis      `yaml:"redis"`
	SQLiteStoragePath string     `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH"`
	Evaluation        Evaluation `yaml:"evaluation"`
	Game              Game       `yaml:"game"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type Evaluation struct {
	BaseURL string        `yaml:"base-url" env:"EVALUATION_BASE_URL" env-default:"http://localhost:9000"`
	Timeout time.Duration `yaml:"timeout" env:"EVALUATION_TIMEOUT" env-default:"30s"`
}

type Game struct {
	BoardSize        int           `yaml:"board-size" env-default:"32"`
	GuardWindow      time.Duration `yaml:"guard-window" env-default:"5s"`
	DebounceInterval time.Duration `yaml:"debounce-interval" env-default:"400ms"`
	LapBonus         int           `yaml:"lap-bonus" env-default:"10"`
	TollAmount       int           `yaml:"toll-amount" env-default:"5"`
	BoostMultiplier  int           `yaml:"boost-multiplier" env-default:"2"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
