package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string `yaml:"log-level" env-default:"info"`
	HTTPPort   string `yaml:"http-port" env-default:"9090"`
	SocketPort string `yaml:"socket-port" env-default:"9091"`
	Redis      Redis  `yaml:"redis"`
	Game       Game   `yaml:"game"`
}

type Redis struct {
	Host string `yaml:"host" env-default:"localhost"`
	Port string `yaml:"port" env-default:"6379"`
}

// Game carries the session timings and room-code settings: a draw every 4s,
// stun clears after 3s, a shield holds for 10s.
type Game struct {
	DrawInterval      time.Duration `yaml:"draw-interval" env-default:"4s"`
	StunDuration      time.Duration `yaml:"stun-duration" env-default:"3s"`
	ShieldDuration    time.Duration `yaml:"shield-duration" env-default:"10s"`
	RoomCodeLength    int           `yaml:"room-code-length" env-default:"6"`
	RoomCreateRetries int           `yaml:"room-create-retries" env-default:"5"`
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
