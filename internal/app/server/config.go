package server

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port string

	TickInterval  time.Duration
	MatchDuration time.Duration
	ReadyTimeout  time.Duration
	PullWindow    time.Duration
	PullCooldown  time.Duration
	BaseStrength  float64
	TickScale     float64
}

func NewConfig() Config {
	var config Config

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs/server")
	viper.AddConfigPath(".")
	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	config.Port = viper.GetString("Server.Port")
	config.TickInterval = getDuration("Game.TickInterval")
	config.MatchDuration = getDuration("Game.MatchDuration")
	config.ReadyTimeout = getDuration("Game.ReadyTimeout")
	config.PullWindow = getDuration("Game.PullWindow")
	config.PullCooldown = getDuration("Game.PullCooldown")
	config.BaseStrength = viper.GetFloat64("Game.BaseStrength")
	config.TickScale = viper.GetFloat64("Game.TickScale")

	return config
}

func getDuration(key string) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}
	return d
}
