package servertest

import (
	"github.com/spf13/viper"
	"github.com/tugochat/tugochat/pkg/logging"
	"go.uber.org/zap"
)

type Config struct {
	ServerUrl      string
	IdentitySecret string
}

func LoadConfig() (Config, error) {
	var cfg Config

	// List of env files to load
	envFiles := []string{
		"./configs/servertest/app.env",
	}

	err := loadEnvFiles(envFiles)
	if err != nil {
		logging.Fatal("fatal error config file", zap.Error(err))
	}

	cfg.ServerUrl = viper.GetString("SERVER_URL")
	if cfg.ServerUrl == "" {
		cfg.ServerUrl = "ws://localhost:8000/ws"
	}
	cfg.IdentitySecret = viper.GetString("IDENTITY_SECRET")

	return cfg, nil
}

func loadEnvFiles(filenames []string) error {
	for _, file := range filenames {
		viper.SetConfigFile(file)
		viper.SetConfigType("env")
		viper.AutomaticEnv()

		err := viper.MergeInConfig()
		if err != nil {
			return err
		}
	}
	return nil
}
