package twitch

import (
	"github.com/spf13/viper"
)

type Config struct {
	ClientId     string
	ClientSecret string
	RedirectUri  string

	IdentitySecret string
	PullCommand    string
}

func LoadConfig() (Config, error) {
	var config Config

	// List of env files to load
	envFiles := []string{
		"./configs/twitch/app.env",
	}
	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, err
	}

	config.ClientId = viper.GetString("TWITCH_CLIENT_ID")
	config.ClientSecret = viper.GetString("TWITCH_CLIENT_SECRET")
	config.RedirectUri = viper.GetString("TWITCH_REDIRECT_URI")
	config.IdentitySecret = viper.GetString("IDENTITY_SECRET")
	config.PullCommand = viper.GetString("PULL_COMMAND")
	if config.PullCommand == "" {
		config.PullCommand = "!pull"
	}

	return config, nil
}

func loadEnvFiles(filenames []string) error {
	for _, file := range filenames {
		viper.SetConfigFile(file) // Set specific file
		viper.SetConfigType("env")
		viper.AutomaticEnv() // Allow override by OS environment variables

		if err := viper.MergeInConfig(); err != nil {
			return err
		}
	}
	return nil
}
