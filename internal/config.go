package internal

import (
	"fmt"

	"github.com/spf13/viper"
)

type PetrelConfig struct {
	AppName string `mapstructure:"app_name"`

	Storage struct {
		Mode         string `mapstructure:"mode"` // "file" or "memory"
		Workdir      string `mapstructure:"workdir"`
		PoolCapacity int    `mapstructure:"pool_capacity"`
	} `mapstructure:"storage"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

func LoadConfig(path string) (*PetrelConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("app_name", "petrel")
	v.SetDefault("storage.mode", "file")
	v.SetDefault("storage.workdir", "petrel_data")
	v.SetDefault("storage.pool_capacity", 128)
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg PetrelConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
