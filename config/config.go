package config

import (
	"fmt"
	"log"
	"strings"

	"twitter-notifier/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadConfig 从多个源加载配置：.env 文件和 config.yaml。
// 配置加载顺序:
// 1. .env 文件 (用于环境变量)
// 2. config.yaml (基础配置)
// 环境变量会覆盖配置文件中的同名设置。
func LoadConfig() {
	// 1. 从 .env 文件加载环境变量，如果文件不存在则忽略。
	if err := godotenv.Load(); err != nil {
		log.Printf("未找到 .env 文件，将跳过加载。")
	}

	// 2. 设置并读取基础配置文件 (config.yaml)。
	viper.SetConfigName("config")                          // 配置文件名 (无扩展名)
	viper.SetConfigType("yaml")                            // 配置文件类型
	viper.AddConfigPath(".")                               // 在当前工作目录中查找
	viper.AutomaticEnv()                                   // 自动读取匹配的环境变量
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 将配置键中的'.'替换为'_'以匹配环境变量

	viper.SetDefault("twitter.baseUrl", "https://twitter.com")
	viper.SetDefault("twitter.mirrorUrl", "https://nitter.net")
	viper.SetDefault("twitter.dbPath", "./data/twitter.db")
	viper.SetDefault("twitter.pollInterval", 60)
	viper.SetDefault("twitter.pacing", 1)
	viper.SetDefault("twitter.fetchTimeout", 15)

	// 读取基础配置。
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// 配置文件未找到是正常情况，可以继续。
			log.Printf("未找到基础配置文件 (config.yaml)，将仅使用环境变量和默认值。")
		} else {
			// 如果找到配置文件但解析出错，则终止程序。
			panic(fmt.Errorf("解析基础配置文件时发生致命错误: %w", err))
		}
	}
}

// Twitter decodes the twitter section of the loaded configuration.
func Twitter() (models.TwitterConfig, error) {
	var cfg models.TwitterConfig
	if err := viper.UnmarshalKey("twitter", &cfg); err != nil {
		return models.TwitterConfig{}, fmt.Errorf("failed to decode twitter config: %w", err)
	}
	return cfg, nil
}
