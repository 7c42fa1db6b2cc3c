package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				Enabled:   false,
				ParseMode: "",
			},
			CLI: CLIConfig{
				Enabled: true,
			},
		},
		Paste: PasteConfig{
			TimeoutSeconds: 30,
		},
		Shortener: ShortenerConfig{
			TimeoutSeconds: 15,
		},
		Queue: QueueConfig{
			BufferSize: 64,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "~/.pastebot/history.db",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Addr:     "127.0.0.1:9091",
			Endpoint: "/metrics",
		},
	}
}
