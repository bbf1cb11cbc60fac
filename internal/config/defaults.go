package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Discord: DiscordConfig{},
		Schedule: ScheduleConfig{
			Path: "~/.sendbot/schedule.json",
		},
		Browser: BrowserConfig{
			ProfileDir:               "~/.sendbot/chrome-profile",
			SelectorsPath:            "~/.sendbot/selectors.yaml",
			NavigationTimeoutSeconds: 60,
		},
		History: HistoryConfig{
			Enabled:       true,
			DBPath:        "~/.sendbot/history.db",
			RetentionDays: 30,
		},
		Notify: NotifyConfig{
			Telegram: TelegramNotifyConfig{
				Enabled: false,
			},
		},
	}
}
