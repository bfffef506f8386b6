package config

const (
	defaultDataDir               = "~/.local/share/orbit"
	defaultLogDir                = "~/.local/share/orbit/logs"
	defaultRAWGBaseURL           = "https://api.rawg.io/api"
	defaultRAWGTimeoutSeconds    = 15
	defaultBatchDelayMS          = 1000
	defaultCloudBackend          = "s3"
	defaultPushDebounceMS        = 1500
	defaultPollIntervalSeconds   = 30
	defaultS3Region              = "auto"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultAutoMatchIntervalMins = 0
	defaultAutoMatchOnAdd        = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		RAWG: RAWG{
			BaseURL:        defaultRAWGBaseURL,
			TimeoutSeconds: defaultRAWGTimeoutSeconds,
		},
		Matching: Matching{
			BatchDelayMS:             defaultBatchDelayMS,
			AutoMatchOnAdd:           defaultAutoMatchOnAdd,
			AutoMatchIntervalMinutes: defaultAutoMatchIntervalMins,
		},
		Cloud: Cloud{
			Backend:             defaultCloudBackend,
			PushDebounceMS:      defaultPushDebounceMS,
			PollIntervalSeconds: defaultPollIntervalSeconds,
			S3Region:            defaultS3Region,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
