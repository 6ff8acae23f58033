package configs

type Configs struct {
	// App configuration
	AppName               string  `mapstructure:"app_name"`
	AppEnv                string  `mapstructure:"app_env"`
	AppLogLevel           string  `mapstructure:"app_log_level"`
	AppMetricSamplingRate float64 `mapstructure:"app_metric_sampling_rate"`
	AppPort               int     `mapstructure:"app_port"`

	// DAQ configuration
	DaqDriver        string  `mapstructure:"daq_driver"`
	DaqDeviceName    string  `mapstructure:"daq_device_name"`
	DaqChannels      string  `mapstructure:"daq_channels"`
	DaqSampleRate    float64 `mapstructure:"daq_sample_rate"`
	DaqSubscriberCap int     `mapstructure:"daq_subscriber_cap"`

	// Protocol configuration
	QuietStanceMs     int `mapstructure:"quiet_stance_ms"`
	TrialStartDelayMs int `mapstructure:"trial_start_delay_ms"`
	StandingTrialMs   int `mapstructure:"standing_trial_ms"`
	StimulusInterval  int `mapstructure:"stimulus_interval_samples"`

	// Storage configuration
	SqliteDbPath    string `mapstructure:"sqlite_db_path"`
	ExportDirectory string `mapstructure:"export_directory"`
	CompressExports bool   `mapstructure:"compress_exports"`

	// Maintenance configuration
	SelfTestCronExpression string `mapstructure:"self_test_cron_expression"`
	CleanupCronExpression  string `mapstructure:"cleanup_cron_expression"`
}

type DynamicConfigs struct{}
