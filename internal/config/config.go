package config

import (
	"encoding/json"
	"errors"
	"os"
)

// Config holds the publisher's process-wide configuration, loaded from a
// single config.json in the working directory. A template is written out
// on first run when the file is missing.
type Config struct {
	Database struct {
		Host               string `json:"host"`
		Port               uint64 `json:"port"`
		Username           string `json:"username"`
		Password           string `json:"password"`
		Database           string `json:"database"`
		UseTLS             bool   `json:"use_tls"`
		ConnectTimeout     string `json:"connect_timeout"`
		SocketTimeout      string `json:"socket_timeout"`
		ConnectIdleTimeout string `json:"connect_idle_timeout"`
		OperationTimeout   string `json:"operation_timeout"`
		Heartbeat          string `json:"heartbeat"`
		MinPoolSize        uint64 `json:"min_pool_size"`
		MaxPoolSize        uint64 `json:"max_pool_size"`
	} `json:"database"`

	Publisher struct {
		CommandChannelPort         int      `json:"command_channel_port"`
		MaxConcurrentSessions      int64    `json:"max_concurrent_sessions"`
		ReverseConnections         []string `json:"reverse_connections"`
		AllowTemporalSubscriptions bool     `json:"allow_temporal_subscriptions"`
		AllowNaNValueFilter        bool     `json:"allow_nan_value_filter"`
		ForceNaNValueFilter        bool     `json:"force_nan_value_filter"`
		UseBaseTimeOffsets         bool     `json:"use_base_time_offsets"`
		CipherKeysEnabled          bool     `json:"cipher_keys_enabled"`
	} `json:"publisher"`

	DebugMode bool   `json:"debug_mode"`
	AppName   string `json:"app_name"`
}

var config Config
var initialized = false

func ReadConfig() (Config, error) {
	bytes, err := os.ReadFile("config.json")

	if err != nil {
		writer, _ := os.OpenFile("config.json", os.O_WRONLY|os.O_CREATE, 0777)
		data, _ := json.MarshalIndent(defaultConfig(), "", "\t")
		_, _ = writer.Write(data)
		_ = writer.Close()
		return config, errors.New("the configuration file does not exist and has been created. Please try again after editing the configuration file")
	}

	err = json.Unmarshal(bytes, &config)

	if err != nil {
		return config, errors.New("the configuration file does not contain valid JSON")
	}

	initialized = true
	return config, nil
}

func GetConfig() (Config, error) {
	if initialized {
		return config, nil
	}
	return ReadConfig()
}

func defaultConfig() Config {
	var c Config
	c.AppName = "go-sttp-publisher"
	c.Database.Host = "localhost"
	c.Database.Port = 27017
	c.Database.Database = "sttp"
	c.Database.ConnectTimeout = "10s"
	c.Database.SocketTimeout = "30s"
	c.Database.ConnectIdleTimeout = "5m"
	c.Database.OperationTimeout = "5s"
	c.Database.Heartbeat = "10s"
	c.Database.MinPoolSize = 1
	c.Database.MaxPoolSize = 20
	c.Publisher.CommandChannelPort = 7175
	c.Publisher.MaxConcurrentSessions = 10000
	c.Publisher.AllowTemporalSubscriptions = true
	c.Publisher.AllowNaNValueFilter = true
	c.Publisher.UseBaseTimeOffsets = true
	return c
}
