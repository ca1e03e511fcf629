package config

import "encoding/json"

func toJSON(c *Config) ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
