package config

import (
	"fmt"
	"os"
	"strconv"

	yaml "gopkg.in/yaml.v3"
)

// Config is the process configuration. Values come from an optional YAML file
// with environment variables taking precedence for deployment-level settings.
type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"databaseUrl"`
	RedisURL    string `yaml:"redisUrl"`

	Geo     Geo     `yaml:"geo"`
	Routing Routing `yaml:"routing"`
	Sweep   Sweep   `yaml:"sweep"`
}

// Geo configures the geocoding provider chain.
type Geo struct {
	NominatimURL string `yaml:"nominatimUrl"`
	GoogleURL    string `yaml:"googleUrl"`
	GoogleKey    string `yaml:"googleKey"`
	Country      string `yaml:"country"` // ISO code restricting the paid geocoder
	TimeoutSec   int    `yaml:"timeoutSec"`
}

// Routing configures the route resolution chain and the directions-API
// token bucket.
type Routing struct {
	OSRMURL      string  `yaml:"osrmUrl"`
	GoogleURL    string  `yaml:"googleUrl"`
	GoogleKey    string  `yaml:"googleKey"`
	RatePerSec   float64 `yaml:"ratePerSec"`
	RateBurst    int     `yaml:"rateBurst"`
	TimeoutSec   int     `yaml:"timeoutSec"`
	AvgSpeedKmh  float64 `yaml:"avgSpeedKmh"` // haversine fallback estimate
}

// Sweep holds the engine parameters shared by all tenants.
type Sweep struct {
	KMax                 int     `yaml:"kMax"`
	Workers              int     `yaml:"workers"`
	MaxTransferWeightKg  float64 `yaml:"maxTransferWeightKg"`
	MaxTransferMin       float64 `yaml:"maxTransferMin"`
	LightMaxKg           float64 `yaml:"lightMaxKg"`
	LightRestricted      bool    `yaml:"lightRestricted"`
	AvgSpeedKmh          float64 `yaml:"avgSpeedKmh"`
	LightDwellMin        float64 `yaml:"lightDwellMin"`
	HeavyDwellMin        float64 `yaml:"heavyDwellMin"`
	PerVolumeUnloadMin   float64 `yaml:"perVolumeUnloadMin"`
	MaxLastMileMin       float64 `yaml:"maxLastMileMin"`
	ClusterMinDeliveries int     `yaml:"clusterMinDeliveries"`
	ClusterFixedCost     float64 `yaml:"clusterFixedCost"`
	ClusterVariableRate  float64 `yaml:"clusterVariableRate"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port: "8080",
		Geo: Geo{
			NominatimURL: "https://nominatim.openstreetmap.org",
			GoogleURL:    "https://maps.googleapis.com/maps/api/geocode/json",
			Country:      "br",
			TimeoutSec:   10,
		},
		Routing: Routing{
			OSRMURL:     "http://localhost:5000",
			GoogleURL:   "https://maps.googleapis.com/maps/api/directions/json",
			RatePerSec:  5,
			RateBurst:   5,
			TimeoutSec:  10,
			AvgSpeedKmh: 40,
		},
		Sweep: Sweep{
			KMax:                 10,
			Workers:              2,
			MaxTransferWeightKg:  12000,
			MaxTransferMin:       600,
			LightMaxKg:           3500,
			LightRestricted:      true,
			AvgSpeedKmh:          30,
			LightDwellMin:        5,
			HeavyDwellMin:        10,
			PerVolumeUnloadMin:   1.5,
			MaxLastMileMin:       480,
			ClusterMinDeliveries: 30,
			ClusterFixedCost:     350,
			ClusterVariableRate:  9.5,
		},
	}
}

// Load reads the YAML file at path (if present) over the defaults, then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("NOMINATIM_URL"); v != "" {
		c.Geo.NominatimURL = v
	}
	if v := os.Getenv("GOOGLE_GEOCODE_URL"); v != "" {
		c.Geo.GoogleURL = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		c.Geo.GoogleKey = v
		c.Routing.GoogleKey = v
	}
	if v := os.Getenv("OSRM_URL"); v != "" {
		c.Routing.OSRMURL = v
	}
	if v := os.Getenv("GOOGLE_DIRECTIONS_URL"); v != "" {
		c.Routing.GoogleURL = v
	}
	if v := os.Getenv("DIRECTIONS_RATE_PER_SEC"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.Routing.RatePerSec = f
		}
	}
	if v := os.Getenv("SWEEP_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Sweep.Workers = n
		}
	}
	if v := os.Getenv("SWEEP_K_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			c.Sweep.KMax = n
		}
	}
}
