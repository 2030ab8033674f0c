package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func writeConfig(c *qt.C, content string) string {
	path := filepath.Join(c.TempDir(), "config.yaml")
	c.Assert(os.WriteFile(path, []byte(content), 0o600), qt.IsNil)
	return path
}

func TestInit(t *testing.T) {
	c := qt.New(t)
	c.Cleanup(func() { Config = AppConfig{} })

	path := writeConfig(c, `
inference:
  endpointid: ep-1
  apikey: key
cache:
  enabled: true
  redis:
    redisoptions:
      addr: localhost:6380
influxdb:
  enabled: true
  url: http://localhost:8086
  bucket: traffic
`)
	c.Setenv("CFG_INFERENCE_APISECRET", "from-env")
	c.Setenv("CFG_TRACKER_MINTRACKLENGTH", "8")

	c.Assert(Init(path), qt.IsNil)

	c.Check(Config.Inference.Host, qt.Equals, "https://predict.app.landing.ai")
	c.Check(Config.Inference.EndpointID, qt.Equals, "ep-1")
	c.Check(Config.Inference.APIKey, qt.Equals, "key")
	c.Check(Config.Inference.APISecret, qt.Equals, "from-env")
	c.Check(Config.Inference.Timeout, qt.Equals, 30*time.Second)
	c.Check(Config.Cache.Enabled, qt.IsTrue)
	c.Check(Config.Cache.TTL, qt.Equals, time.Hour)
	c.Check(Config.Cache.Redis.RedisOptions.Addr, qt.Equals, "localhost:6380")
	c.Check(Config.Tracker, qt.Equals, TrackerConfig{
		IOUThreshold:       0.3,
		MinTrackLength:     8,
		ParkedDisplacement: 10,
	})
	c.Check(Config.InfluxDB.Bucket, qt.Equals, "traffic")
}

func TestInit_MissingFile(t *testing.T) {
	c := qt.New(t)
	c.Cleanup(func() { Config = AppConfig{} })

	err := Init(filepath.Join(c.TempDir(), "missing.yaml"))
	c.Check(err, qt.ErrorIs, os.ErrNotExist)
}

func TestValidateConfig(t *testing.T) {
	c := qt.New(t)

	valid := func() AppConfig {
		return AppConfig{Tracker: TrackerConfig{IOUThreshold: 0.3, MinTrackLength: 5, ParkedDisplacement: 10}}
	}

	testCases := []struct {
		name   string
		mutate func(*AppConfig)
		err    string
	}{
		{name: "ok", mutate: func(*AppConfig) {}},
		{name: "nok - zero iou", mutate: func(cfg *AppConfig) { cfg.Tracker.IOUThreshold = 0 }, err: "tracker.iouthreshold .*"},
		{name: "nok - iou above one", mutate: func(cfg *AppConfig) { cfg.Tracker.IOUThreshold = 1.2 }, err: "tracker.iouthreshold .*"},
		{name: "nok - zero track length", mutate: func(cfg *AppConfig) { cfg.Tracker.MinTrackLength = 0 }, err: "tracker.mintracklength .*"},
		{name: "nok - negative displacement", mutate: func(cfg *AppConfig) { cfg.Tracker.ParkedDisplacement = -1 }, err: "tracker.parkeddisplacement .*"},
		{name: "nok - influx without url", mutate: func(cfg *AppConfig) { cfg.InfluxDB.Enabled = true }, err: "influxdb.url .*"},
	}

	for _, tc := range testCases {
		c.Run(tc.name, func(c *qt.C) {
			cfg := valid()
			tc.mutate(&cfg)
			err := ValidateConfig(&cfg)
			if tc.err == "" {
				c.Check(err, qt.IsNil)
				return
			}
			c.Check(err, qt.ErrorMatches, tc.err)
		})
	}
}
