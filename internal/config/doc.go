// Package config loads the serialbridge configuration from a YAML file.
//
// Config fields:
//   - HTTPPort               : port for the dashboard, REST API and WebSocket (default 3000)
//   - LogLevel               : debug | info | warn | error (default info)
//   - Mock.Enabled           : offer the simulated source (default true)
//   - Mock.Interval          : time between simulated readings (default 1s)
//   - Mock.SmoothingFactor   : 0..1 exponential smoothing of simulated values (default 0)
//   - Serial.DefaultBaudRate : used when a connect request omits baudRate (default 9600)
//   - Serial.MaxLineBytes    : longest accepted serial line (default 64 KiB)
//   - Latest.TTL             : how long the last reading per source is served (default 5m)
//
// Load(path) applies defaults before unmarshalling, then validates. An empty
// path yields the defaults. Watch(ctx, path, current, fn) reloads on file
// changes and hands fn both the previous and the new Config.
package config
