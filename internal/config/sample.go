package config

// SampleConfig returns a fully documented configuration file
func SampleConfig() string {
	return `# vftail configuration
version: "1.0"

# Header detection and plausibility bounds.
# Each header pattern needs a capture group for the core number,
# preferably named "index".
parser:
  voltage_header_pattern: 'Core\s+(?P<index>\d+)\s+VID'
  clock_header_pattern: 'Core\s+(?P<index>\d+)\s+Clock'
  min_voltage: 0
  max_voltage: 2
  min_clock: 0
  max_clock: 10000

# How the log is followed while the monitoring tool writes it.
tail:
  poll_interval: 500ms
  follow: true
  use_fsnotify: true

output:
  format: text        # text|json|markdown|csv
  color_mode: auto    # auto|always|never
  emoji: true
  verbose: false

# Scatter chart. Leave path empty to disable the live PNG in watch mode.
chart:
  path: ""
  width: 1024
  height: 768
  refresh_interval: 2s
  title: "VF Chart"

# Prometheus endpoint. Leave listen_addr empty to disable it.
metrics:
  listen_addr: ""
  namespace: vftail
  path: /metrics

logging:
  format: text        # text|json
  file: ""            # stderr when empty
`
}

// MinimalSampleConfig returns a configuration with only the common settings
func MinimalSampleConfig() string {
	return `version: "1.0"
parser:
  max_voltage: 2
  max_clock: 10000
tail:
  poll_interval: 500ms
output:
  format: text
`
}
