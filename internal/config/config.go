// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"robotnav/internal/marker"
	"robotnav/internal/nav"
)

// Robot describes the physical robot.
type Robot struct {
	Radius             float64 `yaml:"radius"`
	ClosenessThreshold float64 `yaml:"closeness_threshold"`
}

// Perception holds the ultrasonic thresholds in metres.
type Perception struct {
	LongDistance   float64 `yaml:"long_distance"`
	MediumDistance float64 `yaml:"medium_distance"`
	ShortDistance  float64 `yaml:"short_distance"`
}

// Markers is either an arena grid or an explicit list. An explicit list
// takes precedence.
type Markers struct {
	Width   float64         `yaml:"width"`
	Height  float64         `yaml:"height"`
	Spacing float64         `yaml:"spacing"`
	List    []marker.Marker `yaml:"list,omitempty"`
}

// Point is a target position.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Topics names every MQTT topic the navigator uses.
type Topics struct {
	Mode           string `yaml:"mode"`
	ManualCommands string `yaml:"manual_commands"`
	AutoCommands   string `yaml:"auto_commands"`
	Perceptions    string `yaml:"perceptions"`
	Tags           string `yaml:"tags"`
	Actions        string `yaml:"actions"`
	Position       string `yaml:"position"`
	Arrived        string `yaml:"arrived"`
	// Sensors carries raw sonar ranges. When set, the navigator thresholds
	// them itself and publishes the result on Perceptions.
	Sensors        string `yaml:"sensors,omitempty"`
}

// MQTT configures the broker connection.
type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	QoS      int    `yaml:"qos"`
	Topics   Topics `yaml:"topics"`
}

// Obstacle is a circular obstacle in the simulated arena.
type Obstacle struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Radius float64 `yaml:"radius"`
}

// StartPose places the simulated robot.
type StartPose struct {
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Heading float64 `yaml:"heading"`
}

// Simulation configures the closed-loop arena simulator.
type Simulation struct {
	Start         StartPose     `yaml:"start"`
	Obstacles     []Obstacle    `yaml:"obstacles,omitempty"`
	WallMargin    float64       `yaml:"wall_margin"`
	CameraFOVDeg  float64       `yaml:"camera_fov_deg"`
	CameraRangeM  float64       `yaml:"camera_range_m"`
	SonarRangeM   float64       `yaml:"sonar_range_m"`
	DistanceNoise float64       `yaml:"distance_noise"`
	AngleNoiseDeg float64       `yaml:"angle_noise_deg"`
	TickInterval  time.Duration `yaml:"tick_interval"`
	SpeedFactor   float64       `yaml:"speed_factor"`
	Mission       string        `yaml:"mission"`
	MissionFile   string        `yaml:"mission_file,omitempty"`
	Seed          int64         `yaml:"seed"`
}

// NavigatorConfig is the root configuration.
type NavigatorConfig struct {
	Robot      Robot            `yaml:"robot"`
	Perception Perception       `yaml:"perception"`
	Markers    Markers          `yaml:"markers"`
	Targets    map[string]Point `yaml:"targets"`
	MQTT       MQTT             `yaml:"mqtt"`
	Simulation Simulation       `yaml:"simulation"`
}

// Default returns the configuration of the reference arena: a 1.5m square
// with markers every 0.5m and five targets.
func Default() *NavigatorConfig {
	cfg := &NavigatorConfig{}
	cfg.applyDefaults()
	return cfg
}

// Load loads YAML config and validates it against a CUE schema. An empty
// schema path selects the embedded schema.
func Load(configPath, cueSchemaPath string) (*NavigatorConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg NavigatorConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *NavigatorConfig) applyDefaults() {
	if c.Robot.Radius == 0 {
		c.Robot.Radius = 0.2
	}
	if c.Robot.ClosenessThreshold == 0 {
		c.Robot.ClosenessThreshold = c.Robot.Radius / 2
	}
	if c.Perception.LongDistance == 0 {
		c.Perception.LongDistance = 0.4
	}
	if c.Perception.MediumDistance == 0 {
		c.Perception.MediumDistance = 0.25
	}
	if c.Perception.ShortDistance == 0 {
		c.Perception.ShortDistance = 0.1
	}
	if len(c.Markers.List) == 0 {
		if c.Markers.Width == 0 {
			c.Markers.Width = 1.5
		}
		if c.Markers.Height == 0 {
			c.Markers.Height = 1.5
		}
		if c.Markers.Spacing == 0 {
			c.Markers.Spacing = 0.5
		}
	}
	if len(c.Targets) == 0 {
		c.Targets = map[string]Point{
			"1": {X: 0.5, Y: 0.5},
			"2": {X: 0.5, Y: -0.5},
			"3": {X: -0.5, Y: -0.5},
			"4": {X: 0, Y: 0},
			"5": {X: -0.5, Y: 0.5},
		}
	}

	m := &c.MQTT
	if m.Broker == "" {
		m.Broker = "tcp://localhost:1883"
	}
	if m.ClientID == "" {
		m.ClientID = "robotnav"
	}
	t := &m.Topics
	setDefault(&t.Mode, "/mode")
	setDefault(&t.ManualCommands, "/commands_manual")
	setDefault(&t.AutoCommands, "/commands_auto")
	setDefault(&t.Perceptions, "/perceptions")
	setDefault(&t.Tags, "/tags")
	setDefault(&t.Actions, "/actions")
	setDefault(&t.Position, "/position")
	setDefault(&t.Arrived, "/gesture_confirm")

	s := &c.Simulation
	if s.WallMargin == 0 {
		s.WallMargin = 0.25
	}
	if s.CameraFOVDeg == 0 {
		s.CameraFOVDeg = 60
	}
	if s.CameraRangeM == 0 {
		s.CameraRangeM = 1.5
	}
	if s.SonarRangeM == 0 {
		s.SonarRangeM = 2
	}
	if s.TickInterval == 0 {
		s.TickInterval = 100 * time.Millisecond
	}
	if s.SpeedFactor == 0 {
		s.SpeedFactor = 1
	}
	if s.Mission == "" && s.MissionFile == "" {
		s.Mission = "tour"
	}
}

func setDefault(s *string, v string) {
	if *s == "" {
		*s = v
	}
}

// check enforces the cross-field rules the schema cannot express.
func (c *NavigatorConfig) check() error {
	p := c.Perception
	if !(p.ShortDistance < p.MediumDistance && p.MediumDistance < p.LongDistance) {
		return fmt.Errorf("perception thresholds must satisfy short < medium < long, got %v/%v/%v",
			p.ShortDistance, p.MediumDistance, p.LongDistance)
	}
	if _, ok := c.Targets[nav.StopTarget]; ok {
		return fmt.Errorf("target id %q is reserved", nav.StopTarget)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt qos %d: want 0, 1 or 2", c.MQTT.QoS)
	}
	return nil
}

// Grid builds the marker table.
func (c *NavigatorConfig) Grid() (*marker.Grid, error) {
	if len(c.Markers.List) > 0 {
		return marker.FromList(c.Markers.List)
	}
	return marker.Arena(c.Markers.Width, c.Markers.Height, c.Markers.Spacing)
}

// NavTargets converts the configured targets into navigation targets.
func (c *NavigatorConfig) NavTargets() map[string]nav.Target {
	out := make(map[string]nav.Target, len(c.Targets))
	for id, p := range c.Targets {
		out[id] = nav.Target{ID: id, X: p.X, Y: p.Y}
	}
	return out
}

// Controller assembles the navigation controller configuration.
func (c *NavigatorConfig) Controller() (nav.Config, error) {
	grid, err := c.Grid()
	if err != nil {
		return nav.Config{}, err
	}
	return nav.Config{
		RobotRadius:        c.Robot.Radius,
		ClosenessThreshold: c.Robot.ClosenessThreshold,
		Targets:            c.NavTargets(),
		Markers:            grid,
	}, nil
}
