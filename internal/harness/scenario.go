package harness

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Game names accepted in scenarios.
const (
	GameMatch = "match"
	GameQuiz  = "quiz"
)

// Step action names, also used in trace frames.
const (
	ActionStart      = "start"
	ActionReveal     = "reveal"
	ActionSelect     = "select"
	ActionCloseMedia = "close_media"
	ActionAdvance    = "advance"
)

// Scenario is a scripted play session.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Game selects the engine: match or quiz.
	Game string `yaml:"game"`

	// Seed seeds the card shuffle. Ignored by the quiz.
	Seed uint64 `yaml:"seed,omitempty"`

	// Player, when set, records the finished game for this player.
	Player string `yaml:"player,omitempty"`

	// Config overrides engine budgets. Zero fields keep the defaults.
	Config GameConfig `yaml:"config,omitempty"`

	// Steps are executed in order after the game starts.
	Steps []Step `yaml:"steps"`

	// Final is matched against the state after the last step.
	Final map[string]any `yaml:"final,omitempty"`
}

// GameConfig overrides engine budgets for short scenarios.
type GameConfig struct {
	Parts     int `yaml:"parts,omitempty"`
	Pairs     int `yaml:"pairs,omitempty"`
	Moves     int `yaml:"moves,omitempty"`
	Seconds   int `yaml:"seconds,omitempty"`
	Questions int `yaml:"questions,omitempty"`
}

// Step is one scripted action. Exactly one action field is set.
type Step struct {
	Reveal     string `yaml:"reveal,omitempty"`
	Select     *int   `yaml:"select,omitempty"`
	CloseMedia bool   `yaml:"close_media,omitempty"`
	Advance    string `yaml:"advance,omitempty"`

	// Expect is a subset match against the state after the step. The key
	// "applied" checks whether the engine accepted the action.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Action returns the step's action name and argument.
func (s Step) Action() (name, arg string) {
	switch {
	case s.Reveal != "":
		return ActionReveal, s.Reveal
	case s.Select != nil:
		return ActionSelect, strconv.Itoa(*s.Select)
	case s.CloseMedia:
		return ActionCloseMedia, ""
	case s.Advance != "":
		return ActionAdvance, s.Advance
	default:
		return "", ""
	}
}

func (s Step) actionCount() int {
	n := 0
	if s.Reveal != "" {
		n++
	}
	if s.Select != nil {
		n++
	}
	if s.CloseMedia {
		n++
	}
	if s.Advance != "" {
		n++
	}
	return n
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields (catches typos like "step:" vs "steps:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Game != GameMatch && s.Game != GameQuiz {
		return fmt.Errorf("game must be %q or %q, got %q", GameMatch, GameQuiz, s.Game)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	c := s.Config
	if c.Parts < 0 || c.Pairs < 0 || c.Moves < 0 || c.Seconds < 0 || c.Questions < 0 {
		return fmt.Errorf("config values must be non-negative")
	}
	if s.Game == GameQuiz && (c.Parts != 0 || c.Pairs != 0 || c.Moves != 0) {
		return fmt.Errorf("config: parts, pairs and moves only apply to the match game")
	}
	if s.Game == GameMatch && c.Questions != 0 {
		return fmt.Errorf("config: questions only applies to the quiz")
	}

	for i, step := range s.Steps {
		if n := step.actionCount(); n != 1 {
			return fmt.Errorf("steps[%d]: exactly one action is required, got %d", i, n)
		}
		name, _ := step.Action()
		switch name {
		case ActionReveal:
			if s.Game != GameMatch {
				return fmt.Errorf("steps[%d]: reveal only applies to the match game", i)
			}
		case ActionSelect, ActionCloseMedia:
			if s.Game != GameQuiz {
				return fmt.Errorf("steps[%d]: %s only applies to the quiz", i, name)
			}
		case ActionAdvance:
			d, err := time.ParseDuration(step.Advance)
			if err != nil {
				return fmt.Errorf("steps[%d]: advance: %w", i, err)
			}
			if d <= 0 {
				return fmt.Errorf("steps[%d]: advance must be positive", i)
			}
		}
	}
	return nil
}
