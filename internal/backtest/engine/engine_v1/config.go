package engine

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"

	"github.com/jxwng/cvxportfolio/internal/policy"
)

// PolicyType selects the trading policy the simulator runs.
type PolicyType string

const (
	PolicyTypeHold    PolicyType = "hold"
	PolicyTypeUniform PolicyType = "uniform"
	PolicyTypeSPO     PolicyType = "spo"
	PolicyTypeMPO     PolicyType = "mpo"
)

// AllPolicyTypes lists the accepted policy type values, for schema enums.
var AllPolicyTypes = []any{
	string(PolicyTypeHold), string(PolicyTypeUniform), string(PolicyTypeSPO), string(PolicyTypeMPO),
}

// CostConfig holds the transaction and holding cost parameters.
type CostConfig struct {
	SpreadBps     float64 `yaml:"spread_bps" json:"spread_bps" jsonschema:"title=Spread,description=Bid-ask spread in basis points,minimum=0" validate:"gte=0"`
	ImpactCoeff   float64 `yaml:"impact_coeff" json:"impact_coeff" jsonschema:"title=Impact Coefficient,description=Market impact coefficient for the 3/2-power term,minimum=0" validate:"gte=0"`
	BorrowRateBps float64 `yaml:"borrow_rate_bps" json:"borrow_rate_bps" jsonschema:"title=Borrow Rate,description=Per-period borrow rate on short positions in basis points,minimum=0" validate:"gte=0"`
}

// PolicyConfig holds the policy selection and its parameters. The constraint
// fields apply to the optimization policies only.
type PolicyConfig struct {
	Type         PolicyType         `yaml:"type" json:"type" jsonschema:"title=Policy Type,description=The trading policy to back-test" validate:"required,oneof=hold uniform spo mpo"`
	Horizon      int                `yaml:"horizon" json:"horizon" jsonschema:"title=Horizon,description=Planning horizon of the multi-period policy,minimum=1" validate:"omitempty,gte=0"`
	RiskAversion float64            `yaml:"risk_aversion" json:"risk_aversion" jsonschema:"title=Risk Aversion,description=Weight of the covariance risk term,minimum=0" validate:"gte=0"`
	Discount     float64            `yaml:"discount" json:"discount" jsonschema:"title=Discount,description=Per-step discount over the planning horizon,minimum=0,maximum=1" validate:"gte=0,lte=1"`
	Leverage     float64            `yaml:"leverage" json:"leverage" jsonschema:"title=Leverage,description=Target leverage of the uniform policy" validate:"gte=0"`
	Fallback     policy.Fallback    `yaml:"fallback" json:"fallback" jsonschema:"title=Fallback,description=What to do when the optimization fails" validate:"omitempty,oneof=none hold"`
	Constraints  policy.Constraints `yaml:"constraints" json:"constraints" jsonschema:"-"`
}

// UnmarshalYAML implements custom unmarshaling for PolicyConfig: the optional
// constraint bounds arrive as plain scalars and become Options.
func (c *PolicyConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Config struct {
		Type         PolicyType      `yaml:"type"`
		Horizon      int             `yaml:"horizon"`
		RiskAversion float64         `yaml:"risk_aversion"`
		Discount     float64         `yaml:"discount"`
		Leverage     float64         `yaml:"leverage"`
		Fallback     policy.Fallback `yaml:"fallback"`
		Constraints  struct {
			LeverageLimit *float64 `yaml:"leverage_limit"`
			LongOnly      bool     `yaml:"long_only"`
			MinWeight     *float64 `yaml:"min_weight"`
			MaxWeight     *float64 `yaml:"max_weight"`
			TurnoverLimit *float64 `yaml:"turnover_limit"`
		} `yaml:"constraints"`
	}

	var config Config
	if err := unmarshal(&config); err != nil {
		return err
	}

	c.Type = config.Type
	c.Horizon = config.Horizon
	c.RiskAversion = config.RiskAversion
	c.Discount = config.Discount
	c.Leverage = config.Leverage
	c.Fallback = config.Fallback
	c.Constraints = policy.Constraints{
		LeverageLimit: optional.FromNillable(config.Constraints.LeverageLimit),
		LongOnly:      config.Constraints.LongOnly,
		MinWeight:     optional.FromNillable(config.Constraints.MinWeight),
		MaxWeight:     optional.FromNillable(config.Constraints.MaxWeight),
		TurnoverLimit: optional.FromNillable(config.Constraints.TurnoverLimit),
	}

	return nil
}

type SimulatorV1Config struct {
	InitialCapital float64               `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting cash for the backtest in USD,minimum=0" validate:"gt=0"`
	StartPeriod    optional.Option[int]  `yaml:"start_period" json:"start_period" jsonschema:"title=Start Period,description=Optional first simulated period index"`
	EndPeriod      optional.Option[int]  `yaml:"end_period" json:"end_period" jsonschema:"title=End Period,description=Optional end period index (exclusive)"`
	MinHistory     int                   `yaml:"min_history" json:"min_history" jsonschema:"title=Minimum History,description=Past periods required before the first simulated period,minimum=1" validate:"gte=1"`
	PeriodsPerYear float64               `yaml:"periods_per_year" json:"periods_per_year" jsonschema:"title=Periods Per Year,description=Annualization factor for the report" validate:"gt=0"`
	RoundShares    bool                  `yaml:"round_shares" json:"round_shares" jsonschema:"title=Round Shares,description=Round dollar trades to whole share counts when prices are known"`
	SolveSeconds   float64               `yaml:"solve_seconds" json:"solve_seconds" jsonschema:"title=Solve Budget,description=Per-period solver wall-clock budget in seconds,minimum=0" validate:"gte=0"`
	Costs          CostConfig            `yaml:"costs" json:"costs"`
	Policy         PolicyConfig          `yaml:"policy" json:"policy"`
}

// UnmarshalYAML implements custom unmarshaling for SimulatorV1Config.
func (c *SimulatorV1Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Config struct {
		InitialCapital float64      `yaml:"initial_capital"`
		StartPeriod    *int         `yaml:"start_period"`
		EndPeriod      *int         `yaml:"end_period"`
		MinHistory     int          `yaml:"min_history"`
		PeriodsPerYear float64      `yaml:"periods_per_year"`
		RoundShares    bool         `yaml:"round_shares"`
		SolveSeconds   float64      `yaml:"solve_seconds"`
		Costs          CostConfig   `yaml:"costs"`
		Policy         PolicyConfig `yaml:"policy"`
	}

	var config Config
	if err := unmarshal(&config); err != nil {
		return err
	}

	c.InitialCapital = config.InitialCapital
	c.StartPeriod = optional.FromNillable(config.StartPeriod)
	c.EndPeriod = optional.FromNillable(config.EndPeriod)
	c.MinHistory = config.MinHistory
	c.PeriodsPerYear = config.PeriodsPerYear
	c.RoundShares = config.RoundShares
	c.SolveSeconds = config.SolveSeconds
	c.Costs = config.Costs
	c.Policy = config.Policy

	return nil
}

// Validate checks the configuration. Tag-based rules run through the
// validator; the cross-field rules the tags cannot express run by hand.
func (c *SimulatorV1Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Policy.Type == PolicyTypeMPO && c.Policy.Horizon < 1 {
		return fmt.Errorf("invalid config: policy horizon must be at least 1 for %s", PolicyTypeMPO)
	}

	if c.StartPeriod.IsSome() && c.StartPeriod.Unwrap() < 0 {
		return fmt.Errorf("invalid config: start_period must be non-negative")
	}

	if c.StartPeriod.IsSome() && c.EndPeriod.IsSome() && c.EndPeriod.Unwrap() <= c.StartPeriod.Unwrap() {
		return fmt.Errorf("invalid config: end_period must be after start_period")
	}

	return nil
}

// GenerateSchema generates a JSON schema for the SimulatorV1Config.
func (c *SimulatorV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[int]" {
				return &jsonschema.Schema{
					Type: "integer",
				}
			}
			if t.String() == "engine.PolicyType" {
				return &jsonschema.Schema{
					Type: "string",
					Enum: AllPolicyTypes,
				}
			}
			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "simulator-v1-config"
	schema.Description = "Configuration schema for SimulatorV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the SimulatorV1Config.
func (c *SimulatorV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// TestConfig returns a small valid configuration used by tests.
func TestConfig(initialCapital float64, policyType PolicyType) SimulatorV1Config {
	config := EmptyConfig()
	config.InitialCapital = initialCapital
	config.Policy.Type = policyType

	return config
}

// EmptyConfig returns a SimulatorV1Config with default values.
func EmptyConfig() SimulatorV1Config {
	return SimulatorV1Config{
		InitialCapital: 0,
		StartPeriod:    optional.None[int](),
		EndPeriod:      optional.None[int](),
		MinHistory:     1,
		PeriodsPerYear: 252,
		RoundShares:    false,
		SolveSeconds:   30,
		Costs:          CostConfig{},
		Policy: PolicyConfig{
			Type:         PolicyTypeHold,
			Horizon:      1,
			RiskAversion: 0,
			Discount:     1,
			Leverage:     1,
			Fallback:     policy.FallbackNone,
		},
	}
}
