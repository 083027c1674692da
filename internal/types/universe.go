package types

import (
	"fmt"
)

// DefaultCashKey is the identifier used for the cash account when none is
// configured.
const DefaultCashKey = "USDOLLAR"

// Universe is the ordered set of asset identifiers for a simulation run.
// The last element is always the cash (risk-free) account.
type Universe struct {
	// Assets holds the asset identifiers, cash key last.
	Assets []string `yaml:"assets"`
}

// NewUniverse builds a universe from non-cash asset names plus a cash key.
func NewUniverse(assets []string, cashKey string) Universe {
	if cashKey == "" {
		cashKey = DefaultCashKey
	}

	all := make([]string, 0, len(assets)+1)
	all = append(all, assets...)
	all = append(all, cashKey)

	return Universe{Assets: all}
}

// Size returns the number of members including the cash account.
func (u Universe) Size() int {
	return len(u.Assets)
}

// NumAssets returns the number of non-cash assets.
func (u Universe) NumAssets() int {
	if len(u.Assets) == 0 {
		return 0
	}

	return len(u.Assets) - 1
}

// CashIndex returns the index of the cash account (always the last slot).
func (u Universe) CashIndex() int {
	return len(u.Assets) - 1
}

// CashKey returns the identifier of the cash account.
func (u Universe) CashKey() string {
	if len(u.Assets) == 0 {
		return DefaultCashKey
	}

	return u.Assets[len(u.Assets)-1]
}

// Validate checks that the universe has at least one non-cash asset and no
// duplicate identifiers.
func (u Universe) Validate() error {
	if len(u.Assets) < 2 {
		return fmt.Errorf("universe needs at least one asset plus the cash account, got %d members", len(u.Assets))
	}

	seen := make(map[string]struct{}, len(u.Assets))

	for _, name := range u.Assets {
		if name == "" {
			return fmt.Errorf("universe contains an empty asset identifier")
		}

		if _, ok := seen[name]; ok {
			return fmt.Errorf("universe contains duplicate identifier %q", name)
		}

		seen[name] = struct{}{}
	}

	return nil
}
