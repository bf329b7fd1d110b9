package ata

import (
	"github.com/spf13/viper"

	"github.com/solana-program/associated-token-account/pkg/config"
	"github.com/solana-program/associated-token-account/pkg/config/env"
	"github.com/solana-program/associated-token-account/pkg/config/memory"
	viperconfig "github.com/solana-program/associated-token-account/pkg/config/viper"
	"github.com/solana-program/associated-token-account/pkg/config/wrapper"
)

const (
	envConfigPrefix   = "ATA_"
	viperConfigPrefix = "ata."

	EnableCreatePrefundedConfigEnvName = envConfigPrefix + "ENABLE_CREATE_PREFUNDED"
	EnableCreatePrefundedConfigKey     = viperConfigPrefix + "enable_create_prefunded"
	defaultEnableCreatePrefunded       = false

	MaxSaneAccountLengthConfigEnvName = envConfigPrefix + "MAX_SANE_ACCOUNT_LENGTH"
	MaxSaneAccountLengthConfigKey     = viperConfigPrefix + "max_sane_account_length"
	defaultMaxSaneAccountLength       = 2048
)

type conf struct {
	// enableCreatePrefunded gates use of the system program's
	// CreateAccountPrefunded instruction for addresses that already hold
	// lamports.
	enableCreatePrefunded config.Bool

	// maxSaneAccountLength bounds the account length hint so accounts that
	// are expensive to work with can't be created on behalf of others.
	maxSaneAccountLength config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			enableCreatePrefunded: env.NewBoolConfig(EnableCreatePrefundedConfigEnvName, defaultEnableCreatePrefunded),
			maxSaneAccountLength:  env.NewUint64Config(MaxSaneAccountLengthConfigEnvName, defaultMaxSaneAccountLength),
		}
	}
}

// WithViperConfigs returns configuration pulled from v, which is typically fed
// by a config file. A nil v uses the global viper instance.
func WithViperConfigs(v *viper.Viper) ConfigProvider {
	return func() *conf {
		return &conf{
			enableCreatePrefunded: viperconfig.NewBoolConfig(v, EnableCreatePrefundedConfigKey, defaultEnableCreatePrefunded),
			maxSaneAccountLength:  viperconfig.NewUint64Config(v, MaxSaneAccountLengthConfigKey, defaultMaxSaneAccountLength),
		}
	}
}

type testOverrides struct {
	enableCreatePrefunded bool
	maxSaneAccountLength  uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	maxSaneAccountLength := overrides.maxSaneAccountLength
	if maxSaneAccountLength == 0 {
		maxSaneAccountLength = defaultMaxSaneAccountLength
	}

	return func() *conf {
		return &conf{
			enableCreatePrefunded: wrapper.NewBoolConfig(memory.NewConfig(overrides.enableCreatePrefunded), defaultEnableCreatePrefunded),
			maxSaneAccountLength:  wrapper.NewUint64Config(memory.NewConfig(maxSaneAccountLength), defaultMaxSaneAccountLength),
		}
	}
}
