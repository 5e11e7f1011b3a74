package syncer

const (
	remoteConfigurationKeySuffixConstant          = ".remote"
	stalenessWindowConfigurationKeySuffixConstant = ".staleness_window_months"
	candidateLimitConfigurationKeySuffixConstant  = ".candidate_limit"
	assumeYesConfigurationKeySuffixConstant       = ".assume_yes"

	defaultStalenessWindowMonthsConstant = 1
	defaultCandidateLimitConstant        = 5
)

// CommandConfiguration captures persisted settings for the synchronization command.
type CommandConfiguration struct {
	Remote                string `mapstructure:"remote"`
	StalenessWindowMonths int    `mapstructure:"staleness_window_months"`
	CandidateLimit        int    `mapstructure:"candidate_limit"`
	AssumeYes             bool   `mapstructure:"assume_yes"`
}

// DefaultConfigurationValues returns configuration defaults keyed beneath the provided prefix.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	return map[string]any{
		configurationKeyPrefix + remoteConfigurationKeySuffixConstant:          "",
		configurationKeyPrefix + stalenessWindowConfigurationKeySuffixConstant: defaultStalenessWindowMonthsConstant,
		configurationKeyPrefix + candidateLimitConfigurationKeySuffixConstant:  defaultCandidateLimitConstant,
		configurationKeyPrefix + assumeYesConfigurationKeySuffixConstant:       false,
	}
}
