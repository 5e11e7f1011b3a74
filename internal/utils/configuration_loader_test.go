package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/trunk/internal/utils"
)

const (
	loaderConfigurationNameConstant = "trunk"
	loaderConfigurationTypeConstant = "yaml"
	loaderEnvironmentPrefixConstant = "TRUNKTEST"
)

type loaderTestConfiguration struct {
	Common struct {
		LogLevel  string `mapstructure:"log_level"`
		LogFormat string `mapstructure:"log_format"`
	} `mapstructure:"common"`
	Sync struct {
		Remote         string `mapstructure:"remote"`
		CandidateLimit int    `mapstructure:"candidate_limit"`
	} `mapstructure:"sync"`
}

func newLoaderUnderTest() *utils.ConfigurationLoader {
	return utils.NewConfigurationLoader(
		loaderConfigurationNameConstant,
		loaderConfigurationTypeConstant,
		loaderEnvironmentPrefixConstant,
		[]string{},
	)
}

func TestLoadConfigurationAppliesDefaults(testInstance *testing.T) {
	loader := newLoaderUnderTest()
	defaultValues := map[string]any{
		"common.log_level":     "info",
		"common.log_format":    "structured",
		"sync.candidate_limit": 5,
	}

	var configuration loaderTestConfiguration
	loadedConfiguration, loadError := loader.LoadConfiguration("", defaultValues, &configuration)

	require.NoError(testInstance, loadError)
	require.Empty(testInstance, loadedConfiguration.ConfigFileUsed)
	require.Equal(testInstance, "info", configuration.Common.LogLevel)
	require.Equal(testInstance, "structured", configuration.Common.LogFormat)
	require.Equal(testInstance, 5, configuration.Sync.CandidateLimit)
}

func TestLoadConfigurationMergesExplicitFileOverDefaults(testInstance *testing.T) {
	configurationDirectory := testInstance.TempDir()
	configurationFilePath := filepath.Join(configurationDirectory, "trunk.yaml")
	configurationContent := "common:\n  log_level: debug\nsync:\n  remote: upstream\n"
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(configurationContent), 0o644))

	loader := newLoaderUnderTest()
	defaultValues := map[string]any{
		"common.log_level":     "info",
		"sync.candidate_limit": 5,
	}

	var configuration loaderTestConfiguration
	loadedConfiguration, loadError := loader.LoadConfiguration(configurationFilePath, defaultValues, &configuration)

	require.NoError(testInstance, loadError)
	require.Equal(testInstance, configurationFilePath, loadedConfiguration.ConfigFileUsed)
	require.Equal(testInstance, "debug", configuration.Common.LogLevel)
	require.Equal(testInstance, "upstream", configuration.Sync.Remote)
	require.Equal(testInstance, 5, configuration.Sync.CandidateLimit)
}

func TestLoadConfigurationMergesEmbeddedConfiguration(testInstance *testing.T) {
	loader := newLoaderUnderTest()
	loader.SetEmbeddedConfiguration([]byte("common:\n  log_format: console\n"))

	var configuration loaderTestConfiguration
	_, loadError := loader.LoadConfiguration("", map[string]any{}, &configuration)

	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "console", configuration.Common.LogFormat)
}

func TestLoadConfigurationHonorsEnvironmentOverrides(testInstance *testing.T) {
	testInstance.Setenv("TRUNKTEST_COMMON_LOG_LEVEL", "warn")

	loader := newLoaderUnderTest()
	defaultValues := map[string]any{
		"common.log_level": "info",
	}

	var configuration loaderTestConfiguration
	_, loadError := loader.LoadConfiguration("", defaultValues, &configuration)

	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "warn", configuration.Common.LogLevel)
}
