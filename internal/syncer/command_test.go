package syncer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/trunk/internal/syncer"
)

const configurationKeyPrefixConstant = "sync"

func TestCommandBuilderBuild(testInstance *testing.T) {
	builder := syncer.CommandBuilder{}

	command, buildError := builder.Build()

	require.NoError(testInstance, buildError)
	require.Equal(testInstance, "trunk [branch]", command.Use)
	require.NotEmpty(testInstance, command.Short)
	require.NotNil(testInstance, command.Args)

	require.NotNil(testInstance, command.Flags().Lookup("dry-run"))
	require.NotNil(testInstance, command.Flags().Lookup("yes"))
	require.NotNil(testInstance, command.Flags().Lookup("remote"))
}

func TestCommandBuilderRejectsExtraArguments(testInstance *testing.T) {
	builder := syncer.CommandBuilder{}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	require.NoError(testInstance, command.Args(command, []string{}))
	require.NoError(testInstance, command.Args(command, []string{"feature"}))
	require.Error(testInstance, command.Args(command, []string{"feature", "extra"}))
}

func TestDefaultConfigurationValues(testInstance *testing.T) {
	defaultValues := syncer.DefaultConfigurationValues(configurationKeyPrefixConstant)

	require.Equal(testInstance, "", defaultValues["sync.remote"])
	require.Equal(testInstance, 1, defaultValues["sync.staleness_window_months"])
	require.Equal(testInstance, 5, defaultValues["sync.candidate_limit"])
	require.Equal(testInstance, false, defaultValues["sync.assume_yes"])
}
