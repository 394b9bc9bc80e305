package configuration

import (
	"os"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type localConfiguration struct {
	Version       Version      `yaml:"version"`
	Log           *localLog    `yaml:"log"`
	Notifications []localNotif `yaml:"notifications,omitempty"`
}

type localLog struct {
	Formatter string `yaml:"formatter,omitempty"`
}

type localNotif struct {
	Name string `yaml:"name"`
}

var expectedLocalConfig = localConfiguration{
	Version: "0.1",
	Log: &localLog{
		Formatter: "json",
	},
	Notifications: []localNotif{
		{Name: "foo"},
		{Name: "bar"},
		{Name: "car"},
	},
}

const testConfig = `version: "0.1"
log:
  formatter: "text"
notifications:
  - name: "foo"
  - name: "bar"
  - name: "car"`

func TestParserOverwritePointerField(t *testing.T) {
	config := localConfiguration{}

	os.Setenv("DRAWBRIDGE_LOG_FORMATTER", "json")
	defer os.Unsetenv("DRAWBRIDGE_LOG_FORMATTER")

	p := NewParser("drawbridge", []VersionedParseInfo{
		{
			Version: "0.1",
			ParseAs: reflect.TypeOf(config),
			ConversionFunc: func(c interface{}) (interface{}, error) {
				return c, nil
			},
		},
	})

	err := p.Parse([]byte(testConfig), &config)
	require.NoError(t, err)
	require.Equal(t, expectedLocalConfig, config)
}

const testConfig2 = `version: "0.1"
log:
  formatter: "text"
notifications:
  - name: "val1"
  - name: "val2"
  - name: "car"`

func TestParseOverwriteSliceElements(t *testing.T) {
	config := localConfiguration{}

	os.Setenv("DRAWBRIDGE_LOG_FORMATTER", "json")
	defer os.Unsetenv("DRAWBRIDGE_LOG_FORMATTER")

	// override only first two notification values in testConfig2; leave
	// the last value unchanged.
	os.Setenv("DRAWBRIDGE_NOTIFICATIONS_0_NAME", "foo")
	defer os.Unsetenv("DRAWBRIDGE_NOTIFICATIONS_0_NAME")
	os.Setenv("DRAWBRIDGE_NOTIFICATIONS_1_NAME", "bar")
	defer os.Unsetenv("DRAWBRIDGE_NOTIFICATIONS_1_NAME")

	p := NewParser("drawbridge", []VersionedParseInfo{
		{
			Version: "0.1",
			ParseAs: reflect.TypeOf(config),
			ConversionFunc: func(c interface{}) (interface{}, error) {
				return c, nil
			},
		},
	})

	err := p.Parse([]byte(testConfig2), &config)
	require.NoError(t, err)
	require.Equal(t, expectedLocalConfig, config)
}
