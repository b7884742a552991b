package configbinder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/worklist/pkg/worklist/support/util/configbinder"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
)

type greetSettings struct {
	Greeting string `yaml:"greeting"`
	Repeat   int    `yaml:"repeat"`
	FailOn   string `yaml:"fail_on"`
	Shout    bool   `yaml:"shout"`
}

func TestBindProperties(t *testing.T) {
	var s greetSettings
	err := configbinder.BindProperties(map[string]string{
		"greeting": "hello",
		"repeat":   "3",
		"shout":    "true",
	}, &s)
	require.NoError(t, err)

	assert.Equal(t, "hello", s.Greeting)
	assert.Equal(t, 3, s.Repeat)
	assert.True(t, s.Shout)
	assert.Empty(t, s.FailOn)
}

func TestBindProperties_EmptyLeavesDefaults(t *testing.T) {
	s := greetSettings{Greeting: "hi"}
	require.NoError(t, configbinder.BindProperties(nil, &s))
	assert.Equal(t, "hi", s.Greeting)
}

func TestBindProperties_BadValue(t *testing.T) {
	var s greetSettings
	err := configbinder.BindProperties(map[string]string{"repeat": "many"}, &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "greetSettings")
}

func TestBindProperties_UnknownProperty(t *testing.T) {
	var s greetSettings
	err := configbinder.BindProperties(map[string]string{"greeting": "hi", "gretting": "typo"}, &s)
	require.Error(t, err)
	assert.True(t, exception.IsConfig(err))
	assert.Contains(t, err.Error(), "gretting")
}
