package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpersDefaults(t *testing.T) {
	assert.Equal(t, "fallback", envStr("TTK_TEST_UNSET", "fallback"))
	assert.Equal(t, 7, envInt("TTK_TEST_UNSET", 7))
	assert.True(t, envBool("TTK_TEST_UNSET", true))
	assert.Equal(t, time.Minute, envDur("TTK_TEST_UNSET", time.Minute))
}

func TestEnvHelpersParse(t *testing.T) {
	t.Setenv("TTK_TEST_INT", "42")
	t.Setenv("TTK_TEST_BOOL", "false")
	t.Setenv("TTK_TEST_DUR", "90s")

	assert.Equal(t, 42, envInt("TTK_TEST_INT", 7))
	assert.False(t, envBool("TTK_TEST_BOOL", true))
	assert.Equal(t, 90*time.Second, envDur("TTK_TEST_DUR", time.Minute))
}

func TestEnvHelpersBadValuesFallBack(t *testing.T) {
	t.Setenv("TTK_TEST_INT", "not-a-number")
	t.Setenv("TTK_TEST_DUR", "soon")

	assert.Equal(t, 7, envInt("TTK_TEST_INT", 7))
	assert.Equal(t, time.Minute, envDur("TTK_TEST_DUR", time.Minute))
}

func TestParseMethods(t *testing.T) {
	m := parseMethods("get, post")
	assert.True(t, m["GET"])
	assert.True(t, m["POST"])
	assert.False(t, m["DELETE"])
}
