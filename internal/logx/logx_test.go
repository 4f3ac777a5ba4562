package logx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShopLoggerTagsShopID(t *testing.T) {
	var buf bytes.Buffer
	Init(LoggerOpts{Production: true, Level: "debug", Output: &buf})
	t.Cleanup(func() { Init() })

	Shop("zalando").Warn().Msg("search failed")
	Shop("kids").Debug().Int("skipped", 2).Msg("tiles skipped")

	out := buf.String()
	require.Contains(t, out, `"shop":"zalando"`)
	require.Contains(t, out, `"shop":"kids"`)
	require.Contains(t, out, `"skipped":2`)
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	Init(LoggerOpts{Production: true, Level: "info", Output: &buf})
	t.Cleanup(func() { Init() })

	Shop("zalando").Debug().Msg("hidden")
	require.Empty(t, buf.String())
}
