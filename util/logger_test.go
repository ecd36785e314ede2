package util

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLoggerWritesStructuredFields(t *testing.T) {
	buf := &bytes.Buffer{}
	SetLoggerForTest(zerolog.New(buf))

	Logger().Info().Str("request_id", "abc").Msg("hello")

	assert.Contains(t, buf.String(), `"request_id":"abc"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}
