package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiceErrorError(t *testing.T) {
	tests := []struct {
		name     string
		err      *DiceError
		expected string
	}{
		{
			name:     "input error with cause",
			err:      NewInputError("unable to parse the input", io.ErrUnexpectedEOF),
			expected: "[ERR_INPUT_INVALID] unable to parse the input: unexpected EOF",
		},
		{
			name:     "version error",
			err:      NewVersionError("invalid host version", fmt.Errorf("bad semver")),
			expected: "[ERR_VERSION_INVALID] invalid host version: bad semver",
		},
		{
			name:     "io error with location",
			err:      NewIOError(ErrCodeFileNotFound, "cannot read chapter", nil).WithLocation("src/combat.md", 3),
			expected: "[ERR_FILE_NOT_FOUND] src/combat.md:3 cannot read chapter",
		},
		{
			name:     "no code",
			err:      &DiceError{Message: "plain"},
			expected: "plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDiceErrorUnwrapAndIs(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", NewOutputError("writing book", cause))

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, &DiceError{Type: ErrorTypeOutput, Code: ErrCodeOutputFailed})
	assert.NotErrorIs(t, err, &DiceError{Type: ErrorTypeInput, Code: ErrCodeInputInvalid})

	assert.True(t, IsType(err, ErrorTypeOutput))
	assert.False(t, IsType(err, ErrorTypeVersion))
	assert.False(t, IsType(cause, ErrorTypeOutput))
}

func TestErrorConstructors(t *testing.T) {
	assert.Equal(t, ErrorTypeInput, NewInputError("m", nil).Type)
	assert.Equal(t, ErrorTypeVersion, NewVersionError("m", nil).Type)
	assert.Equal(t, ErrorTypeOutput, NewOutputError("m", nil).Type)
	assert.Equal(t, ErrorTypeConfig, NewConfigError("m", nil).Type)
	assert.Equal(t, ErrorTypeIO, NewIOError(ErrCodeFileWrite, "m", nil).Type)
	assert.Equal(t, ErrorTypeInternal, NewInternalError("m", nil).Type)

	err := NewConfigError("bad classes", nil).WithContext("key", "classes.plain")
	assert.Equal(t, "classes.plain", err.Context["key"])
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("any")))
	assert.Equal(t, 1, ExitCode(NewVersionError("v", nil)))
}

type recordingLogger struct {
	msg    string
	err    error
	fields []interface{}
}

func (r *recordingLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	r.msg, r.err, r.fields = msg, err, fields
}

func (r *recordingLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	r.Error(ctx, err, msg, fields...)
}

func TestErrorHandler(t *testing.T) {
	logger := &recordingLogger{}
	handler := NewErrorHandler(logger)

	assert.Equal(t, 0, handler.Handle(context.Background(), nil))
	assert.Empty(t, logger.msg)

	err := NewIOError(ErrCodeFileWrite, "cannot write", nil).WithLocation("out/a.md", 0)
	assert.Equal(t, 1, handler.Handle(context.Background(), err))
	assert.Equal(t, "Preprocessor failed", logger.msg)
	assert.Equal(t, err, logger.err)
	assert.Contains(t, logger.fields, "file")
	assert.Contains(t, logger.fields, "out/a.md")

	verr := NewVersionError("invalid mdbook version", nil).WithContext("actual", "latest")
	assert.Equal(t, 1, handler.Handle(context.Background(), verr))
	assert.Contains(t, logger.fields, "actual")
	assert.Contains(t, logger.fields, "latest")

	assert.Equal(t, 1, handler.Handle(context.Background(), errors.New("generic")))
	assert.Equal(t, "Unhandled error occurred", logger.msg)

	assert.Equal(t, 1, NewErrorHandler(nil).Handle(context.Background(), errors.New("x")))
}

func TestErrorCollector(t *testing.T) {
	collector := NewErrorCollector()
	assert.False(t, collector.HasErrors())
	assert.NoError(t, collector.Err())

	collector.Add(nil)
	assert.False(t, collector.HasErrors())

	first := NewIOError(ErrCodeFileNotFound, "missing", nil).WithLocation("a.md", 0)
	collector.Add(first)
	assert.True(t, collector.HasErrors())
	assert.Equal(t, first, collector.Err())

	second := NewIOError(ErrCodeFileWrite, "readonly", nil).WithLocation("b.md", 0)
	collector.Add(second)
	collector.Add(errors.New("unlocated"))

	require.Len(t, collector.GetErrors(), 3)

	combined := collector.Err()
	require.Error(t, combined)
	assert.ErrorIs(t, combined, first)
	assert.ErrorIs(t, combined, second)

	var multi *MultiError
	require.ErrorAs(t, combined, &multi)
	assert.Equal(t, []error{first, second, multi.Errors[2]}, multi.Errors)
}

func TestMultiErrorListsEachErrorOnce(t *testing.T) {
	collector := NewErrorCollector()
	collector.Add(errors.New("a"))
	collector.Add(errors.New("b"))

	err := collector.Err()
	require.Error(t, err)
	assert.Equal(t, "2 errors:\n  a\n  b", err.Error())
	assert.Equal(t, 1, strings.Count(err.Error(), "a"))
}

func TestErrorCollectorConcurrentAdd(t *testing.T) {
	collector := NewErrorCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			collector.Add(fmt.Errorf("error %d", i))
		}(i)
	}
	wg.Wait()

	assert.Len(t, collector.GetErrors(), 50)
}
