package log

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	temporallog "go.temporal.io/sdk/log"
)

// TemporalAdapter routes Temporal SDK key/value logging into zerolog. An
// error value is written under zerolog's error field whatever its key.
type TemporalAdapter struct {
	logger zerolog.Logger
}

var _ temporallog.WithLogger = (*TemporalAdapter)(nil)

func NewTemporalAdapter(logger zerolog.Logger) *TemporalAdapter {
	return &TemporalAdapter{logger: Component(logger, "temporal")}
}

func (t *TemporalAdapter) Debug(msg string, keyvals ...interface{}) {
	t.write(t.logger.Debug(), msg, keyvals)
}

func (t *TemporalAdapter) Info(msg string, keyvals ...interface{}) {
	t.write(t.logger.Info(), msg, keyvals)
}

func (t *TemporalAdapter) Warn(msg string, keyvals ...interface{}) {
	t.write(t.logger.Warn(), msg, keyvals)
}

func (t *TemporalAdapter) Error(msg string, keyvals ...interface{}) {
	t.write(t.logger.Error(), msg, keyvals)
}

func (t *TemporalAdapter) With(keyvals ...interface{}) temporallog.Logger {
	ctx := t.logger.With()
	eachPair(keyvals, func(key string, val interface{}) {
		ctx = ctx.Interface(key, val)
	})
	return &TemporalAdapter{logger: ctx.Logger()}
}

func (t *TemporalAdapter) write(e *zerolog.Event, msg string, keyvals []interface{}) {
	eachPair(keyvals, func(key string, val interface{}) {
		if err, ok := val.(error); ok {
			e.Err(err)
			return
		}
		e.Interface(key, val)
	})
	e.Msg(msg)
}

// eachPair walks keyvals two at a time. A dangling key gets a nil value.
func eachPair(keyvals []interface{}, fn func(key string, val interface{})) {
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		var val interface{}
		if i+1 < len(keyvals) {
			val = keyvals[i+1]
		}
		fn(key, val)
	}
}

// BadgerAdapter routes badger's printf style logging into zerolog one level
// lower than badger asks for, since badger is chatty at info.
type BadgerAdapter struct {
	logger zerolog.Logger
}

func NewBadgerAdapter(logger zerolog.Logger) *BadgerAdapter {
	return &BadgerAdapter{logger: Component(logger, "badger")}
}

func (b *BadgerAdapter) Errorf(format string, args ...interface{}) {
	b.logger.Error().Msgf(strings.TrimSuffix(format, "\n"), args...)
}

func (b *BadgerAdapter) Warningf(format string, args ...interface{}) {
	b.logger.Warn().Msgf(strings.TrimSuffix(format, "\n"), args...)
}

func (b *BadgerAdapter) Infof(format string, args ...interface{}) {
	b.logger.Debug().Msgf(strings.TrimSuffix(format, "\n"), args...)
}

func (b *BadgerAdapter) Debugf(format string, args ...interface{}) {
	b.logger.Trace().Msgf(strings.TrimSuffix(format, "\n"), args...)
}
