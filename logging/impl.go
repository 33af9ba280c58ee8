package logging

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var errUnpairedKey = errors.New("unpaired log key")

// core is what a logger shares with every logger derived from it.
type core struct {
	level     Level
	inUTC     bool
	appenders []Appender
}

type impl struct {
	core   *core
	name   string
	fields []zapcore.Field
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.write(DEBUG, msg, keysAndValues)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.write(INFO, msg, keysAndValues)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.write(WARN, msg, keysAndValues)
}

func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return &impl{core: imp.core, name: name, fields: imp.fields}
}

func (imp *impl) WithFields(keysAndValues ...interface{}) Logger {
	return &impl{core: imp.core, name: imp.name, fields: imp.withFields(keysAndValues)}
}

func (imp *impl) withFields(keysAndValues []interface{}) []zapcore.Field {
	if len(keysAndValues) == 0 {
		return imp.fields
	}
	fields := make([]zapcore.Field, 0, len(imp.fields)+(len(keysAndValues)+1)/2)
	fields = append(fields, imp.fields...)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.NamedError(key, errUnpairedKey))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

// write must be called directly by the exported logging methods so that the caller two frames up
// is the code that logged.
func (imp *impl) write(level Level, msg string, keysAndValues []interface{}) {
	if level < imp.core.level {
		return
	}
	entry := zapcore.Entry{
		LoggerName: imp.name,
		Time:       time.Now(),
		Level:      level.AsZap(),
		Message:    msg,
		Caller:     zapcore.NewEntryCaller(runtime.Caller(2)),
	}
	if imp.core.inUTC {
		entry.Time = entry.Time.UTC()
	}

	fields := imp.withFields(keysAndValues)
	for _, appender := range imp.core.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}
