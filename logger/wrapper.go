package logger

type LevelWrapper struct {
	Base
}

func WrapLogger(l Base) Logger {
	return &LevelWrapper{l}
}

func (w *LevelWrapper) Debug(msg string, kv ...any) {
	w.Log(DebugLevel, msg, kv...)
}

func (w *LevelWrapper) Info(msg string, kv ...any) {
	w.Log(InfoLevel, msg, kv...)
}

func (w *LevelWrapper) Warn(msg string, kv ...any) {
	w.Log(WarnLevel, msg, kv...)
}

func (w *LevelWrapper) Error(msg string, kv ...any) {
	w.Log(ErrorLevel, msg, kv...)
}

// With returns a Logger that prepends kv to every entry.
func (w *LevelWrapper) With(kv ...any) Logger {
	if len(kv) == 0 {
		return w
	}

	return &LevelWrapper{&fieldsBase{base: w.Base, fields: kv}}
}

type fieldsBase struct {
	base   Base
	fields []any
}

func (f *fieldsBase) Level() LogLevel {
	return f.base.Level()
}

func (f *fieldsBase) Log(level LogLevel, msg string, kv ...any) {
	merged := make([]any, 0, len(f.fields)+len(kv))
	merged = append(merged, f.fields...)
	merged = append(merged, kv...)
	f.base.Log(level, msg, merged...)
}
