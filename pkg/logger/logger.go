package logger

import "log/slog"

// Err packs an error into a structured attribute; a nil error yields an empty value.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}

	return slog.String("error", err.Error())
}

func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

func Int(key string, value int) slog.Attr {
	return slog.Int(key, value)
}

// Op is the attribute every layer tags its log lines with.
func Op(op string) slog.Attr {
	return slog.String("op", op)
}
