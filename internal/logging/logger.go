package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

func New(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})
	return slog.New(h)
}

func PrintBanner() {
	fmt.Println(`
  ___  ___  _ __ ___  _ __ ___  _   _ _ __ (_) |_ _   _| |__  _   _| |__
 / __|/ _ \| '_ ` + "`" + ` _ \| '_ ` + "`" + ` _ \| | | | '_ \| | __| | | | '_ \| | | | '_ \
| (__| (_) | | | | | | | | | | | |_| | | | | | |_| |_| | | | | |_| | |_) |
 \___|\___/|_| |_| |_|_| |_| |_|\__,_|_| |_|_|\__|\__, |_| |_|\__,_|_.__/
                                                  |___/`)
}

func MaskToken(tok string) string {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return ""
	}
	if len(tok) <= 8 {
		return "***"
	}
	return tok[:3] + "***" + tok[len(tok)-3:]
}
