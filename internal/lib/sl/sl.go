// Package sl holds small slog attribute helpers shared across packages.
package sl

import (
	"fmt"
	"log/slog"
)

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Secret keeps only the first 5 characters of a credential.
func Secret(some string) slog.Attr {
	r := "***"
	if len(some) > 5 {
		r = fmt.Sprintf("%s***", some[0:5])
	}
	if some == "" {
		r = "?"
	}
	return slog.String("secret", r)
}

func Module(mod string) slog.Attr {
	return slog.String("mod", mod)
}
