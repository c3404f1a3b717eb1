// Package logx: однострочные key/value логи запросов поверх *log.Logger.
package logx

import (
	"fmt"
	"log"
	"strings"
)

// Info: lvl=info req_id=... op=... msg="..." k=v ...
func Info(l *log.Logger, reqID, op, msg string, kv ...any) {
	write(l, "info", reqID, op, msg, nil, kv)
}

// Error: то же с полем err.
func Error(l *log.Logger, reqID, op, msg string, err error, kv ...any) {
	write(l, "error", reqID, op, msg, err, kv)
}

func write(l *log.Logger, lvl, reqID, op, msg string, err error, kv []any) {
	if l == nil {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "lvl=%s req_id=%s op=%s msg=%q", lvl, reqID, op, msg)
	if err != nil {
		fmt.Fprintf(&sb, " err=%q", err.Error())
	}
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 >= len(kv) {
			fmt.Fprintf(&sb, " %s=(missing)", key)
			break
		}
		fmt.Fprintf(&sb, " %s=%s", key, value(kv[i+1]))
	}
	l.Print(sb.String())
}

func value(v any) string {
	switch x := v.(type) {
	case string:
		if x == "" || strings.ContainsAny(x, " \t\"=") {
			return fmt.Sprintf("%q", x)
		}
		return x
	case error:
		return fmt.Sprintf("%q", x.Error())
	default:
		return fmt.Sprint(x)
	}
}
