// SPDX-License-Identifier: Apache-2.0

package logging

import "log/slog"

func RunID(id string) slog.Attr {
	return slog.String("run_id", id)
}

func Step(index int) slog.Attr {
	return slog.Int("step", index)
}

func Method(method string) slog.Attr {
	return slog.String("method", method)
}

func Endpoint(endpoint string) slog.Attr {
	return slog.String("endpoint", endpoint)
}

func Agent(name string) slog.Attr {
	return slog.String("agent", name)
}

func State[T ~string](state T) slog.Attr {
	return slog.String("state", string(state))
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

func ErrorString(msg string) slog.Attr {
	return slog.String("error", msg)
}
