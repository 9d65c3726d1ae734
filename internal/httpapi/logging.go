package httpapi

import (
	"bytes"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is the HTTP-layer logger. It writes JSON to stderr until SetLogger
// installs the process logger.
var zlog = zerolog.New(os.Stderr).With().Timestamp().Logger()

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// defaultLogLevel is read once from OAIGATE_LOG_REQUESTS.
var defaultLogLevel = parseLevel(os.Getenv("OAIGATE_LOG_REQUESTS"))

// SetDefaultRequestLogLevel overrides the level used when a request carries
// no override.
func SetDefaultRequestLogLevel(s string) { defaultLogLevel = parseLevel(s) }

// requestLogLevel honors ?log= and X-Log-Level before the process default.
func requestLogLevel(r *http.Request) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// reqLog carries the per-request logging decision and start time.
type reqLog struct {
	lvl   LogLevel
	start time.Time
	log   zerolog.Logger
}

func newReqLog(r *http.Request) *reqLog {
	l := zlog.With().Str("path", r.URL.Path)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		l = l.Str("request_id", rid)
	}
	return &reqLog{lvl: requestLogLevel(r), start: time.Now(), log: l.Logger()}
}

func (rl *reqLog) begin(model string, stream bool) {
	if rl.lvl >= LevelInfo {
		rl.log.Info().Str("model", model).Bool("stream", stream).Msg("generation start")
	}
}

// end logs the outcome. Failures are logged from LevelError up, successes
// from LevelInfo up.
func (rl *reqLog) end(status int, err error) {
	if rl.lvl < LevelError || (err == nil && rl.lvl < LevelInfo) {
		return
	}
	ev := rl.log.Info()
	if err != nil {
		ev = rl.log.Error().Err(err)
	}
	ev.Int("status", status).Dur("dur", time.Since(rl.start)).Msg("generation end")
}

// loggingLineWriter logs complete SSE lines. Blank separator lines are skipped.
type loggingLineWriter struct {
	buf []byte
	log zerolog.Logger
}

func (lw *loggingLineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		if line := string(lw.buf[:idx]); line != "" {
			lw.log.Info().Msg("stream> " + line)
		}
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}
